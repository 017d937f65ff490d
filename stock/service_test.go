package stock

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stockscraper/alert"
	"stockscraper/extract"
	"stockscraper/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricePage = `<html><body>
<table>
	<tr><td>Market Cap</td><td>22.39M</td></tr>
	<tr><td>P/E Ratio</td><td>N/A</td></tr>
</table>
</body></html>`

const companyPage = `<html><body>
<h1>Company Description</h1>
<div><p>Maker of things.</p></div>
<h2>Contact Details</h2>
<div><table><tr><td colspan="2">Address: 123 Main St, City</td></tr></table></div>
<table><tr><td>Sector</td><td>Technology</td></tr></table>
</body></html>`

type recordingPublisher struct {
	mu     sync.Mutex
	events []alert.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev alert.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

// pages serves fixed bodies by URL and records the headers it saw.
func pages(t *testing.T, byURL map[string]string) (fetch.Fetcher, *http.Header) {
	t.Helper()
	var seen http.Header
	return fetch.FetcherFunc(func(_ context.Context, url string, header http.Header) (*fetch.Response, error) {
		seen = header
		body, ok := byURL[url]
		if !ok {
			return &fetch.Response{URL: url, StatusCode: http.StatusNotFound}, nil
		}
		return &fetch.Response{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
	}), &seen
}

func TestService_URLs(t *testing.T) {
	s := NewService(nil, Options{BaseURL: "https://example.test/"})
	assert.Equal(t, "https://example.test/stocks/abc/", s.PriceURL(" ABC "))
	assert.Equal(t, "https://example.test/stocks/abc/company/", s.ProfileURL("abc"))

	assert.Equal(t, "https://stockanalysis.com/stocks/brk.b/", NewService(nil, Options{}).PriceURL("BRK.B"))
}

func TestGetFlatRecord_EndToEnd(t *testing.T) {
	f, seen := pages(t, map[string]string{"https://stockanalysis.com/stocks/abc/": pricePage})
	s := NewService(f, Options{UserAgent: "Agent/2"})

	rec, err := s.GetFlatRecord(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", rec.Symbol)
	assert.Equal(t, "https://stockanalysis.com/stocks/abc/", rec.Source)
	assert.Equal(t, map[string]string{"Market Cap": "22.39M", "P/E Ratio": "N/A"}, rec.Entries)
	assert.Equal(t, "Agent/2", seen.Get("User-Agent"))
}

func TestGetFlatRecord_Idempotent(t *testing.T) {
	f, _ := pages(t, map[string]string{"https://stockanalysis.com/stocks/abc/": pricePage})
	s := NewService(f, Options{})

	first, err := s.GetFlatRecord(context.Background(), "abc")
	require.NoError(t, err)
	second, err := s.GetFlatRecord(context.Background(), "abc")
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestGetFlatRecord_NonOKStatus(t *testing.T) {
	f, _ := pages(t, nil)
	_, err := NewService(f, Options{}).GetFlatRecord(context.Background(), "zzz")

	var terr *fetch.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}

func TestGetFlatRecord_TransportFailureIsWrapped(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	f := fetch.FetcherFunc(func(context.Context, string, http.Header) (*fetch.Response, error) {
		return nil, boom
	})

	_, err := NewService(f, Options{}).GetFlatRecord(context.Background(), "abc")
	var terr *fetch.TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "https://stockanalysis.com/stocks/abc/", terr.URL)
}

func TestGetFlatRecord_StructureNotFoundAlerts(t *testing.T) {
	f, _ := pages(t, map[string]string{"https://stockanalysis.com/stocks/zzz/": "<html><body><h1>404</h1></body></html>"})
	pub := &recordingPublisher{err: errors.New("redis down")}
	s := NewService(f, Options{Alerts: pub})

	rec, err := s.GetFlatRecord(context.Background(), "zzz")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, extract.ErrStructureNotFound)

	require.Len(t, pub.events, 1)
	assert.Equal(t, alert.KindStructureChanged, pub.events[0].Kind)
	assert.Equal(t, "ZZZ", pub.events[0].Symbol)
	assert.Equal(t, "https://stockanalysis.com/stocks/zzz/", pub.events[0].URL)
	assert.WithinDuration(t, time.Now(), pub.events[0].At, time.Minute)
}

func TestGetRecords_EmptySymbol(t *testing.T) {
	s := NewService(nil, Options{})
	_, err := s.GetFlatRecord(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
	_, err = s.GetProfileRecord(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestGetProfileRecord(t *testing.T) {
	f, _ := pages(t, map[string]string{"https://stockanalysis.com/stocks/abc/company/": companyPage})
	s := NewService(f, Options{})

	rec, err := s.GetProfileRecord(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", rec.Symbol)
	assert.Equal(t, "https://stockanalysis.com/stocks/abc/company/", rec.Source)
	assert.Equal(t, "Maker of things.", rec.Description)
	assert.Equal(t, map[string]string{"Sector": "Technology"}, rec.Info)
	assert.Equal(t, map[string]string{"Address": "123 Main St, City"}, rec.Contact)
	assert.Empty(t, rec.StockDetails)
	assert.Empty(t, rec.Executives)

	body, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"executives":[]`)
	assert.Contains(t, string(body), `"stock_details":{}`)
}

func TestGetProfileRecord_CustomLayout(t *testing.T) {
	layout, err := extract.ParseLayout([]byte("description:\n  tag: h2\n  pattern: About\n"))
	require.NoError(t, err)

	f, _ := pages(t, map[string]string{"https://stockanalysis.com/stocks/abc/company/": `<h2>About</h2><div><p>Hi.</p></div>`})
	rec, err := NewService(f, Options{Layout: &layout}).GetProfileRecord(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Hi.", rec.Description)
}

func TestService_OverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/stocks/abc/":
			_, _ = w.Write([]byte(pricePage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := NewService(fetch.NewHTTPFetcher(time.Second), Options{BaseURL: server.URL})

	rec, err := s.GetFlatRecord(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "22.39M", rec.Entries["Market Cap"])

	_, err = s.GetProfileRecord(context.Background(), "ABC")
	var terr *fetch.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}
