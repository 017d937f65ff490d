package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockscraper/extract"
	"stockscraper/fetch"
	"stockscraper/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	flat    *extract.FlatRecord
	profile *extract.ProfileRecord
	err     error
	symbol  string
	panics  bool
}

func (f *fakeRecords) GetFlatRecord(_ context.Context, symbol string) (*extract.FlatRecord, error) {
	if f.panics {
		panic("boom")
	}
	f.symbol = symbol
	return f.flat, f.err
}

func (f *fakeRecords) GetProfileRecord(_ context.Context, symbol string) (*extract.ProfileRecord, error) {
	f.symbol = symbol
	return f.profile, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestHome(t *testing.T) {
	rec, body := do(t, New(&fakeRecords{}, quietLogger()), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, map[string]any{
		"price_data":      "/api/stock/<symbol>",
		"company_profile": "/api/stock/<symbol>/profile",
	}, body["endpoints"])
}

func TestFlat_OK(t *testing.T) {
	fake := &fakeRecords{flat: &extract.FlatRecord{Symbol: "ABC", Entries: map[string]string{"Market Cap": "22.39M"}}}
	rec, body := do(t, New(fake, quietLogger()), "/api/stock/abc")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", fake.symbol)
	assert.Equal(t, "ABC", body["symbol"])
	assert.Equal(t, map[string]any{"Market Cap": "22.39M"}, body["data"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestProfile_OK(t *testing.T) {
	fake := &fakeRecords{profile: &extract.ProfileRecord{
		Symbol:       "ABC",
		Description:  "Maker of things.",
		Info:         map[string]string{"Sector": "Technology"},
		StockDetails: map[string]string{},
		Contact:      map[string]string{},
		Executives:   []extract.Executive{{Name: "Jane Roe", Title: "CEO"}},
	}}
	rec, body := do(t, New(fake, quietLogger()), "/api/stock/ABC/profile")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Maker of things.", body["description"])
	assert.Equal(t, []any{map[string]any{"name": "Jane Roe", "title": "CEO"}}, body["executives"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		want   map[string]any
	}{
		{
			name:   "upstream non-200",
			path:   "/api/stock/zzz",
			err:    &fetch.TransportError{URL: "u", StatusCode: http.StatusForbidden},
			status: http.StatusBadGateway,
			want:   map[string]any{"error": "Failed to fetch data", "code": float64(403)},
		},
		{
			name:   "profile upstream non-200",
			path:   "/api/stock/zzz/profile",
			err:    &fetch.TransportError{URL: "u", StatusCode: http.StatusNotFound},
			status: http.StatusBadGateway,
			want:   map[string]any{"error": "Failed to fetch profile", "code": float64(404)},
		},
		{
			name:   "network failure has no code",
			path:   "/api/stock/zzz",
			err:    &fetch.TransportError{URL: "u", Cause: errors.New("dial tcp: refused")},
			status: http.StatusBadGateway,
			want:   map[string]any{"error": "Failed to fetch data"},
		},
		{
			name:   "no tables",
			path:   "/api/stock/zzz",
			err:    fmt.Errorf("u: %w", extract.ErrStructureNotFound),
			status: http.StatusNotFound,
			want:   map[string]any{"error": noTablesMessage},
		},
		{
			name:   "parse failure",
			path:   "/api/stock/zzz",
			err:    &extract.ParseError{Cause: errors.New("bad bytes")},
			status: http.StatusInternalServerError,
			want:   map[string]any{"error": "failed to parse HTML: bad bytes"},
		},
		{
			name:   "empty symbol",
			path:   "/api/stock/%20",
			err:    stock.ErrEmptySymbol,
			status: http.StatusBadRequest,
			want:   map[string]any{"error": stock.ErrEmptySymbol.Error()},
		},
		{
			name:   "anything else",
			path:   "/api/stock/zzz",
			err:    errors.New("unexpected"),
			status: http.StatusInternalServerError,
			want:   map[string]any{"error": "unexpected"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, New(&fakeRecords{err: tt.err}, quietLogger()), tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestRequestID_Propagates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	New(&fakeRecords{}, quietLogger()).ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestPanicIsRecovered(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/stock/abc", nil)
	rec := httptest.NewRecorder()
	New(&fakeRecords{panics: true}, quietLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/other", nil)
	rec := httptest.NewRecorder()
	New(&fakeRecords{}, quietLogger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWithStockService(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stocks/abc/" {
			_, _ = io.WriteString(w, `<table><tr><td>Market Cap</td><td>22.39M</td></tr></table>`)
			return
		}
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	svc := stock.NewService(fetch.NewHTTPFetcher(fetch.DefaultTimeout), stock.Options{BaseURL: upstream.URL, Logger: quietLogger()})
	h := New(svc, quietLogger())

	rec, body := do(t, h, "/api/stock/ABC")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"Market Cap": "22.39M"}, body["data"])
	assert.Equal(t, upstream.URL+"/stocks/abc/", body["source"])

	rec, body = do(t, h, "/api/stock/ABC/profile")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, float64(404), body["code"])
}
