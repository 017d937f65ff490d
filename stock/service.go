// Package stock serves flat price records and company profiles for a ticker
// symbol: fetch the page, parse it, run the matching extractor.
package stock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockscraper/alert"
	"stockscraper/extract"
	"stockscraper/fetch"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is the site the page paths below are relative to.
const DefaultBaseURL = "https://stockanalysis.com"

// ErrEmptySymbol is returned for a blank symbol.
var ErrEmptySymbol = errors.New("symbol is required")

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	UserAgent string
	Layout    *extract.Layout
	Alerts    alert.Publisher
	Logger    *slog.Logger
}

// Service builds records for symbols. It keeps no per-request state and is
// safe for concurrent use as long as its Fetcher is.
type Service struct {
	fetcher fetch.Fetcher
	baseURL string
	header  http.Header
	layout  extract.Layout
	alerts  alert.Publisher
	log     *slog.Logger
}

// NewService creates a service that fetches through f.
func NewService(f fetch.Fetcher, opts Options) *Service {
	s := &Service{
		fetcher: f,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		header:  fetch.BrowserHeader(opts.UserAgent),
		layout:  extract.DefaultLayout(),
		alerts:  opts.Alerts,
		log:     opts.Logger,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if opts.Layout != nil {
		s.layout = *opts.Layout
	}
	if s.alerts == nil {
		s.alerts = alert.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// NormalizeSymbol trims and uppercases a symbol for output.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// PriceURL is the statistics page for symbol.
func (s *Service) PriceURL(symbol string) string {
	return fmt.Sprintf("%s/stocks/%s/", s.baseURL, url.PathEscape(strings.ToLower(strings.TrimSpace(symbol))))
}

// ProfileURL is the company page for symbol.
func (s *Service) ProfileURL(symbol string) string {
	return s.PriceURL(symbol) + "company/"
}

// GetFlatRecord returns every label/value row on the symbol's price page.
func (s *Service) GetFlatRecord(ctx context.Context, symbol string) (*extract.FlatRecord, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, ErrEmptySymbol
	}

	pageURL := s.PriceURL(symbol)
	doc, err := s.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	rec, err := extract.Flat(doc.Selection, sym)
	if errors.Is(err, extract.ErrStructureNotFound) {
		s.structureChanged(ctx, sym, pageURL)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pageURL, err)
	}
	rec.Source = pageURL

	s.log.Debug("built flat record", "symbol", sym, "entries", len(rec.Entries))
	return &rec, nil
}

// GetProfileRecord returns the company profile for symbol. Sections missing
// from the page come back empty.
func (s *Service) GetProfileRecord(ctx context.Context, symbol string) (*extract.ProfileRecord, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, ErrEmptySymbol
	}

	pageURL := s.ProfileURL(symbol)
	doc, err := s.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	rec := extract.Profile(doc.Selection, s.layout, sym)
	rec.Source = pageURL

	s.log.Debug("built profile record",
		"symbol", sym,
		"description_len", len(rec.Description),
		"info", len(rec.Info),
		"stock_details", len(rec.StockDetails),
		"contact", len(rec.Contact),
		"executives", len(rec.Executives),
	)
	return &rec, nil
}

// document fetches pageURL and parses it.
func (s *Service) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	start := time.Now()
	resp, err := s.fetcher.Fetch(ctx, pageURL, s.header)
	if err != nil {
		s.log.Warn("fetch failed", "url", pageURL, "error", err)
		return nil, asTransportError(pageURL, err)
	}
	if err := fetch.CheckStatus(resp); err != nil {
		s.log.Warn("unexpected status", "url", pageURL, "status", resp.StatusCode)
		return nil, err
	}
	s.log.Debug("fetched page", "url", pageURL, "bytes", len(resp.Body), "duration_ms", time.Since(start).Milliseconds())

	doc, err := extract.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		s.log.Error("parse failed", "url", pageURL, "error", err)
		return nil, err
	}
	return doc, nil
}

func (s *Service) structureChanged(ctx context.Context, symbol, pageURL string) {
	s.log.Warn("page has no tables", "symbol", symbol, "url", pageURL)
	ev := alert.Event{Kind: alert.KindStructureChanged, Symbol: symbol, URL: pageURL, At: time.Now().UTC()}
	if err := s.alerts.Publish(ctx, ev); err != nil {
		s.log.Error("alert publish failed", "symbol", symbol, "error", err)
	}
}

// asTransportError keeps a fetcher's own *TransportError and wraps anything
// else, so callers only ever see one transport failure type.
func asTransportError(pageURL string, err error) error {
	var terr *fetch.TransportError
	if errors.As(err, &terr) {
		return err
	}
	return &fetch.TransportError{URL: pageURL, Cause: err}
}
