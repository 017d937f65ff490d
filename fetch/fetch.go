// Package fetch retrieves raw page bytes over HTTP the way a desktop browser
// would ask for them.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent when no other is configured. Some sources answer
// 403 to requests without a browser user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Response is a completed fetch. Any status code is a completed fetch; it is
// up to the caller to decide what a non-200 means.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, header http.Header) (*Response, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, url string, header http.Header) (*Response, error) {
	return f(ctx, url, header)
}

// TransportError reports a fetch that did not produce a usable page: the
// request failed outright, or the server answered with a non-200 status.
type TransportError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("fetch %s: received non-200 status code: %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// CheckStatus turns a non-200 response into a *TransportError.
func CheckStatus(resp *Response) error {
	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: resp.URL, StatusCode: resp.StatusCode}
	}
	return nil
}

// BrowserHeader returns the request headers of a desktop browser loading a
// top-level document.
func BrowserHeader(userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", AcceptEncoding)
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Cache-Control", "no-cache")
	return h
}

// HTTPFetcher fetches over plain HTTP and decodes compressed bodies.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Cause: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	return &Response{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}

