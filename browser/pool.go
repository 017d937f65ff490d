// Package browser renders pages in headless Chrome for layouts that are
// built client-side.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"stockscraper/fetch"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ErrClosed is returned by Fetch after Shutdown.
var ErrClosed = errors.New("browser pool is shut down")

// Options configures a Pool.
type Options struct {
	MinSize   int
	MaxSize   int
	UserAgent string
	// Settle is how long to wait after navigation for scripts to render.
	Settle time.Duration
	Logger *slog.Logger
}

// Pool hands out browser tabs. MinSize tabs are opened on first use and more
// are added on demand up to MaxSize. Pool implements fetch.Fetcher.
type Pool struct {
	opts Options
	log  *slog.Logger

	initOnce    sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu      sync.Mutex
	idle    chan context.Context
	cancels map[context.Context]context.CancelFunc
	closed  bool
}

// New creates a pool; no browser starts until the first Fetch.
func New(opts Options) *Pool {
	opts = normalize(opts)
	return &Pool{
		opts:    opts,
		log:     opts.Logger,
		idle:    make(chan context.Context, opts.MaxSize),
		cancels: make(map[context.Context]context.CancelFunc),
	}
}

func normalize(opts Options) Options {
	if opts.MinSize < 1 {
		opts.MinSize = 1
	}
	if opts.MaxSize < opts.MinSize {
		opts.MaxSize = opts.MinSize
	}
	if opts.Settle <= 0 {
		opts.Settle = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = fetch.DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

func (p *Pool) initialize() {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(p.opts.UserAgent),
	)
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < p.opts.MinSize; i++ {
		tab, err := p.newTabLocked()
		if err != nil {
			p.log.Error("browser tab start failed", "error", err)
			continue
		}
		p.idle <- tab
	}
	p.log.Info("browser pool initialized", "tabs", len(p.cancels), "min", p.opts.MinSize, "max", p.opts.MaxSize)
}

// newTabLocked opens a tab. p.mu must be held.
func (p *Pool) newTabLocked() (context.Context, error) {
	tab, cancel := chromedp.NewContext(p.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	if err := chromedp.Run(tab, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser tab: %w", err)
	}
	p.cancels[tab] = cancel
	return tab, nil
}

// acquire returns an idle tab, opens a new one while below MaxSize, or
// waits for one to come back.
func (p *Pool) acquire(ctx context.Context) (context.Context, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	p.initOnce.Do(p.initialize)

	for {
		select {
		case tab := <-p.idle:
			return tab, nil
		default:
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if len(p.cancels) < p.opts.MaxSize {
			tab, err := p.newTabLocked()
			p.mu.Unlock()
			return tab, err
		}
		p.mu.Unlock()

		select {
		case tab := <-p.idle:
			return tab, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// release resets a healthy tab and puts it back; a broken one is closed.
func (p *Pool) release(tab context.Context, healthy bool) {
	if healthy {
		resetCtx, cancel := context.WithTimeout(tab, 3*time.Second)
		healthy = chromedp.Run(resetCtx,
			network.ClearBrowserCookies(),
			chromedp.Navigate("about:blank"),
		) == nil
		cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if healthy && !p.closed {
		select {
		case p.idle <- tab:
			return
		default:
		}
	}
	if cancel, ok := p.cancels[tab]; ok {
		cancel()
		delete(p.cancels, tab)
	}
}

// Fetch implements fetch.Fetcher by loading url in a tab and returning the
// rendered document. Header values other than User-Agent, which is fixed per
// browser, are sent as extra request headers.
func (p *Pool) Fetch(ctx context.Context, url string, header http.Header) (*fetch.Response, error) {
	tab, err := p.acquire(ctx)
	if err != nil {
		return nil, &fetch.TransportError{URL: url, Cause: fmt.Errorf("failed to get browser tab: %w", err)}
	}

	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	status, body, err := p.render(runCtx, url, header)
	p.release(tab, err == nil)
	if err != nil {
		return nil, &fetch.TransportError{URL: url, Cause: err}
	}
	return &fetch.Response{URL: url, StatusCode: status, Body: []byte(body)}, nil
}

// render navigates to url and returns the document status and outer HTML.
func (p *Pool) render(ctx context.Context, url string, header http.Header) (int, string, error) {
	extra := network.Headers{}
	for k := range header {
		switch http.CanonicalHeaderKey(k) {
		case "User-Agent", "Accept-Encoding":
			continue
		}
		extra[k] = header.Get(k)
	}

	if err := chromedp.Run(ctx, network.Enable(), network.SetExtraHTTPHeaders(extra)); err != nil {
		return 0, "", fmt.Errorf("set headers: %w", err)
	}

	resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(url))
	if err != nil {
		return 0, "", fmt.Errorf("navigate: %w", err)
	}
	status := http.StatusOK
	if resp != nil {
		status = int(resp.Status)
	}

	var html string
	if err := chromedp.Run(ctx,
		chromedp.Sleep(p.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return 0, "", fmt.Errorf("read document: %w", err)
	}
	p.log.Debug("rendered page", "url", url, "status", status, "bytes", len(html))
	return status, html, nil
}

// Shutdown closes every tab and the browser process.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for tab, cancel := range p.cancels {
		cancel()
		delete(p.cancels, tab)
	}
	for len(p.idle) > 0 {
		<-p.idle
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	p.log.Info("browser pool shut down")
}
