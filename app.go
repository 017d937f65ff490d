package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"stockscraper/alert"
	"stockscraper/browser"
	"stockscraper/config"
	"stockscraper/extract"
	"stockscraper/fetch"
	"stockscraper/stock"

	"github.com/go-redis/redis/v8"
)

// app holds everything a command needs, built from one Config.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	service *stock.Service
	closers []func()
}

func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(cfg config.Config) (*app, error) {
	log := cfg.Logger()
	slog.SetDefault(log)
	a := &app{cfg: cfg, log: log}

	var layout *extract.Layout
	if cfg.LayoutFile != "" {
		l, err := extract.LoadLayout(cfg.LayoutFile)
		if err != nil {
			return nil, err
		}
		layout = &l
		log.Info("loaded layout override", "file", cfg.LayoutFile)
	}

	var alerts alert.Publisher = alert.Nop{}
	if cfg.RedisAddr != "" {
		pub := alert.NewRedisPublisher(a.redisOptions(), cfg.AlertChannel)
		a.closers = append(a.closers, func() { _ = pub.Close() })
		alerts = pub
	}

	a.service = stock.NewService(a.newFetcher(), stock.Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Layout:    layout,
		Alerts:    alerts,
		Logger:    log,
	})
	return a, nil
}

func (a *app) newFetcher() fetch.Fetcher {
	var f fetch.Fetcher
	switch a.cfg.FetchMode {
	case config.FetchModeBrowser:
		pool := browser.New(browser.Options{
			MinSize:   a.cfg.BrowserPoolMin,
			MaxSize:   a.cfg.BrowserPoolMax,
			UserAgent: a.cfg.UserAgent,
			Logger:    a.log,
		})
		a.closers = append(a.closers, pool.Shutdown)
		f = withTimeout(pool, a.cfg.FetchTimeout)
	default:
		f = fetch.NewHTTPFetcher(a.cfg.FetchTimeout)
	}
	if a.cfg.FetchRetries > 0 {
		f = fetch.NewRetrying(f, a.cfg.FetchRetries, a.log)
	}
	a.log.Debug("fetcher ready", "mode", a.cfg.FetchMode, "retries", a.cfg.FetchRetries, "timeout", a.cfg.FetchTimeout)
	return f
}

func (a *app) redisOptions() *redis.Options {
	return &redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}
}

// Close releases resources in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withTimeout bounds each fetch through f.
func withTimeout(f fetch.Fetcher, d time.Duration) fetch.Fetcher {
	return fetch.FetcherFunc(func(ctx context.Context, url string, header http.Header) (*fetch.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return f.Fetch(ctx, url, header)
	})
}
