package fetch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// Backoff returns the wait before retry attempt n (0-indexed), doubling from
// 500ms up to 10s with up to 50% jitter on top.
func Backoff(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// IsRetryable reports whether a fetch outcome is worth another attempt:
// transport failures, 429 and 5xx. A cancelled context never is.
func IsRetryable(resp *Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// Retrying wraps a Fetcher with bounded retries.
type Retrying struct {
	next    Fetcher
	retries int
	backoff func(attempt int) time.Duration
	log     *slog.Logger
}

// NewRetrying retries next up to retries extra times.
func NewRetrying(next Fetcher, retries int, log *slog.Logger) *Retrying {
	if log == nil {
		log = slog.Default()
	}
	return &Retrying{next: next, retries: retries, backoff: Backoff, log: log}
}

// Fetch implements Fetcher. The last outcome is returned once retries run
// out, so a final 503 still reaches the caller as a response.
func (r *Retrying) Fetch(ctx context.Context, url string, header http.Header) (*Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.next.Fetch(ctx, url, header)
		if attempt >= r.retries || !IsRetryable(resp, err) {
			return resp, err
		}

		wait := r.backoff(attempt)
		r.log.Warn("retrying fetch",
			"url", url,
			"attempt", attempt+1,
			"wait_ms", wait.Milliseconds(),
			"status", statusOf(resp),
			"error", err,
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &TransportError{URL: url, Cause: ctx.Err()}
		case <-t.C:
		}
	}
}

func statusOf(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
