// Package retry re-issues failed or throttled requests with backoff.
//
// A logical request moves through Attempt(0), Attempt(1), ... until it
// either succeeds (2xx), hits a terminal outcome, or uses up MaxRetries
// attempts. Callers see one call: the final response or error is the last
// one observed.
package retry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/leonardcser/ghpanel/internal/clock"
	"github.com/leonardcser/ghpanel/internal/logger"
	"github.com/leonardcser/ghpanel/internal/transport"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
)

// Policy decides whether and when a request is re-issued.
type Policy struct {
	// MaxRetries bounds the number of attempts of one logical request.
	MaxRetries int
	// InitialDelay is the base of the exponential backoff.
	InitialDelay time.Duration
	// Clock drives sleeps and Retry-After arithmetic.
	Clock clock.Clock
}

// New returns a policy with the given limits and the real clock.
func New(maxRetries int, initialDelay time.Duration) *Policy {
	return &Policy{MaxRetries: maxRetries, InitialDelay: initialDelay, Clock: clock.Real()}
}

// Default returns the 3 attempts / 1s policy.
func Default() *Policy { return New(DefaultMaxRetries, DefaultInitialDelay) }

// Do runs req through doer until it succeeds or a terminal outcome is
// reached. On failure it returns either the last non-2xx response with a
// nil error, or the last transport error. A cancelled ctx stops waiting
// between attempts and returns ctx.Err().
func (p *Policy) Do(ctx context.Context, doer transport.Doer, req *transport.Request) (*transport.Response, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	clk := p.clock()

	for attempt := 0; ; attempt++ {
		resp, err := doer.Do(ctx, req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		if !p.ShouldRetry(resp, err, attempt) {
			return resp, err
		}

		delay := p.Delay(resp, attempt)
		if err != nil {
			logger.Warnf("%s %s failed (%v), retrying in %v (attempt %d/%d)", req.Method, req.URL, err, delay, attempt+1, maxRetries)
		} else {
			logger.Warnf("%s %s returned %d, retrying in %v (attempt %d/%d)", req.Method, req.URL, resp.StatusCode, delay, attempt+1, maxRetries)
		}

		select {
		case <-clk.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// ShouldRetry reports whether the outcome of attempt (0-based) is eligible
// for another attempt. Network failures, 429 and 5xx are eligible; timeouts
// and other 4xx are terminal.
func (p *Policy) ShouldRetry(resp *transport.Response, err error, attempt int) bool {
	maxRetries := p.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	if attempt+1 >= maxRetries {
		return false
	}
	if err != nil {
		var te *transport.Error
		if errors.As(err, &te) {
			return te.Kind == transport.KindNetwork
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// Delay returns how long to wait after attempt (0-based) before the next
// one. For 429 responses Retry-After wins, then X-RateLimit-Reset, then
// exponential backoff.
func (p *Policy) Delay(resp *transport.Response, attempt int) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if d, ok := rateLimitDelay(resp.Header, p.clock().Now()); ok {
			return d
		}
	}
	return p.Backoff(attempt)
}

// Backoff returns InitialDelay * 2^attempt.
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return p.InitialDelay * time.Duration(1<<attempt)
}

func (p *Policy) clock() clock.Clock {
	if p.Clock == nil {
		return clock.Real()
	}
	return p.Clock
}

func rateLimitDelay(header http.Header, now time.Time) (time.Duration, bool) {
	if v := header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, true
		}
	}
	if v := header.Get("X-RateLimit-Reset"); v != "" {
		if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
			d := time.Unix(reset, 0).Sub(now)
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return 0, false
}
