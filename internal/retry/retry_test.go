package retry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leonardcser/ghpanel/internal/clock"
	"github.com/leonardcser/ghpanel/internal/transport"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// scriptedDoer replays outcomes in order, repeating the last one.
type scriptedDoer struct {
	mu       sync.Mutex
	outcomes []outcome
	calls    int
}

type outcome struct {
	resp *transport.Response
	err  error
}

func (d *scriptedDoer) Do(_ context.Context, _ *transport.Request) (*transport.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	if i >= len(d.outcomes) {
		i = len(d.outcomes) - 1
	}
	d.calls++
	return d.outcomes[i].resp, d.outcomes[i].err
}

func (d *scriptedDoer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func status(code int, header http.Header) outcome {
	if header == nil {
		header = http.Header{}
	}
	return outcome{resp: &transport.Response{StatusCode: code, Header: header, Body: []byte(`{"message":"` + http.StatusText(code) + `"}`)}}
}

func retryAfter(seconds int) http.Header {
	h := http.Header{}
	h.Set("Retry-After", strconv.Itoa(seconds))
	return h
}

type result struct {
	resp *transport.Response
	err  error
}

func run(p *Policy, d transport.Doer) <-chan result {
	ch := make(chan result, 1)
	go func() {
		resp, err := p.Do(context.Background(), d, &transport.Request{Method: http.MethodGet, URL: "https://api.github.com/user"})
		ch <- result{resp, err}
	}()
	return ch
}

func TestRetryAfterIsHonouredAndLastErrorReturned(t *testing.T) {
	fake := clock.Fake(epoch)
	p := &Policy{MaxRetries: 3, InitialDelay: time.Second, Clock: fake}
	d := &scriptedDoer{outcomes: []outcome{status(http.StatusTooManyRequests, retryAfter(2))}}

	done := run(p, d)
	for wait := 1; wait <= 2; wait++ {
		fake.WaitForTimers(1)
		require.Equal(t, wait, d.Calls())

		// Just short of Retry-After the next attempt must not start.
		fake.Advance(1999 * time.Millisecond)
		require.Equal(t, 1, fake.PendingCount())
		require.Equal(t, wait, d.Calls())

		fake.Advance(time.Millisecond)
	}

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, http.StatusTooManyRequests, res.resp.StatusCode)
	require.Equal(t, 3, d.Calls())
	require.Zero(t, fake.PendingCount())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	p := &Policy{MaxRetries: 3, InitialDelay: time.Second, Clock: clock.Fake(epoch)}
	d := &scriptedDoer{outcomes: []outcome{status(http.StatusNotFound, nil)}}

	res := <-run(p, d)
	require.NoError(t, res.err)
	require.Equal(t, http.StatusNotFound, res.resp.StatusCode)
	require.Equal(t, 1, d.Calls())
}

func TestServerErrorBacksOffExponentially(t *testing.T) {
	fake := clock.Fake(epoch)
	p := &Policy{MaxRetries: 3, InitialDelay: time.Second, Clock: fake}
	d := &scriptedDoer{outcomes: []outcome{
		status(http.StatusBadGateway, nil),
		status(http.StatusServiceUnavailable, nil),
		{resp: &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}},
	}}

	done := run(p, d)
	fake.WaitForTimers(1)
	fake.Advance(999 * time.Millisecond)
	require.Equal(t, 1, d.Calls())
	fake.Advance(time.Millisecond)

	fake.WaitForTimers(1)
	fake.Advance(1999 * time.Millisecond)
	require.Equal(t, 2, d.Calls())
	fake.Advance(time.Millisecond)

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, http.StatusOK, res.resp.StatusCode)
	require.Equal(t, 3, d.Calls())
}

func TestNetworkFailureRetriedAndLastErrorSurfaced(t *testing.T) {
	p := &Policy{MaxRetries: 3, InitialDelay: 0, Clock: clock.Fake(epoch)}
	first := &transport.Error{Kind: transport.KindNetwork, Err: errors.New("connection reset")}
	last := &transport.Error{Kind: transport.KindNetwork, Err: errors.New("connection refused")}
	d := &scriptedDoer{outcomes: []outcome{{err: first}, {err: first}, {err: last}}}

	res := <-run(p, d)
	require.Nil(t, res.resp)
	require.ErrorIs(t, res.err, last)
	require.Equal(t, 3, d.Calls())
}

func TestTimeoutIsTerminal(t *testing.T) {
	p := &Policy{MaxRetries: 3, InitialDelay: 0, Clock: clock.Fake(epoch)}
	d := &scriptedDoer{outcomes: []outcome{{err: &transport.Error{Kind: transport.KindTimeout}}}}

	res := <-run(p, d)
	require.True(t, transport.IsTimeout(res.err))
	require.Equal(t, 1, d.Calls())
}

func TestCancelledContextStopsWaiting(t *testing.T) {
	fake := clock.Fake(epoch)
	p := &Policy{MaxRetries: 3, InitialDelay: time.Minute, Clock: fake}
	d := &scriptedDoer{outcomes: []outcome{status(http.StatusInternalServerError, nil)}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Do(ctx, d, &transport.Request{URL: "https://api.github.com/user"})
		done <- err
	}()
	fake.WaitForTimers(1)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, 1, d.Calls())
}

func TestDelay(t *testing.T) {
	fake := clock.Fake(epoch)
	p := &Policy{MaxRetries: 3, InitialDelay: time.Second, Clock: fake}

	tests := []struct {
		name    string
		resp    *transport.Response
		attempt int
		want    time.Duration
	}{
		{"network error first retry", nil, 0, time.Second},
		{"server error second retry", &transport.Response{StatusCode: 500}, 1, 2 * time.Second},
		{"server error ignores Retry-After", &transport.Response{StatusCode: 503, Header: retryAfter(9)}, 2, 4 * time.Second},
		{"429 with Retry-After", &transport.Response{StatusCode: 429, Header: retryAfter(2)}, 2, 2 * time.Second},
		{"429 with reset", &transport.Response{StatusCode: 429, Header: http.Header{
			"X-Ratelimit-Reset": {strconv.FormatInt(epoch.Add(30*time.Second).Unix(), 10)},
		}}, 0, 30 * time.Second},
		{"429 with reset in the past", &transport.Response{StatusCode: 429, Header: http.Header{
			"X-Ratelimit-Reset": {strconv.FormatInt(epoch.Add(-time.Hour).Unix(), 10)},
		}}, 0, 0},
		{"429 without headers", &transport.Response{StatusCode: 429, Header: http.Header{}}, 1, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, p.Delay(tt.resp, tt.attempt))
		})
	}
}

func TestShouldRetryStopsAtBudget(t *testing.T) {
	p := &Policy{MaxRetries: 3}
	server := &transport.Response{StatusCode: 500}
	require.True(t, p.ShouldRetry(server, nil, 0))
	require.True(t, p.ShouldRetry(server, nil, 1))
	require.False(t, p.ShouldRetry(server, nil, 2))
	require.False(t, p.ShouldRetry(&transport.Response{StatusCode: 401}, nil, 0))
	require.True(t, p.ShouldRetry(&transport.Response{StatusCode: 429}, nil, 0))
}
