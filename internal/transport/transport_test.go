package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, timeout time.Duration) *Transport {
	t.Helper()
	tr, err := New(Options{Timeout: timeout, UserAgent: "ghpanel-test"})
	require.NoError(t, err)
	return tr
}

func TestDoReturnsSuccessWithRateLimit(t *testing.T) {
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Used", "1")
		w.Header().Set("X-RateLimit-Reset", "1767225600")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, time.Second)
	resp, err := tr.Do(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    srv.URL + "/user",
		Header: http.Header{"Authorization": {"token abc"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"login":"octocat"}`, string(resp.Body))
	require.Equal(t, "token abc", gotAuth)
	require.Equal(t, "ghpanel-test", gotUA)
	require.Equal(t, RateLimitStatus{
		Limit:     5000,
		Remaining: 4999,
		Used:      1,
		ResetAt:   time.Unix(1767225600, 0),
	}, resp.RateLimit)
}

func TestDoReturnsErrorStatusesAsResponses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))

		resp, err := newTestTransport(t, time.Second).Do(context.Background(), &Request{URL: srv.URL})
		srv.Close()

		require.NoError(t, err, "status %d", status)
		require.Equal(t, status, resp.StatusCode)
		require.Equal(t, `{"message":"nope"}`, string(resp.Body))
		require.Zero(t, resp.RateLimit.Limit)
	}
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestTransport(t, 50*time.Millisecond).Do(context.Background(), &Request{URL: srv.URL})
	require.Error(t, err)
	require.True(t, IsTimeout(err), "got %v", err)
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestTransport(t, time.Second).Do(context.Background(), &Request{URL: url})
	var te *Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, KindNetwork, te.Kind)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestTransport(t, time.Second).Do(ctx, &Request{URL: "http://127.0.0.1:1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseRateLimitDefaultsMissingFields(t *testing.T) {
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "12")
	h.Set("X-RateLimit-Limit", "garbage")

	got := ParseRateLimit(h)
	require.Equal(t, 12, got.Remaining)
	require.Zero(t, got.Limit)
	require.Zero(t, got.Used)
	require.True(t, got.ResetAt.IsZero())
}
