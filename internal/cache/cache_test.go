package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leonardcser/ghpanel/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type repo struct {
	Name  string `json:"name"`
	Stars int    `json:"stars"`
}

func newTestCache() (*Cache, *Memory, *clock.FakeClock) {
	kv := NewMemory()
	fake := clock.Fake(epoch)
	return New(kv, WithClock(fake)), kv, fake
}

func TestGetReturnsDataUntilTTL(t *testing.T) {
	c, _, fake := newTestCache()
	want := []repo{{"api", 3}, {"web", 1}}
	require.NoError(t, c.Set("repositories", want, 5*time.Minute))

	for _, at := range []time.Duration{0, time.Minute, 5 * time.Minute} {
		fake.Set(epoch.Add(at))
		got, ok, err := GetAs[[]repo](c, "repositories")
		require.NoError(t, err)
		require.True(t, ok, "at +%v", at)
		require.Equal(t, want, got)
	}
}

func TestExpiredEntryIsEvicted(t *testing.T) {
	c, kv, fake := newTestCache()
	require.NoError(t, c.Set("user", repo{Name: "octocat"}, 5*time.Minute))

	fake.Advance(5*time.Minute + time.Millisecond)
	var got repo
	ok, err := c.Get("user", &got)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, got.Name)

	_, err = kv.Get(DefaultNamespace + "user")
	require.ErrorIs(t, err, ErrNotFound, "expired entry must be deleted, not masked")

	// Any later read is still a miss.
	fake.Advance(time.Hour)
	ok, err = c.Has("user")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestZeroTTLLivesForTheSameMillisecond(t *testing.T) {
	c, _, fake := newTestCache()
	require.NoError(t, c.Set("k", 1, 0))

	ok, err := c.Has("k")
	require.NoError(t, err)
	require.True(t, ok)

	fake.Advance(time.Millisecond)
	ok, err = c.Has("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetRejectsNegativeTTL(t *testing.T) {
	c, _, _ := newTestCache()
	require.ErrorIs(t, c.Set("k", 1, -time.Second), ErrNegativeTTL)
}

func TestEntryLayout(t *testing.T) {
	c, kv, _ := newTestCache()
	require.NoError(t, c.Set("issues", []int{1, 2}, 300*time.Second))

	raw, err := kv.Get("ghpanel_cache_issues")
	require.NoError(t, err)
	require.JSONEq(t, `{"data":[1,2],"timestamp":1772366400000,"ttl":300000}`, string(raw))
}

func TestCorruptEntryIsDroppedAsMiss(t *testing.T) {
	c, kv, _ := newTestCache()
	require.NoError(t, kv.Set(DefaultNamespace+"user", []byte("not json")))

	ok, err := c.Has("user")
	require.NoError(t, err)
	require.False(t, ok)
	_, err = kv.Get(DefaultNamespace + "user")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIgnoresExpiry(t *testing.T) {
	c, _, _ := newTestCache()
	require.NoError(t, c.Set("projects", []string{"roadmap"}, time.Hour))
	require.NoError(t, c.Delete("projects"))

	ok, err := c.Has("projects")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearAllKeepsForeignKeys(t *testing.T) {
	c, kv, _ := newTestCache()
	require.NoError(t, c.Set("user", "octocat", time.Hour))
	require.NoError(t, c.Set("repositories", []string{"a"}, time.Hour))
	require.NoError(t, kv.Set("settings", []byte(`{"panels":[]}`)))
	require.NoError(t, kv.Set("token", []byte("ghp_x")))

	require.NoError(t, c.ClearAll())

	keys, err := kv.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"settings", "token"}, keys)
}

func TestNamespacesAreIsolated(t *testing.T) {
	kv := NewMemory()
	a := New(kv, WithNamespace("a_"))
	b := New(kv, WithNamespace("b_"))
	require.NoError(t, a.Set("user", "alice", time.Hour))
	require.NoError(t, b.Set("user", "bob", time.Hour))

	require.NoError(t, a.ClearAll())

	got, ok, err := GetAs[string](b, "user")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bob", got)
}
