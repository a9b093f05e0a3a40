package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leonardcser/ghpanel/internal/clock"
	"github.com/leonardcser/ghpanel/internal/logger"
)

// DefaultNamespace prefixes every key the Cache writes.
const DefaultNamespace = "ghpanel_cache_"

// ErrNegativeTTL is returned by Set for a ttl below zero.
var ErrNegativeTTL = errors.New("cache: negative ttl")

// Entry is the stored form of a cached value. Timestamp and TTL are in
// milliseconds.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// Cache is a TTL cache over a KV. Expiry is evaluated on read: an expired
// entry is deleted and reported as a miss. Writers to the same key are not
// synchronized; the last write wins.
type Cache struct {
	kv     KV
	prefix string
	clock  clock.Clock
}

// Option configures a Cache.
type Option func(*Cache)

// WithNamespace sets the key prefix.
func WithNamespace(prefix string) Option { return func(c *Cache) { c.prefix = prefix } }

// WithClock sets the clock used for timestamps and expiry.
func WithClock(clk clock.Clock) Option { return func(c *Cache) { c.clock = clk } }

func New(kv KV, opts ...Option) *Cache {
	c := &Cache{kv: kv, prefix: DefaultNamespace, clock: clock.Real()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Set stores data under key for ttl.
func (c *Cache) Set(key string, data any, ttl time.Duration) error {
	if ttl < 0 {
		return ErrNegativeTTL
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", key, err)
	}
	b, err := json.Marshal(Entry{
		Data:      raw,
		Timestamp: c.clock.Now().UnixMilli(),
		TTL:       ttl.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", key, err)
	}
	return c.kv.Set(c.key(key), b)
}

// Get decodes the live entry for key into out. It reports false on a miss,
// deleting the entry first if it has expired or cannot be decoded.
func (c *Cache) Get(key string, out any) (bool, error) {
	b, err := c.kv.Get(c.key(key))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var entry Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		logger.Warnf("cache: dropping corrupt entry %s: %v", key, err)
		return false, c.kv.Delete(c.key(key))
	}
	age := c.clock.Now().UnixMilli() - entry.Timestamp
	if age > entry.TTL {
		logger.Debugf("cache: %s expired (age %dms > ttl %dms)", key, age, entry.TTL)
		return false, c.kv.Delete(c.key(key))
	}
	if out != nil {
		if err := json.Unmarshal(entry.Data, out); err != nil {
			logger.Warnf("cache: dropping undecodable entry %s: %v", key, err)
			return false, c.kv.Delete(c.key(key))
		}
	}
	return true, nil
}

// GetAs is Get for callers that want the value returned.
func GetAs[T any](c *Cache, key string) (T, bool, error) {
	var v T
	ok, err := c.Get(key, &v)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// Has reports whether a live entry exists. It is a full read and evicts an
// expired entry.
func (c *Cache) Has(key string) (bool, error) {
	return c.Get(key, nil)
}

// Delete removes key regardless of expiry.
func (c *Cache) Delete(key string) error {
	return c.kv.Delete(c.key(key))
}

// ClearAll removes every key in the namespace in one batch. Other keys in
// the store are left alone.
func (c *Cache) ClearAll() error {
	keys, err := c.kv.Keys()
	if err != nil {
		return fmt.Errorf("cache: listing keys: %w", err)
	}
	var ours []string
	for _, k := range keys {
		if strings.HasPrefix(k, c.prefix) {
			ours = append(ours, k)
		}
	}
	if len(ours) == 0 {
		return nil
	}
	if err := c.kv.DeleteMany(ours); err != nil {
		return fmt.Errorf("cache: clearing %d keys: %w", len(ours), err)
	}
	logger.Infof("cache: cleared %d entries", len(ours))
	return nil
}
