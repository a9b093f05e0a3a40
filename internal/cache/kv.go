package cache

import "errors"

// ErrNotFound is returned by KV.Get when the key is absent.
var ErrNotFound = errors.New("cache: not found")

// KV is the persistent key-value store the cache is built on. It offers
// single-key operations plus enumeration; no atomicity across keys is
// promised. Implementations must be safe for concurrent use.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	// DeleteMany removes keys in one batch. Missing keys are ignored.
	DeleteMany(keys []string) error
}
