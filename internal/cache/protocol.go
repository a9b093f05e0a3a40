package cache

// CBOR protocol for the cache daemon over a Unix domain socket.
// Requests and responses alternate on one connection until it is closed.

const (
	OpGet        = "get"
	OpSet        = "set"
	OpDelete     = "delete"
	OpKeys       = "keys"
	OpDeleteMany = "delete_many"
)

type Request struct {
	Op    string   `cbor:"op"`
	Key   string   `cbor:"key,omitempty"`
	Keys  []string `cbor:"keys,omitempty"`
	Value []byte   `cbor:"value,omitempty"`
}

type Response struct {
	OK       bool     `cbor:"ok"`
	NotFound bool     `cbor:"not_found,omitempty"`
	Value    []byte   `cbor:"value,omitempty"`
	Keys     []string `cbor:"keys,omitempty"`
	Error    string   `cbor:"error,omitempty"`
}
