package cache

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/leonardcser/ghpanel/internal/codec"
	"github.com/leonardcser/ghpanel/internal/logger"
)

// Listen removes a stale socket at path and listens on it with owner-only
// permissions.
func Listen(path string) (net.Listener, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return l, nil
}

// Serve accepts connections on l and answers requests against kv until l
// is closed.
func Serve(l net.Listener, kv KV) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("cache daemon accept: %v", err)
			continue
		}
		go HandleConn(conn, kv)
	}
}

// HandleConn serves requests on conn until the peer disconnects.
func HandleConn(conn net.Conn, kv KV) {
	defer conn.Close()
	dec := codec.NewDecoder(conn)
	enc := codec.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debugf("cache daemon decode: %v", err)
			}
			return
		}
		if err := enc.Encode(handle(kv, req)); err != nil {
			return
		}
	}
}

func handle(kv KV, req Request) Response {
	switch req.Op {
	case OpGet:
		v, err := kv.Get(req.Key)
		if errors.Is(err, ErrNotFound) {
			return Response{NotFound: true}
		}
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Value: v}
	case OpSet:
		return result(kv.Set(req.Key, req.Value))
	case OpDelete:
		return result(kv.Delete(req.Key))
	case OpKeys:
		keys, err := kv.Keys()
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Keys: keys}
	case OpDeleteMany:
		return result(kv.DeleteMany(req.Keys))
	default:
		return Response{Error: "unknown op"}
	}
}

func result(err error) Response {
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{OK: true}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
