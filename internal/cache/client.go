package cache

import (
	"errors"
	"net"
	"time"

	"github.com/leonardcser/ghpanel/internal/codec"
)

// Client implements KV over the cache daemon's Unix socket.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Ping checks that the daemon accepts connections.
func (c *Client) Ping() error {
	conn, err := net.DialTimeout("unix", c.socketPath, 200*time.Millisecond)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (c *Client) roundTrip(req Request) (Response, error) {
	var resp Response
	conn, err := net.DialTimeout("unix", c.socketPath, 500*time.Millisecond)
	if err != nil {
		return resp, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := codec.NewEncoder(conn).Encode(&req); err != nil {
		return resp, err
	}
	if err := codec.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, err
	}
	if resp.NotFound {
		return resp, ErrNotFound
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func (c *Client) Get(key string) ([]byte, error) {
	resp, err := c.roundTrip(Request{Op: OpGet, Key: key})
	if err != nil {
		return nil, err
	}
	return append([]byte{}, resp.Value...), nil
}

func (c *Client) Set(key string, value []byte) error {
	_, err := c.roundTrip(Request{Op: OpSet, Key: key, Value: value})
	return err
}

func (c *Client) Delete(key string) error {
	_, err := c.roundTrip(Request{Op: OpDelete, Key: key})
	return err
}

func (c *Client) Keys() ([]string, error) {
	resp, err := c.roundTrip(Request{Op: OpKeys})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) DeleteMany(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.roundTrip(Request{Op: OpDeleteMany, Keys: keys})
	return err
}
