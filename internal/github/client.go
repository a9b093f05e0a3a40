// Package github is an authenticated, typed GET client for the GitHub REST
// API. Every call goes through a retry policy; terminal failures surface as
// *APIError, never as empty results.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/leonardcser/ghpanel/internal/retry"
	"github.com/leonardcser/ghpanel/internal/transport"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	acceptV3      = "application/vnd.github.v3+json"
	acceptInertia = "application/vnd.github.inertia-preview+json"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Token is the credential. It may be empty and set later with
	// SetCredential; until then every call returns ErrNotConfigured.
	Token string

	// Doer performs single HTTP calls. Required.
	Doer transport.Doer

	// Policy retries failed calls. Defaults to retry.Default().
	Policy *retry.Policy
}

// Client is the authenticated API façade.
type Client struct {
	baseURL string
	doer    transport.Doer
	policy  *retry.Policy

	mu    sync.RWMutex
	token string
}

// RequestOptions customizes one GET.
type RequestOptions struct {
	// Header values override the default headers.
	Header http.Header
	// Query is appended to the path.
	Query url.Values
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Doer == nil {
		return nil, fmt.Errorf("github: transport is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	policy := cfg.Policy
	if policy == nil {
		policy = retry.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    cfg.Doer,
		policy:  policy,
		token:   cfg.Token,
	}, nil
}

// SetCredential replaces the credential for calls started afterwards.
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// HasCredential reports whether a credential is set.
func (c *Client) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Get fetches path and decodes the JSON body into out. path may be
// absolute or relative to the base URL.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions, out any) error {
	// The credential is captured once so that retries of this call keep
	// using it even if it is rotated meanwhile.
	token := c.credential()
	if token == "" {
		return ErrNotConfigured
	}

	req := &transport.Request{
		Method: http.MethodGet,
		URL:    c.resolve(path, opts),
		Header: c.headers(token, opts),
	}
	resp, err := c.policy.Do(ctx, c.doer, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if transport.IsTimeout(err) {
			return &APIError{StatusCode: http.StatusRequestTimeout, Message: "Request timeout", Kind: KindTimeout}
		}
		return &APIError{Message: err.Error(), Kind: KindNetworkFailure}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIErrorFromBody(resp.StatusCode, resp.Body)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("github: decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) resolve(path string, opts *RequestOptions) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u = c.baseURL + path
	}
	if opts != nil && len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + opts.Query.Encode()
	}
	return u
}

func (c *Client) headers(token string, opts *RequestOptions) http.Header {
	h := http.Header{}
	h.Set("Authorization", "token "+token)
	h.Set("Accept", acceptV3)
	h.Set("Content-Type", "application/json")
	if opts != nil {
		for k, vs := range opts.Header {
			h.Del(k)
			for _, v := range vs {
				h.Add(k, v)
			}
		}
	}
	return h
}
