package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/leonardcser/ghpanel/internal/logger"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultParallelism = 4
	MaxResponseSize    = 10 * 1024 * 1024 // 10MB

	responseKey = "ghpanel.response"
)

// Request is a single HTTP call. Only GET is used by the dashboard.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is returned for every status code; deciding whether a status
// is an error belongs to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RateLimit  RateLimitStatus
}

// Doer executes one request.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ErrorKind classifies a failure that produced no response.
type ErrorKind int

const (
	// KindNetwork is any transport-level failure other than a timeout.
	KindNetwork ErrorKind = iota
	// KindTimeout means no response arrived within the request timeout.
	KindTimeout
)

// Error is returned by Do when no response was received.
type Error struct {
	Kind   ErrorKind
	Method string
	URL    string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindTimeout {
		return fmt.Sprintf("transport: %s %s: request timeout", e.Method, e.URL)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindTimeout
}

// Options configures a Transport.
type Options struct {
	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration
	// Parallelism caps concurrent requests per host. Defaults to 4.
	Parallelism int
	// UserAgent is sent on every request.
	UserAgent string
}

// Transport performs HTTP calls through a colly collector. The collector is
// synchronous: Do returns after the response callback has run.
type Transport struct {
	c *colly.Collector
}

func New(opts Options) (*Transport, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(MaxResponseSize),
	)
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: opts.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("transport: limit rule: %w", err)
	}
	c.SetRequestTimeout(opts.Timeout)
	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})
	return &Transport{c: c}, nil
}

// Do performs exactly one request. Only the request timeout can end it
// early; ctx is checked before the request is issued.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	start := time.Now()
	cctx := colly.NewContext()
	if err := t.c.Request(method, req.URL, body, cctx, req.Header.Clone()); err != nil {
		kind := KindNetwork
		if isTimeout(err) {
			kind = KindTimeout
		}
		logger.Debugf("%s %s failed after %v: %v", method, req.URL, time.Since(start), err)
		return nil, &Error{Kind: kind, Method: method, URL: req.URL, Err: err}
	}

	r, ok := cctx.GetAny(responseKey).(*colly.Response)
	if !ok || r == nil {
		return nil, &Error{Kind: KindNetwork, Method: method, URL: req.URL, Err: errors.New("no response received")}
	}
	header := http.Header{}
	if r.Headers != nil {
		header = r.Headers.Clone()
	}
	logger.Debugf("%s %s -> %d in %v", method, req.URL, r.StatusCode, time.Since(start))
	return &Response{
		StatusCode: r.StatusCode,
		Header:     header,
		Body:       r.Body,
		RateLimit:  ParseRateLimit(header),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}
