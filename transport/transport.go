package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

var (
	// ErrTimeout wraps requests that exceeded the configured timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork wraps requests that failed before a response arrived.
	ErrNetwork = errors.New("network error")
)

// Request is an outbound API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON; nil sends no body.
	Body []byte
}

// Clone returns a copy whose header and query can be modified independently.
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	if r.Query != nil {
		c.Query = url.Values{}
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// Response is an API response of any status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends requests.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to [Transport].
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
