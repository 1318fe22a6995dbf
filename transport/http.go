package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout applies when HTTPConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// HTTPConfig configures [HTTP].
type HTTPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// RoundTripper replaces the default HTTP transport when set.
	RoundTripper http.RoundTripper
}

// HTTP is a [Transport] over a resty client. One timeout applies to every request.
type HTTP struct {
	client *resty.Client
}

// NewHTTP returns an HTTP transport for cfg.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.RoundTripper != nil {
		c.SetTransport(cfg.RoundTripper)
	}
	return &HTTP{client: c}
}

// Do sends req and returns the response regardless of status code.
func (h *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	r := h.client.R().SetContext(ctx)
	if len(req.Header) > 0 {
		r.SetHeaderMultiValues(req.Header)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, classify(err)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
