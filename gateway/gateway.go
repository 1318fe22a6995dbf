package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/storefront/transport"
	"github.com/google/uuid"
)

// ErrUnauthorized is returned when a request is still rejected after a forced refresh.
var ErrUnauthorized = errors.New("unauthorized")

// HeaderRequestID correlates the original request and its retry in server logs.
const HeaderRequestID = "X-Request-ID"

// Credentials is the part of the session manager the gateway needs.
type Credentials interface {
	EnsureValidToken(ctx context.Context) (string, bool)
	ForceRefresh(ctx context.Context, rejected string) (string, bool)
}

// Hooks observe gateway outcomes. Nil fields are skipped.
type Hooks struct {
	// Completed fires once per Send with the final status (0 on transport error).
	Completed   func(status int, elapsed time.Duration, err error)
	AuthRetried func()
	AuthFailed  func()
}

// Gateway attaches credentials to requests.
type Gateway struct {
	next   transport.Transport
	creds  Credentials
	logger *slog.Logger
	hooks  Hooks
}

// New returns a Gateway sending through next.
func New(next transport.Transport, creds Credentials, logger *slog.Logger, hooks Hooks) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{next: next, creds: creds, logger: logger, hooks: hooks}
}

// Do implements [transport.Transport] so the gateway can stand in for a transport.
func (g *Gateway) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return g.Send(ctx, req)
}

// Send dispatches req with the current credential. req is not modified.
//
// Non-2xx responses other than 401 are returned as responses, not errors.
func (g *Gateway) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	start := time.Now()
	resp, err := g.send(ctx, req)
	if g.hooks.Completed != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		g.hooks.Completed(status, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	out := req.Clone()
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	token, ok := g.creds.EnsureValidToken(ctx)
	setBearer(out, token, ok)

	resp, err := g.next.Do(ctx, out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	retryToken, ok := g.creds.ForceRefresh(ctx, token)
	if !ok {
		g.authFailed(out, "no credential after forced refresh")
		return resp, ErrUnauthorized
	}
	if g.hooks.AuthRetried != nil {
		g.hooks.AuthRetried()
	}

	setBearer(out, retryToken, true)
	resp, err = g.next.Do(ctx, out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		g.authFailed(out, "rejected after forced refresh")
		return resp, ErrUnauthorized
	}
	return resp, nil
}

func (g *Gateway) authFailed(req *transport.Request, reason string) {
	g.logger.Debug("storefront: request unauthorized",
		"method", req.Method,
		"path", req.Path,
		"request_id", req.Header.Get(HeaderRequestID),
		"reason", reason,
	)
	if g.hooks.AuthFailed != nil {
		g.hooks.AuthFailed()
	}
}

func setBearer(req *transport.Request, token string, ok bool) {
	if ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		return
	}
	req.Header.Del("Authorization")
}
