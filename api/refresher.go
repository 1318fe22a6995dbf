package api

import (
	"context"
	"net/http"

	"github.com/MrEthical07/storefront/session"
	"github.com/MrEthical07/storefront/transport"
)

// Refresher implements [session.Refresher] against the refresh endpoint. It uses the
// bare transport: the refresh call must never wait on the refresh it performs.
type Refresher struct {
	client *Client
}

// NewRefresher returns a Refresher over t.
func NewRefresher(t transport.Transport) *Refresher {
	return &Refresher{client: New(t, t)}
}

// Refresh exchanges refreshToken for a rotated token pair.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	var out Tokens
	err := r.client.do(ctx, r.client.public, call{
		method: http.MethodPost,
		path:   PathRefreshToken,
		in:     map[string]string{"refresh_token": refreshToken},
		out:    &out,
	})
	if err != nil {
		return session.Tokens{}, err
	}
	return out.Session(), nil
}
