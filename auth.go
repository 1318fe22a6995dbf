package storefront

import (
	"context"

	"github.com/MrEthical07/storefront/api"
	"github.com/MrEthical07/storefront/jwt"
)

// AuthResult describes the session established by a sign-in.
type AuthResult struct {
	Claims jwt.Claims
	// RequiresSetup is set when the account must complete its profile, e.g. a guest
	// that has not chosen credentials.
	RequiresSetup bool
}

// establish installs tokens minted for a new identity. The previous identity's
// checkout attempt is discarded and the cart reloaded for the new one.
func (c *Client) establish(ctx context.Context, tokens api.Tokens, err error) (AuthResult, error) {
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.emit(ctx, Event{Type: EventLogin, Error: err.Error()})
		return AuthResult{}, err
	}
	if err := c.session.SetTokens(ctx, tokens.Session()); err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.emit(ctx, Event{Type: EventLogin, Error: err.Error()})
		return AuthResult{}, err
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.emitFromClaims(ctx, EventLogin, true, nil)
	c.checkout.ResetCheckout()
	c.cart.FetchCart(ctx)
	return AuthResult{Claims: c.session.Claims(), RequiresSetup: tokens.RequiresSetup}, nil
}

// Login signs in with an email and password.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	tokens, err := c.api.Login(ctx, email, password)
	return c.establish(ctx, tokens, err)
}

// LoginAsGuest opens a guest account so an anonymous visitor can check out.
func (c *Client) LoginAsGuest(ctx context.Context) (AuthResult, error) {
	tokens, err := c.api.LoginAsGuest(ctx)
	return c.establish(ctx, tokens, err)
}

// Register asks the API to send a confirmation code to email.
func (c *Client) Register(ctx context.Context, email string) error {
	return c.api.Register(ctx, email)
}

// RegisterConfirm completes registration and signs in.
func (c *Client) RegisterConfirm(ctx context.Context, email, password, code string) (AuthResult, error) {
	tokens, err := c.api.RegisterConfirm(ctx, email, password, code)
	return c.establish(ctx, tokens, err)
}

// RequestPasswordReset asks the API to email a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.api.RequestPasswordReset(ctx, email)
}

// ConfirmPasswordReset sets a new password and signs in with it.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, password, code string) (AuthResult, error) {
	tokens, err := c.api.ConfirmPasswordReset(ctx, email, password, code)
	return c.establish(ctx, tokens, err)
}

// UpdateCredentials changes the signed-in account's email and password. The identity
// is unchanged, so cart and checkout are kept.
func (c *Client) UpdateCredentials(ctx context.Context, email, password string) (AuthResult, error) {
	tokens, err := c.api.UpdateCredentials(ctx, email, password)
	if err != nil {
		return AuthResult{}, err
	}
	if err := c.session.SetTokens(ctx, tokens.Session()); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Claims: c.session.Claims(), RequiresSetup: tokens.RequiresSetup}, nil
}

// Logout revokes the refresh token server-side when possible, then always clears
// the local session, the cart mirror and the checkout attempt.
func (c *Client) Logout(ctx context.Context) {
	snap := c.store.Snapshot()
	if snap.RefreshToken != "" {
		if err := c.api.Logout(ctx, snap.RefreshToken); err != nil {
			c.logger.DebugContext(ctx, "server logout failed", "error", err)
		}
	}

	c.emitFromClaims(ctx, EventLogout, true, nil)
	c.session.ClearTokens(ctx)
	c.cart.Clear()
	c.checkout.ResetCheckout()
	c.metrics.Inc(MetricLogout)
}
