package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/permission"
	"github.com/MrEthical07/storefront/tokenstore"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidCredential is returned by SetTokens when the access token cannot be decoded.
var ErrInvalidCredential = errors.New("invalid credential")

// DefaultExpiryBuffer is how long before expiry an access token is treated as stale.
const DefaultExpiryBuffer = 60 * time.Second

const refreshKey = "refresh"

// Reasons passed to Hooks.CredentialReset.
const (
	ResetRefreshFailed     = "refresh_failed"
	ResetInvalidCredential = "invalid_credential"
	ResetCleared           = "cleared"
)

// Tokens is a credential pair issued by the API.
type Tokens struct {
	AccessToken   string
	RefreshToken  string
	RequiresSetup bool
}

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return f(ctx, refreshToken)
}

// Hooks observe session transitions. Nil fields are skipped.
type Hooks struct {
	RefreshSucceeded func(claims jwt.Claims)
	RefreshFailed    func(err error)
	// RefreshShared fires for each caller that joined a refresh started by another.
	RefreshShared   func()
	CredentialReset func(reason string)
}

// Options configures a [Manager].
type Options struct {
	ExpiryBuffer time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
	Hooks        Hooks
}

// Manager decides when credentials are usable and refreshes them on demand.
type Manager struct {
	store     *tokenstore.Store
	decoder   *jwt.Decoder
	refresher Refresher
	buffer    time.Duration
	now       func() time.Time
	logger    *slog.Logger
	hooks     Hooks

	flight singleflight.Group
}

// NewManager builds a Manager over store. A nil decoder decodes without verification.
func NewManager(store *tokenstore.Store, decoder *jwt.Decoder, refresher Refresher, opts Options) *Manager {
	if decoder == nil {
		decoder, _ = jwt.NewDecoder(jwt.DecoderConfig{})
	}
	if opts.ExpiryBuffer <= 0 {
		opts.ExpiryBuffer = DefaultExpiryBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		store:     store,
		decoder:   decoder,
		refresher: refresher,
		buffer:    opts.ExpiryBuffer,
		now:       opts.Now,
		logger:    opts.Logger,
		hooks:     opts.Hooks,
	}
}

// Restore loads the persisted refresh token. The access token stays empty until the
// first EnsureValidToken refreshes it.
func (m *Manager) Restore(ctx context.Context) error {
	if _, err := m.store.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// EnsureValidToken returns an access token that is not about to expire, or false when
// the session is anonymous. A refresh failure clears the session and returns false.
//
// If ctx ends while waiting on a refresh, EnsureValidToken returns false; the refresh
// itself still completes and its result is applied.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, bool) {
	snap := m.store.Snapshot()
	if snap.RefreshToken == "" {
		return "", false
	}
	if m.usable(snap) {
		return snap.AccessToken, true
	}
	return m.refresh(ctx, "")
}

// ForceRefresh refreshes regardless of expiry, for a request whose token was rejected.
// When the held access token already differs from rejected and is usable, it is
// returned without another refresh.
func (m *Manager) ForceRefresh(ctx context.Context, rejected string) (string, bool) {
	if m.store.Snapshot().RefreshToken == "" {
		return "", false
	}
	return m.refresh(ctx, rejected)
}

func (m *Manager) usable(snap tokenstore.Snapshot) bool {
	return snap.AccessToken != "" && !snap.Claims.ExpiresWithin(m.now(), m.buffer)
}

func (m *Manager) refresh(ctx context.Context, rejected string) (string, bool) {
	ch := m.flight.DoChan(refreshKey, func() (interface{}, error) {
		return m.runRefresh(context.WithoutCancel(ctx), rejected), nil
	})

	select {
	case res := <-ch:
		if res.Shared && m.hooks.RefreshShared != nil {
			m.hooks.RefreshShared()
		}
		token, _ := res.Val.(string)
		return token, token != ""
	case <-ctx.Done():
		return "", false
	}
}

// runRefresh executes inside the single flight.
func (m *Manager) runRefresh(ctx context.Context, rejected string) string {
	snap := m.store.Snapshot()
	if snap.RefreshToken == "" {
		return ""
	}
	if snap.AccessToken != rejected && m.usable(snap) {
		return snap.AccessToken
	}

	tokens, err := m.refresher.Refresh(ctx, snap.RefreshToken)
	if err != nil {
		m.logger.Debug("storefront: token refresh failed", "error", err)
		if m.hooks.RefreshFailed != nil {
			m.hooks.RefreshFailed(err)
		}
		m.resetIf(ctx, snap.RefreshToken, ResetRefreshFailed)
		return ""
	}

	claims, err := m.decoder.Decode(tokens.AccessToken)
	if err != nil {
		m.logger.Debug("storefront: refreshed access token rejected", "error", err)
		if m.hooks.RefreshFailed != nil {
			m.hooks.RefreshFailed(fmt.Errorf("%w: %v", ErrInvalidCredential, err))
		}
		m.resetIf(ctx, snap.RefreshToken, ResetInvalidCredential)
		return ""
	}

	next := tokenstore.Snapshot{AccessToken: tokens.AccessToken, Claims: claims, RefreshToken: tokens.RefreshToken}
	swapped, err := m.store.CompareAndReplace(ctx, snap.RefreshToken, next)
	if err != nil {
		m.logger.Error("storefront: persisting refresh token failed", "error", err)
	}
	if !swapped {
		// Logged out or re-authenticated while the refresh was in flight.
		current := m.store.Snapshot()
		if m.usable(current) {
			return current.AccessToken
		}
		return ""
	}

	if m.hooks.RefreshSucceeded != nil {
		m.hooks.RefreshSucceeded(claims)
	}
	return tokens.AccessToken
}

// SetTokens decodes the access token and replaces the session with the pair. On a
// decode failure the session is cleared and ErrInvalidCredential is returned.
// A failure to persist the refresh token is logged, not returned.
func (m *Manager) SetTokens(ctx context.Context, tokens Tokens) error {
	claims, err := m.decoder.Decode(tokens.AccessToken)
	if err != nil {
		m.reset(ctx, ResetInvalidCredential)
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	next := tokenstore.Snapshot{AccessToken: tokens.AccessToken, Claims: claims, RefreshToken: tokens.RefreshToken}
	if err := m.store.Replace(ctx, next); err != nil {
		m.logger.Error("storefront: persisting refresh token failed", "error", err)
	}
	return nil
}

// ClearTokens resets the session to anonymous and removes the persisted refresh
// token. Calling it on an anonymous session does nothing.
func (m *Manager) ClearTokens(ctx context.Context) {
	m.reset(ctx, ResetCleared)
}

func (m *Manager) reset(ctx context.Context, reason string) {
	changed, err := m.store.Reset(ctx)
	m.afterReset(changed, err, reason)
}

func (m *Manager) resetIf(ctx context.Context, refreshToken, reason string) {
	changed, err := m.store.CompareAndReset(ctx, refreshToken)
	m.afterReset(changed, err, reason)
}

func (m *Manager) afterReset(changed bool, err error, reason string) {
	if err != nil {
		m.logger.Error("storefront: removing persisted refresh token failed", "error", err)
	}
	if changed && m.hooks.CredentialReset != nil {
		m.hooks.CredentialReset(reason)
	}
}

// Claims returns the claims of the current access token.
func (m *Manager) Claims() jwt.Claims {
	return m.store.Snapshot().Claims
}

// IsAuthenticated reports whether the session identifies a subject.
func (m *Manager) IsAuthenticated() bool {
	return m.Claims().Authenticated()
}

// HasMinimumRole reports whether the session's role ranks at or above required.
func (m *Manager) HasMinimumRole(required permission.Role) bool {
	return permission.Satisfies(m.Claims().Role, required)
}

// HasRefreshToken reports whether a refresh credential is held.
func (m *Manager) HasRefreshToken() bool {
	return m.store.Snapshot().RefreshToken != ""
}
