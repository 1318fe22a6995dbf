package storefront

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/storefront/api"
	"github.com/MrEthical07/storefront/cart"
	"github.com/MrEthical07/storefront/checkout"
	"github.com/MrEthical07/storefront/gateway"
	"github.com/MrEthical07/storefront/internal/audit"
	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/permission"
	"github.com/MrEthical07/storefront/session"
	"github.com/MrEthical07/storefront/tokenstore"
	"github.com/MrEthical07/storefront/transport"
)

// Client is the storefront runtime: one session, one cart mirror and one checkout
// attempt. All methods are safe for concurrent use.
type Client struct {
	cfg      Config
	logger   *slog.Logger
	store    *tokenstore.Store
	session  *session.Manager
	gateway  *gateway.Gateway
	api      *api.Client
	cart     *cart.Aggregator
	checkout *checkout.Orchestrator
	metrics  *Metrics
	events   *audit.Dispatcher

	localeMu sync.RWMutex
	locale   api.Locale
}

type clientDeps struct {
	config    Config
	logger    *slog.Logger
	store     *tokenstore.Store
	decoder   *jwt.Decoder
	transport transport.Transport
	provider  checkout.PaymentProvider
	metrics   *Metrics
	events    *audit.Dispatcher
}

func newClient(d clientDeps) *Client {
	c := &Client{
		cfg:     d.config,
		logger:  d.logger,
		store:   d.store,
		metrics: d.metrics,
		events:  d.events,
	}

	c.session = session.NewManager(d.store, d.decoder, api.NewRefresher(d.transport), session.Options{
		ExpiryBuffer: d.config.Session.ExpiryBuffer,
		Logger:       d.logger.With("component", "session"),
		Hooks: session.Hooks{
			RefreshSucceeded: c.onRefreshSucceeded,
			RefreshFailed:    c.onRefreshFailed,
			RefreshShared:    func() { c.metrics.Inc(MetricRefreshShared) },
			CredentialReset:  c.onCredentialReset,
		},
	})

	c.gateway = gateway.New(d.transport, c.session, d.logger.With("component", "gateway"), gateway.Hooks{
		Completed:   c.onRequestCompleted,
		AuthRetried: func() { c.metrics.Inc(MetricAuthRetry) },
		AuthFailed:  c.onAuthFailed,
	})
	c.api = api.New(c.gateway, d.transport)

	c.cart = cart.New(c.api, d.logger.With("component", "cart"), cart.Hooks{
		FetchFailed: func(error) { c.metrics.Inc(MetricCartFetchFailure) },
		Mutated:     func(string) { c.metrics.Inc(MetricCartMutation) },
	})

	c.checkout = checkout.New(c.api, c.cart, d.provider, checkout.Options{
		Logger: d.logger.With("component", "checkout"),
		Hooks: checkout.Hooks{
			StageCompleted: func(checkout.Stage) { c.metrics.Inc(MetricCheckoutStageCompleted) },
			OrderConfirmed: c.onOrderConfirmed,
		},
	})
	return c
}

func (c *Client) onRefreshSucceeded(claims jwt.Claims) {
	c.metrics.Inc(MetricRefreshSuccess)
	c.emit(context.Background(), Event{
		Type:    EventRefresh,
		UserID:  claims.SubjectID,
		Role:    string(claims.Role),
		Success: true,
	})
}

func (c *Client) onRefreshFailed(err error) {
	c.metrics.Inc(MetricRefreshFailure)
	c.emit(context.Background(), Event{Type: EventRefresh, Error: err.Error()})
}

func (c *Client) onCredentialReset(reason string) {
	c.metrics.Inc(MetricCredentialReset)
	c.emit(context.Background(), Event{
		Type:     EventCredentialReset,
		Success:  true,
		Metadata: map[string]string{"reason": reason},
	})
}

func (c *Client) onRequestCompleted(_ int, elapsed time.Duration, err error) {
	c.metrics.Observe(MetricRequestLatency, elapsed)
	if err != nil && !errors.Is(err, gateway.ErrUnauthorized) {
		c.metrics.Inc(MetricTransportFailure)
	}
}

func (c *Client) onAuthFailed() {
	c.metrics.Inc(MetricAuthFailure)
	c.emitFromClaims(context.Background(), EventAuthFailure, false, gateway.ErrUnauthorized)
}

func (c *Client) onOrderConfirmed(order api.Order) {
	c.metrics.Inc(MetricOrderConfirmed)
	claims := c.session.Claims()
	c.emit(context.Background(), Event{
		Type:    EventOrderConfirmed,
		UserID:  claims.SubjectID,
		Role:    string(claims.Role),
		Success: true,
		Metadata: map[string]string{
			"order_id": order.ID,
			"total":    order.TotalAmount.StringFixed(2),
			"currency": order.Currency,
		},
	})
}

// Start restores the persisted session, loads the cart (which authorizes through
// the gateway and so refreshes the access token) and loads the store locale.
//
// Only a restore failure is returned, after the remaining steps have run: the
// client is usable anonymously either way.
func (c *Client) Start(ctx context.Context) error {
	restoreErr := c.session.Restore(ctx)
	if restoreErr != nil {
		c.logger.ErrorContext(ctx, "session restore failed", "error", restoreErr)
	}

	c.cart.FetchCart(ctx)

	if loc, err := c.api.GetLocale(ctx); err != nil {
		c.logger.WarnContext(ctx, "locale unavailable", "error", err)
	} else {
		c.localeMu.Lock()
		c.locale = loc
		c.localeMu.Unlock()
	}
	return restoreErr
}

// Locale returns the locale loaded by Start.
func (c *Client) Locale() api.Locale {
	c.localeMu.RLock()
	defer c.localeMu.RUnlock()
	return c.locale
}

// Close flushes pending events. The client must not be used afterwards.
func (c *Client) Close() {
	c.events.Close()
}

// IsAuthenticated reports whether a user is signed in.
func (c *Client) IsAuthenticated() bool { return c.session.IsAuthenticated() }

// HasMinimumRole reports whether the session role ranks at least required.
func (c *Client) HasMinimumRole(required permission.Role) bool {
	return c.session.HasMinimumRole(required)
}

// Claims returns the decoded identity of the session.
func (c *Client) Claims() jwt.Claims { return c.session.Claims() }

// Session exposes the session manager for callers that drive credentials directly.
func (c *Client) Session() *session.Manager { return c.session }

// Cart returns the cart mirror.
func (c *Client) Cart() *cart.Aggregator { return c.cart }

// Checkout returns the checkout orchestrator.
func (c *Client) Checkout() *checkout.Orchestrator { return c.checkout }

// API returns endpoint bindings whose authorized calls go through the gateway.
func (c *Client) API() *api.Client { return c.api }

// Send dispatches a raw request through the gateway.
func (c *Client) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return c.gateway.Send(ctx, req)
}

// MetricsSnapshot returns a copy of the client's counters and histograms.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}
