package cart

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/MrEthical07/storefront/api"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned for quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidProduct is returned for an empty product id.
	ErrInvalidProduct = errors.New("product id is required")
)

// API is the subset of the remote API the aggregator uses.
type API interface {
	GetCart(ctx context.Context) ([]api.CartItem, error)
	AddCartItem(ctx context.Context, productID string, qty int) error
	UpdateCartItem(ctx context.Context, productID string, qty int) error
	RemoveCartItem(ctx context.Context, productID string) error
}

// Hooks observe cart activity. Nil fields are skipped.
type Hooks struct {
	FetchFailed func(err error)
	Mutated     func(op string)
}

// Aggregator holds the local cart mirror.
type Aggregator struct {
	api    API
	logger *slog.Logger
	hooks  Hooks

	mu      sync.RWMutex
	items   []api.CartItem
	started uint64
	applied uint64
}

// New returns an Aggregator with an empty mirror.
func New(a API, logger *slog.Logger, hooks Hooks) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{api: a, logger: logger, hooks: hooks, items: []api.CartItem{}}
}

// FetchCart replaces the mirror with the server cart and returns it. On failure the
// mirror becomes empty and the error is logged, never returned.
//
// When fetches overlap, the one started last wins.
func (a *Aggregator) FetchCart(ctx context.Context) []api.CartItem {
	a.mu.Lock()
	a.started++
	gen := a.started
	a.mu.Unlock()

	items, err := a.api.GetCart(ctx)
	if err != nil {
		a.logger.Warn("storefront: cart fetch failed", "error", err)
		if a.hooks.FetchFailed != nil {
			a.hooks.FetchFailed(err)
		}
		items = []api.CartItem{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen > a.applied {
		a.items = items
		a.applied = gen
	}
	return copyItems(a.items)
}

// AddItem adds qty of productID, then re-fetches.
func (a *Aggregator) AddItem(ctx context.Context, productID string, qty int) error {
	if err := validate(productID, qty); err != nil {
		return err
	}
	return a.mutate(ctx, "add", func() error { return a.api.AddCartItem(ctx, productID, qty) })
}

// UpdateItemQuantity sets the quantity of productID, then re-fetches.
func (a *Aggregator) UpdateItemQuantity(ctx context.Context, productID string, qty int) error {
	if err := validate(productID, qty); err != nil {
		return err
	}
	return a.mutate(ctx, "update", func() error { return a.api.UpdateCartItem(ctx, productID, qty) })
}

// RemoveItem deletes productID from the cart, then re-fetches.
func (a *Aggregator) RemoveItem(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return ErrInvalidProduct
	}
	return a.mutate(ctx, "remove", func() error { return a.api.RemoveCartItem(ctx, productID) })
}

// mutate leaves the mirror untouched when the mutation fails.
func (a *Aggregator) mutate(ctx context.Context, op string, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	if a.hooks.Mutated != nil {
		a.hooks.Mutated(op)
	}
	a.FetchCart(ctx)
	return nil
}

func validate(productID string, qty int) error {
	if strings.TrimSpace(productID) == "" {
		return ErrInvalidProduct
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Clear empties the mirror and discards any fetch still in flight.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started++
	a.applied = a.started
	a.items = []api.CartItem{}
}

// Items returns a copy of the mirror.
func (a *Aggregator) Items() []api.CartItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyItems(a.items)
}

// Subtotal is the sum of unit price times quantity over the mirror.
func (a *Aggregator) Subtotal() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := decimal.Zero
	for _, it := range a.items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ItemCountByProduct returns the quantity of productID in the mirror, or 0.
func (a *Aggregator) ItemCountByProduct(productID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, it := range a.items {
		if it.Product.ID == productID {
			return it.Quantity
		}
	}
	return 0
}

// ItemCount is the total quantity across all lines.
func (a *Aggregator) ItemCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, it := range a.items {
		n += it.Quantity
	}
	return n
}

func copyItems(items []api.CartItem) []api.CartItem {
	out := make([]api.CartItem, len(items))
	copy(out, items)
	return out
}
