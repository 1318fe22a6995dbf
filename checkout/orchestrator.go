package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/MrEthical07/storefront/api"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	ErrAddressRequired   = errors.New("checkout: shipping address has not been saved")
	ErrAddressIncomplete = errors.New("checkout: shipping address is incomplete")
	ErrInvalidTransition = errors.New("checkout: operation not allowed in current stage")
	ErrPaymentDeclined   = errors.New("checkout: payment declined")
	ErrPaymentPending    = errors.New("checkout: payment not yet settled")
	ErrOrderCanceled     = errors.New("checkout: order canceled")
	ErrNoPaymentProvider = errors.New("checkout: no payment provider configured")
	ErrCheckoutWasReset  = errors.New("checkout: reset while operation was in flight")

	errFlightResult = errors.New("checkout: unexpected payment flight result")
)

// API is the subset of the remote API used by checkout.
type API interface {
	CreateAddress(ctx context.Context, a api.Address) (api.Address, error)
	UpdateAddress(ctx context.Context, a api.Address) (api.Address, error)
	EstimateTax(ctx context.Context, country, state string) (api.TaxEstimate, error)
	CreateOrder(ctx context.Context, shippingID, idempotencyKey string) (api.PaymentIntent, error)
	GetOrder(ctx context.Context, id string) (api.Order, error)
}

// Cart supplies the amount the order is priced from.
type Cart interface {
	Subtotal() decimal.Decimal
}

// Hooks observe checkout progress. Nil fields are skipped.
type Hooks struct {
	StageCompleted func(stage Stage)
	OrderConfirmed func(order api.Order)
}

// Options configures an [Orchestrator].
type Options struct {
	Logger       *slog.Logger
	Hooks        Hooks
	NewAttemptID func() string
}

// State is a snapshot of one checkout attempt.
type State struct {
	Stage           Stage
	AttemptID       string
	ShippingAddress api.Address
	OrderID         string
	ClientSecret    string
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	TaxEstimated    bool
	Payment         *PaymentResult
	Order           *api.Order
}

// Orchestrator drives one checkout attempt at a time.
type Orchestrator struct {
	api      API
	cart     Cart
	provider PaymentProvider
	validate *validator.Validate
	logger   *slog.Logger
	hooks    Hooks
	newID    func() string

	// addrMu serializes address upserts so concurrent first saves cannot create two
	// server records.
	addrMu     sync.Mutex
	providerMu sync.Mutex
	payFlight  singleflight.Group

	mu          sync.RWMutex
	st          State
	addrVersion uint64
}

// New returns an Orchestrator at StageStart. provider may be nil until
// ConfirmWithProvider is needed.
func New(a API, cart Cart, provider PaymentProvider, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewAttemptID == nil {
		opts.NewAttemptID = uuid.NewString
	}
	o := &Orchestrator{
		api:      a,
		cart:     cart,
		provider: provider,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   opts.Logger,
		hooks:    opts.Hooks,
		newID:    opts.NewAttemptID,
	}
	o.st = o.freshState()
	return o
}

func (o *Orchestrator) freshState() State {
	return State{
		Stage:       StageStart,
		AttemptID:   o.newID(),
		TaxAmount:   decimal.Zero,
		TotalAmount: decimal.Zero,
	}
}

// SetPaymentProvider replaces the provider port.
func (o *Orchestrator) SetPaymentProvider(p PaymentProvider) {
	o.providerMu.Lock()
	defer o.providerMu.Unlock()
	o.provider = p
}

// State returns a snapshot of the current attempt.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := o.st
	if st.Payment != nil {
		p := *st.Payment
		st.Payment = &p
	}
	if st.Order != nil {
		ord := *st.Order
		st.Order = &ord
	}
	return st
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() Stage {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.st.Stage
}

// IsAddressComplete reports whether a complete shipping address has been saved.
func (o *Orchestrator) IsAddressComplete() bool {
	o.mu.RLock()
	addr := o.st.ShippingAddress
	o.mu.RUnlock()
	return addr.ID != "" && o.checkAddress(addr) == nil
}

func normalizeAddress(a api.Address) api.Address {
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Email = strings.TrimSpace(a.Email)
	return a
}

func (o *Orchestrator) checkAddress(a api.Address) error {
	if err := o.validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: invalid %s", ErrAddressIncomplete, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrAddressIncomplete, err)
	}
	return nil
}

// SaveShippingAddress creates the shipping address, or updates it when one was saved
// earlier in this attempt, and stores the server's copy including its id. Country and
// state are upper-cased first. Any previous tax estimate is discarded.
func (o *Orchestrator) SaveShippingAddress(ctx context.Context, addr api.Address) (api.Address, error) {
	addr = normalizeAddress(addr)
	if err := o.checkAddress(addr); err != nil {
		return api.Address{}, err
	}

	o.addrMu.Lock()
	defer o.addrMu.Unlock()

	o.mu.RLock()
	stage, attempt, savedID := o.st.Stage, o.st.AttemptID, o.st.ShippingAddress.ID
	o.mu.RUnlock()
	if stage > StageAddressSet {
		return api.Address{}, fmt.Errorf("%w: address is fixed once payment is prepared (stage %s)", ErrInvalidTransition, stage)
	}

	if savedID != "" {
		addr.ID = savedID
	}
	var (
		saved api.Address
		err   error
	)
	if addr.ID != "" {
		saved, err = o.api.UpdateAddress(ctx, addr)
	} else {
		saved, err = o.api.CreateAddress(ctx, addr)
	}
	if err != nil {
		return api.Address{}, err
	}
	saved = normalizeAddress(saved)

	o.mu.Lock()
	if o.st.AttemptID != attempt {
		o.mu.Unlock()
		return saved, ErrCheckoutWasReset
	}
	o.st.ShippingAddress = saved
	o.st.TaxAmount = decimal.Zero
	o.st.TotalAmount = o.subtotal()
	o.st.TaxEstimated = false
	o.st.Stage = StageAddressSet
	o.addrVersion++
	o.mu.Unlock()

	o.completed(StageAddressSet)
	return saved, nil
}

// EstimateTax fetches the tax for the saved address and applies it:
// TotalAmount becomes the cart subtotal plus the tax. On failure nothing changes.
func (o *Orchestrator) EstimateTax(ctx context.Context) (api.TaxEstimate, error) {
	o.mu.RLock()
	st, version := o.st, o.addrVersion
	o.mu.RUnlock()

	if st.ShippingAddress.ID == "" {
		return api.TaxEstimate{}, ErrAddressRequired
	}
	if st.Stage != StageAddressSet {
		return api.TaxEstimate{}, fmt.Errorf("%w: cannot estimate tax in stage %s", ErrInvalidTransition, st.Stage)
	}
	if st.ShippingAddress.Country == "" || st.ShippingAddress.State == "" {
		return api.TaxEstimate{}, fmt.Errorf("%w: country and state are required for tax", ErrAddressIncomplete)
	}

	est, err := o.api.EstimateTax(ctx, st.ShippingAddress.Country, st.ShippingAddress.State)
	if err != nil {
		return api.TaxEstimate{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.st.AttemptID != st.AttemptID || o.addrVersion != version || o.st.Stage != StageAddressSet {
		// The address changed while estimating; this estimate no longer applies.
		return est, nil
	}
	o.st.TaxAmount = est.TaxAmount
	o.st.TotalAmount = o.subtotal().Add(est.TaxAmount)
	o.st.TaxEstimated = true
	return est, nil
}

// PreparePayment creates the order for the saved address and returns its payment
// intent. Once issued, the intent is cached for the rest of the attempt; concurrent
// and repeated calls share a single order creation.
func (o *Orchestrator) PreparePayment(ctx context.Context) (api.PaymentIntent, error) {
	o.mu.RLock()
	st := o.st
	o.mu.RUnlock()

	if st.ClientSecret != "" {
		return api.PaymentIntent{OrderID: st.OrderID, ClientSecret: st.ClientSecret}, nil
	}
	if st.ShippingAddress.ID == "" {
		return api.PaymentIntent{}, ErrAddressRequired
	}
	if st.Stage != StageAddressSet {
		return api.PaymentIntent{}, fmt.Errorf("%w: cannot prepare payment in stage %s", ErrInvalidTransition, st.Stage)
	}

	ch := o.payFlight.DoChan(st.AttemptID, func() (interface{}, error) {
		return o.createIntent(context.WithoutCancel(ctx), st.AttemptID, st.ShippingAddress.ID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return api.PaymentIntent{}, res.Err
		}
		pi, ok := res.Val.(api.PaymentIntent)
		if !ok {
			return api.PaymentIntent{}, errFlightResult
		}
		return pi, nil
	case <-ctx.Done():
		return api.PaymentIntent{}, ctx.Err()
	}
}

func (o *Orchestrator) createIntent(ctx context.Context, attempt, shippingID string) (api.PaymentIntent, error) {
	o.mu.RLock()
	cached := api.PaymentIntent{OrderID: o.st.OrderID, ClientSecret: o.st.ClientSecret}
	o.mu.RUnlock()
	if cached.ClientSecret != "" {
		return cached, nil
	}

	// The attempt id is the idempotency key.
	pi, err := o.api.CreateOrder(ctx, shippingID, attempt)
	if err != nil {
		return api.PaymentIntent{}, err
	}

	o.mu.Lock()
	if o.st.AttemptID != attempt {
		o.mu.Unlock()
		return api.PaymentIntent{}, ErrCheckoutWasReset
	}
	if o.st.ClientSecret != "" {
		pi = api.PaymentIntent{OrderID: o.st.OrderID, ClientSecret: o.st.ClientSecret}
		o.mu.Unlock()
		return pi, nil
	}
	o.st.OrderID = pi.OrderID
	o.st.ClientSecret = pi.ClientSecret
	o.st.Stage = StagePaymentIntentReady
	o.mu.Unlock()

	o.logger.Info("storefront: payment intent ready", "order_id", pi.OrderID)
	o.completed(StagePaymentIntentReady)
	return pi, nil
}

// ConfirmWithProvider confirms the payment intent with the payment provider. After
// a successful confirmation the cached result is returned without calling the
// provider again. A declined payment wraps ErrPaymentDeclined and can be retried with
// another payment method.
func (o *Orchestrator) ConfirmWithProvider(ctx context.Context, method PaymentMethod) (PaymentResult, error) {
	o.providerMu.Lock()
	defer o.providerMu.Unlock()

	o.mu.RLock()
	st := o.st
	o.mu.RUnlock()

	if st.Payment != nil {
		return *st.Payment, nil
	}
	if st.Stage != StagePaymentIntentReady {
		return PaymentResult{}, fmt.Errorf("%w: cannot confirm payment in stage %s", ErrInvalidTransition, st.Stage)
	}
	if o.provider == nil {
		return PaymentResult{}, ErrNoPaymentProvider
	}

	res, err := o.provider.ConfirmCardPayment(ctx, st.ClientSecret, method)
	if err != nil {
		return PaymentResult{}, err
	}
	if !res.Succeeded {
		return res, fmt.Errorf("%w: %s", ErrPaymentDeclined, res.DeclineReason)
	}

	o.mu.Lock()
	if o.st.AttemptID != st.AttemptID {
		o.mu.Unlock()
		return res, ErrCheckoutWasReset
	}
	o.st.Payment = &res
	o.st.Stage = StageProviderConfirmed
	o.mu.Unlock()

	o.completed(StageProviderConfirmed)
	return res, nil
}

// ConfirmOrder checks with the API that the order has been paid. A pending order
// returns ErrPaymentPending and can be polled again; a canceled or refunded order
// returns ErrOrderCanceled.
//
// Reaching Confirmed does not reset the attempt; callers call ResetCheckout once they
// have recorded the confirmation.
func (o *Orchestrator) ConfirmOrder(ctx context.Context) (api.Order, error) {
	o.mu.RLock()
	st := o.st
	o.mu.RUnlock()

	if st.Stage == StageConfirmed && st.Order != nil {
		return *st.Order, nil
	}
	if st.Stage != StageProviderConfirmed {
		return api.Order{}, fmt.Errorf("%w: cannot confirm order in stage %s", ErrInvalidTransition, st.Stage)
	}

	order, err := o.api.GetOrder(ctx, st.OrderID)
	if err != nil {
		return api.Order{}, err
	}
	switch {
	case order.Status.Settled():
	case order.Status == api.OrderCanceled || order.Status == api.OrderRefunded:
		return order, fmt.Errorf("%w: status %s", ErrOrderCanceled, order.Status)
	default:
		return order, fmt.Errorf("%w: status %s", ErrPaymentPending, order.Status)
	}

	o.mu.Lock()
	if o.st.AttemptID != st.AttemptID {
		o.mu.Unlock()
		return order, ErrCheckoutWasReset
	}
	o.st.Order = &order
	o.st.Stage = StageConfirmed
	o.mu.Unlock()

	o.completed(StageConfirmed)
	if o.hooks.OrderConfirmed != nil {
		o.hooks.OrderConfirmed(order)
	}
	return order, nil
}

// ResetCheckout discards the attempt and starts a new one with a fresh attempt id.
func (o *Orchestrator) ResetCheckout() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.st = o.freshState()
	o.addrVersion++
}

func (o *Orchestrator) subtotal() decimal.Decimal {
	if o.cart == nil {
		return decimal.Zero
	}
	return o.cart.Subtotal()
}

func (o *Orchestrator) completed(stage Stage) {
	if o.hooks.StageCompleted != nil {
		o.hooks.StageCompleted(stage)
	}
}
