package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/storefront/api"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	addresses map[string]api.Address
	nextID    int
	orders    map[string]api.Order
	byKey     map[string]api.PaymentIntent
	keys      []string
	creates   int
	updates   int
	taxCalls  int
	orderCall int
	taxRate   decimal.Decimal
	failOrder error
	failTax   error
	delay     time.Duration
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		addresses: map[string]api.Address{},
		orders:    map[string]api.Order{},
		byKey:     map[string]api.PaymentIntent{},
		taxRate:   decimal.RequireFromString("0.10"),
	}
}

func (f *fakeAPI) CreateAddress(_ context.Context, a api.Address) (api.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.nextID++
	a.ID = fmt.Sprintf("addr-%d", f.nextID)
	f.addresses[a.ID] = a
	return a, nil
}

func (f *fakeAPI) UpdateAddress(_ context.Context, a api.Address) (api.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if _, ok := f.addresses[a.ID]; !ok {
		return api.Address{}, &api.Error{StatusCode: 404}
	}
	f.addresses[a.ID] = a
	return a, nil
}

func (f *fakeAPI) EstimateTax(_ context.Context, country, state string) (api.TaxEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taxCalls++
	if f.failTax != nil {
		return api.TaxEstimate{}, f.failTax
	}
	return api.TaxEstimate{TaxAmount: decimal.RequireFromString("25").Mul(f.taxRate)}, nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, shippingID, key string) (api.PaymentIntent, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCall++
	f.keys = append(f.keys, key)
	if f.failOrder != nil {
		return api.PaymentIntent{}, f.failOrder
	}
	if pi, ok := f.byKey[key]; ok {
		return pi, nil
	}
	id := fmt.Sprintf("order-%d", len(f.orders)+1)
	pi := api.PaymentIntent{OrderID: id, ClientSecret: id + "_secret"}
	f.orders[id] = api.Order{ID: id, Status: api.OrderPending, ShippingID: shippingID}
	f.byKey[key] = pi
	return pi, nil
}

func (f *fakeAPI) GetOrder(_ context.Context, id string) (api.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return api.Order{}, &api.Error{StatusCode: 404}
	}
	return o, nil
}

func (f *fakeAPI) setStatus(id string, s api.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	o.Status = s
	f.orders[id] = o
}

type fixedCart decimal.Decimal

func (c fixedCart) Subtotal() decimal.Decimal { return decimal.Decimal(c) }

type countingProvider struct {
	mu      sync.Mutex
	calls   int
	decline bool
	secrets []string
}

func (p *countingProvider) ConfirmCardPayment(_ context.Context, secret string, _ PaymentMethod) (PaymentResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.secrets = append(p.secrets, secret)
	if p.decline {
		return PaymentResult{DeclineReason: "card_declined"}, nil
	}
	return PaymentResult{Succeeded: true, PaymentIntentID: "pi_" + secret}, nil
}

func validAddress() api.Address {
	return api.Address{
		Addressee:  "Ada Lovelace",
		Line1:      "1 Main St",
		City:       "Springfield",
		State:      "il",
		Country:    "us",
		PostalCode: "62701",
		Email:      "ada@example.com",
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeAPI, *countingProvider) {
	t.Helper()
	f := newFakeAPI()
	p := &countingProvider{}
	return New(f, fixedCart(decimal.RequireFromString("25")), p, Options{}), f, p
}

func TestSaveShippingAddressNormalizesAndStores(t *testing.T) {
	o, f, _ := newTestOrchestrator(t)

	saved, err := o.SaveShippingAddress(context.Background(), validAddress())
	require.NoError(t, err)
	assert.Equal(t, "US", saved.Country)
	assert.Equal(t, "IL", saved.State)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "US", f.addresses[saved.ID].Country)

	st := o.State()
	assert.Equal(t, StageAddressSet, st.Stage)
	assert.Equal(t, saved.ID, st.ShippingAddress.ID)
	assert.True(t, o.IsAddressComplete())
	assert.True(t, st.TotalAmount.Equal(decimal.RequireFromString("25")))
	assert.False(t, st.TaxEstimated)
}

func TestAddressUpsertConverges(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)

	first, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)

	corrected := validAddress()
	corrected.Line1 = "2 Main St"
	second, err := o.SaveShippingAddress(ctx, corrected)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.addresses, 1)
	assert.Equal(t, "2 Main St", f.addresses[first.ID].Line1)
	assert.Equal(t, 1, f.creates)
	assert.Equal(t, 1, f.updates)
	assert.Equal(t, "2 Main St", o.State().ShippingAddress.Line1)
}

func TestConcurrentFirstSavesCreateOneRecord(t *testing.T) {
	o, f, _ := newTestOrchestrator(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.SaveShippingAddress(context.Background(), validAddress())
		}()
	}
	wg.Wait()

	assert.Len(t, f.addresses, 1)
	assert.Equal(t, 1, f.creates)
}

func TestIncompleteAddressMakesNoCall(t *testing.T) {
	o, f, _ := newTestOrchestrator(t)

	cases := []func(a *api.Address){
		func(a *api.Address) { a.Line1 = "" },
		func(a *api.Address) { a.City = "  " },
		func(a *api.Address) { a.Country = "" },
		func(a *api.Address) { a.Country = "usa" },
		func(a *api.Address) { a.PostalCode = "" },
		func(a *api.Address) { a.Email = "not-an-email" },
	}
	for i, mutate := range cases {
		a := validAddress()
		mutate(&a)
		_, err := o.SaveShippingAddress(context.Background(), a)
		assert.ErrorIs(t, err, ErrAddressIncomplete, "case %d", i)
	}
	assert.Zero(t, f.creates+f.updates)
	assert.Equal(t, StageStart, o.Stage())
	assert.False(t, o.IsAddressComplete())
}

func TestEstimateTaxPreconditions(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)

	_, err := o.EstimateTax(ctx)
	assert.ErrorIs(t, err, ErrAddressRequired)

	noState := validAddress()
	noState.State = ""
	_, err = o.SaveShippingAddress(ctx, noState)
	require.NoError(t, err)
	_, err = o.EstimateTax(ctx)
	assert.ErrorIs(t, err, ErrAddressIncomplete)
	assert.Zero(t, f.taxCalls)
}

func TestEstimateTaxAppliesAndFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)

	est, err := o.EstimateTax(ctx)
	require.NoError(t, err)
	assert.True(t, est.TaxAmount.Equal(decimal.RequireFromString("2.5")))
	st := o.State()
	assert.True(t, st.TaxEstimated)
	assert.True(t, st.TaxAmount.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, st.TotalAmount.Equal(decimal.RequireFromString("27.5")))

	f.failTax = api.ErrServer
	_, err = o.EstimateTax(ctx)
	assert.ErrorIs(t, err, api.ErrServer)
	after := o.State()
	assert.True(t, after.TaxAmount.Equal(st.TaxAmount))
	assert.True(t, after.TotalAmount.Equal(st.TotalAmount))

	// A new address discards the previous estimate.
	f.failTax = nil
	_, err = o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	assert.False(t, o.State().TaxEstimated)
	assert.True(t, o.State().TaxAmount.IsZero())
}

func TestPreparePaymentRequiresAddress(t *testing.T) {
	o, f, _ := newTestOrchestrator(t)
	_, err := o.PreparePayment(context.Background())
	assert.ErrorIs(t, err, ErrAddressRequired)
	assert.Zero(t, f.orderCall)
}

func TestPreparePaymentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)

	first, err := o.PreparePayment(ctx)
	require.NoError(t, err)
	second, err := o.PreparePayment(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.orderCall)
	assert.Equal(t, StagePaymentIntentReady, o.Stage())
	assert.Equal(t, []string{o.State().AttemptID}, f.keys)
}

func TestConcurrentPreparePaymentSharesOneOrder(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	f.delay = 20 * time.Millisecond
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)

	const n = 10
	results := make([]api.PaymentIntent, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pi, err := o.PreparePayment(ctx)
			assert.NoError(t, err)
			results[i] = pi
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.orders, 1)
	for i := range results {
		assert.Equal(t, results[0], results[i])
	}
}

func TestPreparePaymentFailureIsRetriable(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)

	f.failOrder = api.ErrServer
	_, err = o.PreparePayment(ctx)
	assert.ErrorIs(t, err, api.ErrServer)
	assert.Equal(t, StageAddressSet, o.Stage())
	assert.Empty(t, o.State().ClientSecret)

	f.failOrder = nil
	pi, err := o.PreparePayment(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, pi.ClientSecret)
	require.Len(t, f.keys, 2)
	assert.Equal(t, f.keys[0], f.keys[1], "retry reuses the idempotency key")
}

func TestAddressLockedAfterPaymentPrepared(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	_, err = o.PreparePayment(ctx)
	require.NoError(t, err)

	_, err = o.SaveShippingAddress(ctx, validAddress())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = o.EstimateTax(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 0, f.updates)
}

func TestConfirmWithProvider(t *testing.T) {
	ctx := context.Background()
	o, _, p := newTestOrchestrator(t)

	_, err := o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm_card"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	pi, err := o.PreparePayment(ctx)
	require.NoError(t, err)

	p.decline = true
	_, err = o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm_card"})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, StagePaymentIntentReady, o.Stage())

	p.decline = false
	res, err := o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm_other"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	again, err := o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm_other"})
	require.NoError(t, err)
	assert.Equal(t, res, again)

	assert.Equal(t, 2, p.calls, "no provider call after success")
	assert.Equal(t, []string{pi.ClientSecret, pi.ClientSecret}, p.secrets)
	assert.Equal(t, StageProviderConfirmed, o.Stage())
}

func TestConfirmWithoutProvider(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	o := New(f, nil, nil, Options{})
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	_, err = o.PreparePayment(ctx)
	require.NoError(t, err)

	_, err = o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm"})
	assert.ErrorIs(t, err, ErrNoPaymentProvider)

	o.SetPaymentProvider(&countingProvider{})
	_, err = o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm"})
	assert.NoError(t, err)
}

func TestConfirmOrderOutcomes(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI()
	var confirmed []api.Order
	var stages []Stage
	o := New(f, fixedCart(decimal.RequireFromString("25")), &countingProvider{}, Options{Hooks: Hooks{
		StageCompleted: func(s Stage) { stages = append(stages, s) },
		OrderConfirmed: func(ord api.Order) { confirmed = append(confirmed, ord) },
	}})

	_, err := o.ConfirmOrder(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	pi, err := o.PreparePayment(ctx)
	require.NoError(t, err)
	_, err = o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm"})
	require.NoError(t, err)

	_, err = o.ConfirmOrder(ctx)
	assert.ErrorIs(t, err, ErrPaymentPending)
	assert.Equal(t, StageProviderConfirmed, o.Stage())

	f.setStatus(pi.OrderID, api.OrderPaid)
	order, err := o.ConfirmOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, pi.OrderID, order.ID)
	assert.Equal(t, StageConfirmed, o.Stage())

	again, err := o.ConfirmOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)
	assert.Len(t, confirmed, 1)
	assert.Equal(t, []Stage{StageAddressSet, StagePaymentIntentReady, StageProviderConfirmed, StageConfirmed}, stages)
}

func TestConfirmOrderCanceled(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	pi, err := o.PreparePayment(ctx)
	require.NoError(t, err)
	_, err = o.ConfirmWithProvider(ctx, PaymentMethod{ID: "pm"})
	require.NoError(t, err)

	f.setStatus(pi.OrderID, api.OrderCanceled)
	_, err = o.ConfirmOrder(ctx)
	assert.ErrorIs(t, err, ErrOrderCanceled)
	assert.Equal(t, StageProviderConfirmed, o.Stage())
}

func TestResetCheckoutStartsNewAttempt(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	first, err := o.PreparePayment(ctx)
	require.NoError(t, err)
	oldAttempt := o.State().AttemptID

	o.ResetCheckout()
	st := o.State()
	assert.Equal(t, StageStart, st.Stage)
	assert.NotEqual(t, oldAttempt, st.AttemptID)
	assert.Empty(t, st.ShippingAddress.ID)
	assert.Empty(t, st.ClientSecret)
	assert.True(t, st.TotalAmount.IsZero())
	assert.False(t, o.IsAddressComplete())

	_, err = o.PreparePayment(ctx)
	assert.ErrorIs(t, err, ErrAddressRequired)

	_, err = o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)
	second, err := o.PreparePayment(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 2, f.creates, "a new attempt creates a new address record")
}

func TestResetDuringPreparePaymentDiscardsResult(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newTestOrchestrator(t)
	f.delay = 50 * time.Millisecond
	_, err := o.SaveShippingAddress(ctx, validAddress())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := o.PreparePayment(ctx)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	o.ResetCheckout()

	assert.True(t, errors.Is(<-done, ErrCheckoutWasReset))
	assert.Equal(t, StageStart, o.Stage())
	assert.Empty(t, o.State().ClientSecret)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "payment_intent_ready", StagePaymentIntentReady.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
