package checkout

import "context"

// PaymentMethod identifies how the customer pays, as understood by the provider.
type PaymentMethod struct {
	ID           string
	BillingEmail string
}

// PaymentResult is the provider's answer to a card confirmation.
type PaymentResult struct {
	Succeeded       bool
	PaymentIntentID string
	// DeclineReason is set when Succeeded is false.
	DeclineReason string
}

// PaymentProvider confirms a payment intent with the external payment SDK.
type PaymentProvider interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, method PaymentMethod) (PaymentResult, error)
}

// ProviderFunc adapts a function to [PaymentProvider].
type ProviderFunc func(ctx context.Context, clientSecret string, method PaymentMethod) (PaymentResult, error)

// ConfirmCardPayment calls f.
func (f ProviderFunc) ConfirmCardPayment(ctx context.Context, clientSecret string, method PaymentMethod) (PaymentResult, error) {
	return f(ctx, clientSecret, method)
}
