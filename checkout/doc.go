// Package checkout turns a cart into a confirmed, paid order.
//
// [Orchestrator] is a linear, resumable state machine:
//
//	Start --SaveShippingAddress--> AddressSet
//	AddressSet --EstimateTax--> AddressSet
//	AddressSet --PreparePayment--> PaymentIntentReady
//	PaymentIntentReady --ConfirmWithProvider--> ProviderConfirmed
//	ProviderConfirmed --ConfirmOrder--> Confirmed
//	any --ResetCheckout--> Start
//
// A failed stage leaves the state exactly as it was before the call, so every stage
// can be retried. PreparePayment and ConfirmWithProvider cache their first success:
// repeating them never creates a second order or charges twice.
package checkout
