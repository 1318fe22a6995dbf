package fakeapi

import (
	"context"
	"errors"

	"github.com/MrEthical07/storefront/api"
	"github.com/MrEthical07/storefront/checkout"
)

// Payment method ids understood by [Server.PaymentProvider].
const (
	MethodCardOK       = "pm_card_visa"
	MethodCardDeclined = "pm_card_declined"
	// MethodCardPending succeeds at the provider but leaves the order pending, as if
	// the capture webhook had not arrived yet.
	MethodCardPending = "pm_card_pending"
)

var errUnknownIntent = errors.New("fakeapi: unknown client secret")

// PaymentProvider returns a provider that settles this server's orders.
func (s *Server) PaymentProvider() checkout.PaymentProvider {
	return checkout.ProviderFunc(func(ctx context.Context, clientSecret string, method checkout.PaymentMethod) (checkout.PaymentResult, error) {
		if err := ctx.Err(); err != nil {
			return checkout.PaymentResult{}, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		var target *order
		for _, o := range s.orders {
			if o.clientSecret == clientSecret {
				target = o
				break
			}
		}
		if target == nil {
			return checkout.PaymentResult{}, errUnknownIntent
		}

		intentID := "pi_" + target.ID
		switch method.ID {
		case MethodCardDeclined:
			return checkout.PaymentResult{PaymentIntentID: intentID, DeclineReason: "card_declined"}, nil
		case MethodCardPending:
		default:
			target.Status = api.OrderPaid
			delete(s.carts, target.userID)
		}
		return checkout.PaymentResult{Succeeded: true, PaymentIntentID: intentID}, nil
	})
}
