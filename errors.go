package storefront

import (
	"github.com/MrEthical07/storefront/api"
	"github.com/MrEthical07/storefront/cart"
	"github.com/MrEthical07/storefront/checkout"
	"github.com/MrEthical07/storefront/gateway"
	"github.com/MrEthical07/storefront/session"
	"github.com/MrEthical07/storefront/tokenstore"
	"github.com/MrEthical07/storefront/transport"
)

// Sentinel errors returned by Client operations. Match them with errors.Is.
var (
	// ErrUnauthorized is returned when a request is still rejected after one forced refresh.
	ErrUnauthorized = gateway.ErrUnauthorized
	// ErrRejected is returned when the API answers 401 to a call that does not go
	// through the gateway, such as a sign-in with a wrong password.
	ErrRejected = api.ErrUnauthorized
	// ErrInvalidCredential is returned when the API issues an undecodable access token.
	ErrInvalidCredential = session.ErrInvalidCredential
	// ErrTokenStoreUnavailable wraps refresh-token persistence failures.
	ErrTokenStoreUnavailable = tokenstore.ErrUnavailable

	ErrTimeout = transport.ErrTimeout
	ErrNetwork = transport.ErrNetwork

	ErrBadRequest = api.ErrBadRequest
	ErrForbidden  = api.ErrForbidden
	ErrNotFound   = api.ErrNotFound
	ErrConflict   = api.ErrConflict
	ErrServer     = api.ErrServer

	ErrInvalidQuantity = cart.ErrInvalidQuantity
	ErrInvalidProduct  = cart.ErrInvalidProduct

	ErrAddressRequired   = checkout.ErrAddressRequired
	ErrAddressIncomplete = checkout.ErrAddressIncomplete
	ErrInvalidTransition = checkout.ErrInvalidTransition
	ErrPaymentDeclined   = checkout.ErrPaymentDeclined
	ErrPaymentPending    = checkout.ErrPaymentPending
	ErrOrderCanceled     = checkout.ErrOrderCanceled
	ErrNoPaymentProvider = checkout.ErrNoPaymentProvider
	ErrCheckoutWasReset  = checkout.ErrCheckoutWasReset
)
