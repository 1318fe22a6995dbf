// Package storefront is the client side of a commerce storefront: session credentials,
// an authorized request gateway, the cart mirror and the checkout state machine.
//
// A [Client] is assembled by [Builder.Build] and is safe for concurrent use. Every
// authorized API call goes through the gateway, which attaches the current access
// token, refreshes it at most once per burst of callers, and retries a rejected
// request once after a forced refresh.
//
// # Architecture boundaries
//
// storefront is the public surface. It exposes [Client], [Builder], [Config] and value
// types. Credential storage lives in tokenstore, refresh decisions in session, request
// dispatch in gateway, wire bindings in api, and the two stateful views in cart and
// checkout.
//
// # What this package must NOT do
//
//   - Log or emit token values.
//   - Perform I/O during construction; the first network call is [Client.Start] or an
//     explicit operation.
//   - Import a sub-package that re-imports storefront.
package storefront
