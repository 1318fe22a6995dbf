// Package cart mirrors the server-side shopping cart.
//
// The mirror is only ever replaced wholesale by a fetch. Mutations call the API and
// then re-fetch; they never patch the mirror locally, so it always equals some past
// server response.
package cart
