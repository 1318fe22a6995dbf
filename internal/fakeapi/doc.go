// Package fakeapi is an in-memory commerce API for tests, the load generator and the
// examples.
//
// It serves the same routes as the real API: rotating single-use refresh tokens,
// per-user carts, addresses, tax estimates and orders keyed by idempotency key. Tests
// drive it through [Server.Calls], [Server.FailNext], [Server.InvalidateAccessTokens]
// and [Server.SetOrderStatus].
//
// # What this package must NOT do
//
//   - Be imported by non-test code outside cmd/ and examples/.
package fakeapi
