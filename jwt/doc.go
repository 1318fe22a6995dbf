// Package jwt decodes storefront access tokens into [Claims] and, for tests and local
// tooling, issues them.
//
// # Decoding
//
// A browser-style client cannot verify the API's signature, so [Decoder] defaults to
// an unverified structural decode. When a verification key is configured the
// signature and algorithm are checked as well. Expiry is never enforced here: the
// session layer compares [Claims.ExpiresAt] against its own clock and buffer.
//
// # What this package must NOT do
//
//   - Perform I/O or hold session state.
//   - Treat an unknown role claim as anything above guest.
package jwt
