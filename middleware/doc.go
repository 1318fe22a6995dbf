// Package middleware exposes HTTP route guards for applications that serve pages
// on top of a storefront client.
//
// # Guards
//
//   - [Guard] redirects unless a predicate over the [Gate] holds.
//   - [RequireAuthenticated] requires a signed-in session.
//   - [RequireRole] requires a minimum role in the hierarchy.
//
// A rejected request is answered with 303 See Other to the configured location,
// carrying the original path in the "next" query parameter. Admitted requests see
// the session claims through [ClaimsFromContext].
//
// # What this package must NOT do
//
//   - Refresh or otherwise mutate credentials (the gate is read-only).
//   - Answer 401/403: guards redirect, errors are the API's business.
//   - Rank roles itself (delegates to the gate).
package middleware
