// Package audit relays session events to a caller-supplied sink off the request path.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines, slog, no-op).
//   - [Dispatcher] is a buffered async relay that either drops or blocks when full.
//   - [Event] is one session lifecycle record: login, logout, refresh, credential reset,
//     authorization failure, confirmed order.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the storefront client does that.
//   - Carry token values. Events identify subjects, never credentials.
package audit
