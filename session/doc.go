// Package session owns the client's authentication session.
//
// [Manager] is the only writer of credentials: every update funnels through
// [Manager.SetTokens] or [Manager.ClearTokens], and both change the access and refresh
// token together. [Manager.EnsureValidToken] hands out a usable access token, refreshing
// on demand. At most one refresh call is in flight at any time; concurrent callers
// share its result.
//
// # Architecture boundaries
//
// The manager talks to the remote API only through the [Refresher] port, so it can be
// used beneath the request gateway without an import cycle.
package session
