// Package api binds the remote commerce API.
//
// [Client] encodes requests, decodes responses and turns non-2xx statuses into
// [*Error]. Authorized endpoints go through the request gateway; endpoints that mint
// credentials (login, registration, password reset, token refresh) use the bare
// transport so a rejected password never triggers a token refresh.
package api
