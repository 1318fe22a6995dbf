// Package gateway wraps every authorized API call.
//
// [Gateway.Send] asks the session for a usable access token, attaches it as a bearer
// credential and dispatches the request. A 401 on a request is answered with exactly
// one forced refresh and one retry; a second 401 surfaces as [ErrUnauthorized].
// Other failures pass through untouched.
package gateway
