// Package transport is the request/response layer beneath the gateway.
//
// Requests carry an already encoded body so the gateway can resend them unchanged.
// Failures that never produced a response wrap [ErrTimeout] or [ErrNetwork]; every
// response, whatever its status code, is returned as a [Response].
package transport
