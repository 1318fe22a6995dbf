package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/storefront/transport"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
)

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string
}

// Error returns the status code, followed by the message when there is one.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// Is maps the status code onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// FromResponse builds an [*Error] from a non-2xx response. The message is taken from
// a JSON "error" or "message" field, or the plain-text body.
func FromResponse(resp *transport.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode}
	body := strings.TrimSpace(string(resp.Body))
	if body == "" {
		return e
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body, &payload) == nil {
		switch {
		case payload.Error != "":
			e.Message = payload.Error
			return e
		case payload.Message != "":
			e.Message = payload.Message
			return e
		}
	}
	e.Message = truncate(body, maxMessageBytes)
	return e
}

const maxMessageBytes = 256

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
