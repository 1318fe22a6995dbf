package middleware

import (
	"net/http"

	"github.com/MrEthical07/storefront/permission"
)

// RequireAuthenticated redirects anonymous visitors, typically to the login page.
func RequireAuthenticated(gate Gate, redirectTo string) func(http.Handler) http.Handler {
	return Guard(gate, func(g Gate) bool { return g.IsAuthenticated() }, redirectTo)
}

// RequireRole redirects sessions ranked below role and anonymous visitors.
func RequireRole(gate Gate, role permission.Role, redirectTo string) func(http.Handler) http.Handler {
	return Guard(gate, func(g Gate) bool {
		return g.IsAuthenticated() && g.HasMinimumRole(role)
	}, redirectTo)
}
