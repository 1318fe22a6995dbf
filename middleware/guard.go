package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/permission"
)

// Gate answers authorization questions about the current session. *storefront.Client
// satisfies it.
type Gate interface {
	IsAuthenticated() bool
	HasMinimumRole(required permission.Role) bool
	Claims() jwt.Claims
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims of the session admitted by a guard.
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(jwt.Claims)
	return c, ok
}

// Guard admits a request when allow reports true and redirects to redirectTo
// otherwise. A nil gate admits nothing.
func Guard(gate Gate, allow func(Gate) bool, redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil || !allow(gate) {
				http.Redirect(w, r, redirectLocation(redirectTo, r), http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, gate.Claims())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectLocation(target string, r *http.Request) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("next", r.URL.RequestURI())
	u.RawQuery = q.Encode()
	return u.String()
}
