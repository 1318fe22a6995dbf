package jwt

import (
	"time"

	"github.com/MrEthical07/storefront/permission"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the identity decoded from an access token.
type Claims struct {
	SubjectID string
	Email     string
	Role      permission.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Anonymous returns the claim set of a session without credentials.
func Anonymous() Claims {
	return Claims{Role: permission.Guest}
}

// Authenticated reports whether the claims identify a subject.
func (c Claims) Authenticated() bool {
	return c.SubjectID != ""
}

// ExpiresWithin reports whether the token expires no later than buffer after
// now. A token is usable only while now is strictly before ExpiresAt-buffer.
func (c Claims) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return c.ExpiresAt.Sub(now) <= buffer
}

// wireClaims is the JSON claim set the API signs.
type wireClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	gjwt.RegisteredClaims
}

func (w *wireClaims) toClaims() Claims {
	c := Claims{
		SubjectID: w.UserID,
		Email:     w.Email,
		Role:      permission.Parse(w.Role),
	}
	if w.IssuedAt != nil {
		c.IssuedAt = w.IssuedAt.Time
	}
	if w.ExpiresAt != nil {
		c.ExpiresAt = w.ExpiresAt.Time
	}
	return c
}
