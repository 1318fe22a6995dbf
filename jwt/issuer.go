package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/storefront/permission"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssuerConfig configures an [Issuer].
type IssuerConfig struct {
	SigningMethod SigningMethod
	// Key is the HS256 secret or the Ed25519 private key (raw or PEM).
	Key       []byte
	Issuer    string
	AccessTTL time.Duration
	KeyID     string
}

// Issuer signs access tokens in the claim layout [Decoder] reads.
// It backs the in-process API used by tests and the load generator.
type Issuer struct {
	cfg     IssuerConfig
	method  gjwt.SigningMethod
	signKey interface{}
	now     func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access ttl must be > 0")
	}

	i := &Issuer{cfg: cfg, now: time.Now}
	switch cfg.SigningMethod {
	case MethodHS256, MethodNone:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a signing key")
		}
		i.method = gjwt.SigningMethodHS256
		i.signKey = append([]byte(nil), cfg.Key...)
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		i.method = gjwt.SigningMethodEdDSA
		i.signKey = priv
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}
	return i, nil
}

// Issue signs a token for the subject that expires after the configured TTL.
func (i *Issuer) Issue(userID, email string, role permission.Role) (string, error) {
	return i.IssueWithExpiry(userID, email, role, i.now().Add(i.cfg.AccessTTL))
}

// IssueWithExpiry signs a token with an explicit expiry. Every token carries
// a fresh jti, so two tokens for the same subject never compare equal.
func (i *Issuer) IssueWithExpiry(userID, email string, role permission.Role, expiresAt time.Time) (string, error) {
	claims := wireClaims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(expiresAt),
			IssuedAt:  gjwt.NewNumericDate(i.now()),
			Issuer:    i.cfg.Issuer,
			ID:        uuid.NewString(),
		},
	}

	token := gjwt.NewWithClaims(i.method, claims)
	if i.cfg.KeyID != "" {
		token.Header["kid"] = i.cfg.KeyID
	}
	return token.SignedString(i.signKey)
}
