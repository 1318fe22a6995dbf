package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be decoded into claims.
var ErrMalformed = errors.New("malformed access token")

// SigningMethod selects how [Decoder] treats token signatures.
type SigningMethod string

const (
	// MethodNone decodes without verifying the signature.
	MethodNone SigningMethod = ""
	// MethodHS256 verifies HMAC-SHA256 signatures with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 verifies EdDSA signatures with an Ed25519 public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// DecoderConfig configures a [Decoder].
type DecoderConfig struct {
	SigningMethod SigningMethod
	// Key is the HS256 secret or the Ed25519 public key (raw or PEM).
	Key    []byte
	Issuer string
}

// Decoder turns access token strings into [Claims].
//
// Decoder is immutable after construction and safe for concurrent use.
type Decoder struct {
	method    SigningMethod
	verifyKey interface{}
	issuer    string
	parser    *gjwt.Parser
}

// NewDecoder validates cfg and returns a Decoder.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	d := &Decoder{method: cfg.SigningMethod, issuer: cfg.Issuer}

	// Expiry is evaluated by the session manager against its own buffer.
	options := []gjwt.ParserOption{gjwt.WithoutClaimsValidation()}

	switch cfg.SigningMethod {
	case MethodNone:
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a verification key")
		}
		d.verifyKey = append([]byte(nil), cfg.Key...)
		options = append(options, gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}))
	case MethodEd25519:
		pub, err := parseEdPublicKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		d.verifyKey = pub
		options = append(options, gjwt.WithValidMethods([]string{gjwt.SigningMethodEdDSA.Alg()}))
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	d.parser = gjwt.NewParser(options...)
	return d, nil
}

// Verifies reports whether the decoder checks signatures.
func (d *Decoder) Verifies() bool {
	return d.method != MethodNone
}

// Decode parses token and returns its claims. The token must carry an exp claim.
func (d *Decoder) Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMalformed
	}

	wc := &wireClaims{}
	var err error
	if d.method == MethodNone {
		_, _, err = d.parser.ParseUnverified(token, wc)
	} else {
		_, err = d.parser.ParseWithClaims(token, wc, func(*gjwt.Token) (interface{}, error) {
			return d.verifyKey, nil
		})
	}
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wc.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", ErrMalformed)
	}
	if d.method != MethodNone && d.issuer != "" && wc.Issuer != d.issuer {
		return Claims{}, fmt.Errorf("%w: unexpected issuer %q", ErrMalformed, wc.Issuer)
	}

	return wc.toClaims(), nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := gjwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := gjwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}
