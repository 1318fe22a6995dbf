package fakeapi

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const (
	sessionIDSize    = 16
	refreshSecretLen = 32
	refreshTokenLen  = sessionIDSize + refreshSecretLen
)

var errMalformedRefresh = errors.New("malformed refresh token")

type refreshSecret [refreshSecretLen]byte

func newSessionID() (string, error) {
	var sid [sessionIDSize]byte
	if _, err := rand.Read(sid[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sid[:]), nil
}

func newRefreshSecret() (refreshSecret, error) {
	var s refreshSecret
	_, err := rand.Read(s[:])
	return s, err
}

func (s refreshSecret) hash() [32]byte {
	return sha256.Sum256(s[:])
}

func hashesEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// encodeRefreshToken packs the session id and secret into one opaque token.
func encodeRefreshToken(sessionID string, secret refreshSecret) (string, error) {
	sid, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil || len(sid) != sessionIDSize {
		return "", errMalformedRefresh
	}
	var raw [refreshTokenLen]byte
	copy(raw[:sessionIDSize], sid)
	copy(raw[sessionIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func decodeRefreshToken(token string) (string, refreshSecret, error) {
	var secret refreshSecret
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != refreshTokenLen {
		return "", secret, errMalformedRefresh
	}
	copy(secret[:], raw[sessionIDSize:])
	return base64.RawURLEncoding.EncodeToString(raw[:sessionIDSize]), secret, nil
}

// newCode returns a numeric verification code.
func newCode(digits int) (string, error) {
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
