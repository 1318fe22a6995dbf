package fakeapi

import (
	"testing"
)

func FuzzDecodeRefreshToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	f.Add("dG9vLXNob3J0")
	if sid, err := newSessionID(); err == nil {
		if secret, err := newRefreshSecret(); err == nil {
			if token, err := encodeRefreshToken(sid, secret); err == nil {
				f.Add(token)
			}
		}
	}

	f.Fuzz(func(t *testing.T, input string) {
		sid, secret, err := decodeRefreshToken(input)
		if err != nil {
			return
		}
		token, err := encodeRefreshToken(sid, secret)
		if err != nil {
			t.Fatalf("re-encode decoded token: %v", err)
		}
		sid2, secret2, err := decodeRefreshToken(token)
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if sid2 != sid || secret2 != secret {
			t.Fatal("roundtrip mismatch")
		}
	})
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := verifyPassword("correct horse", hash)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
	if ok, _ := verifyPassword("wrong horse", hash); ok {
		t.Fatal("wrong password verified")
	}
	if _, err := hashPassword("short"); err != errWeakPassword {
		t.Fatalf("expected weak password error, got %v", err)
	}
	if _, err := verifyPassword("x", "$bcrypt$nope"); err == nil {
		t.Fatal("expected malformed hash error")
	}
}

func TestNewCodeIsNumeric(t *testing.T) {
	code, err := newCode(6)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 6 {
		t.Fatalf("len %d", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit %q", c)
		}
	}
}
