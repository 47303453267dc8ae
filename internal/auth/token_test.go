package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

var tokenSecret = []byte("token-test-secret")

func TestIssueAndParseToken_RoundTrip(t *testing.T) {
	now := time.Now().UTC()
	claims := Claims{UserID: 100, Name: "Alice Smith", Exp: now.Add(time.Hour).Unix()}

	token, err := IssueToken(tokenSecret, claims)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 1 {
		t.Fatalf("token shape: %q", token)
	}

	got, err := ParseToken(tokenSecret, token, now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != claims {
		t.Fatalf("claims = %+v, want %+v", got, claims)
	}
}

func TestParseToken_Expiry(t *testing.T) {
	now := time.Now().UTC()
	token, err := IssueToken(tokenSecret, Claims{UserID: 100, Name: "Alice", Exp: now.Add(time.Minute).Unix()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ParseToken(tokenSecret, token, now); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
	if _, err := ParseToken(tokenSecret, token, now.Add(2*time.Minute)); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expired: err = %v, want ErrExpiredToken", err)
	}
	// Expiry boundary is inclusive: a token dies at its own Exp instant.
	at := time.Unix(now.Add(time.Minute).Unix(), 0)
	if _, err := ParseToken(tokenSecret, token, at); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("at-boundary: err = %v, want ErrExpiredToken", err)
	}
}

func TestParseToken_RejectsTampering(t *testing.T) {
	now := time.Now().UTC()
	token, err := IssueToken(tokenSecret, Claims{UserID: 100, Name: "Alice", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	dot := strings.IndexByte(token, '.')
	payload, sig := token[:dot], token[dot+1:]

	// Payload swapped for different claims, original signature kept.
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"uid":999,"name":"Mallory","exp":9999999999}`))
	if _, err := ParseToken(tokenSecret, forged+"."+sig, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("forged payload: err = %v", err)
	}

	// Signature bit-flipped.
	flipped := sig[:len(sig)-1] + string(sig[len(sig)-1]^1)
	if _, err := ParseToken(tokenSecret, payload+"."+flipped, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("flipped signature: err = %v", err)
	}

	// Signed under a different secret.
	foreign, err := IssueToken([]byte("other-secret"), Claims{UserID: 100, Name: "Alice", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}
	if _, err := ParseToken(tokenSecret, foreign, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret: err = %v", err)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	now := time.Now().UTC()
	for _, token := range []string{
		"",
		"nodot",
		".leadingdot",
		"trailingdot.",
		"too.many.dots",
		"!notb64.!notb64",
	} {
		if _, err := ParseToken(tokenSecret, token, now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestParseToken_RejectsIncompleteClaims(t *testing.T) {
	now := time.Now().UTC()
	for name, claims := range map[string]Claims{
		"zero user": {Name: "Alice", Exp: now.Add(time.Hour).Unix()},
		"no name":   {UserID: 100, Exp: now.Add(time.Hour).Unix()},
		"no exp":    {UserID: 100, Name: "Alice"},
	} {
		token, err := IssueToken(tokenSecret, claims)
		if err != nil {
			t.Fatalf("%s: issue: %v", name, err)
		}
		if _, err := ParseToken(tokenSecret, token, now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}
