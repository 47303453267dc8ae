// Package auth implements the identity-proof step for the embedded web
// client: verification of the chat platform's signed login payload
// (initData) and issuance of time-boxed session tokens that stand in for
// "currently in a private context with a known identity".
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Claims is the payload carried by a session token.
type Claims struct {
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
	Exp    int64  `json:"exp"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// IssueToken signs claims with the secret and returns "payload.signature"
// (both base64url, no padding). Exp must already be set by the caller.
func IssueToken(secret []byte, claims Claims) (string, error) {
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(secret, payload), nil
}

// ParseToken verifies the signature and expiry and returns the claims.
// The signature check runs before any payload decoding, and uses a
// constant-time comparison.
func ParseToken(secret []byte, token string, now time.Time) (Claims, error) {
	dot := -1
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			if dot >= 0 {
				return Claims{}, ErrInvalidToken
			}
			dot = i
		}
	}
	if dot <= 0 || dot == len(token)-1 {
		return Claims{}, ErrInvalidToken
	}
	payload, signature := token[:dot], token[dot+1:]

	expected := sign(secret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return Claims{}, ErrInvalidToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == 0 || claims.Name == "" || claims.Exp == 0 {
		return Claims{}, ErrInvalidToken
	}
	if now.Unix() >= claims.Exp {
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}

func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
