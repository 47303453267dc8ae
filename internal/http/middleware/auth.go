// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer session-token authentication. Tokens are
// short-lived HMAC-signed credentials minted by the session endpoint after
// Telegram WebApp initData verification; this middleware only checks the
// signature and expiry and stashes the caller identity for handlers.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/groupasks/askbot/internal/auth"
)

// Context keys for the authenticated caller identity.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUserName = "userName"
)

// UserIDFrom returns the authenticated Telegram user id stored by SessionAuth.
// The second return value indicates presence.
func UserIDFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// UserNameFrom returns the display name carried by the session token, or "".
func UserNameFrom(c *gin.Context) string {
	v, ok := c.Get(ctxKeyUserName)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SessionAuth enforces a valid "Authorization: Bearer <token>" header on every
// request it guards. On success the caller's user id and display name are
// stored in the Gin context; on failure the request is aborted with 401 and
// the standard error envelope.
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			unauthorized(c, "missing bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := auth.ParseToken([]byte(secret), token, time.Now().UTC())
		if err != nil {
			msg := "invalid session token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "session expired"
			}
			unauthorized(c, msg)
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyUserName, claims.Name)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
