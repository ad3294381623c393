package middleware

import (
	"net/http"
	"strings"

	"repairhub/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "session_token"
	accountIDKey      = "account_id"
)

// AccountID returns the authenticated account id, or 0 for anonymous requests.
func AccountID(c *gin.Context) int64 {
	return c.GetInt64(accountIDKey)
}

// SessionToken reads the session token from the cookie or, failing that,
// from an "Authorization: Bearer" header. ok is false when neither is
// present; a malformed header yields ok with an empty token.
func SessionToken(c *gin.Context) (token string, ok bool) {
	if v, err := c.Cookie(SessionCookieName); err == nil && v != "" {
		return v, true
	}
	h := c.GetHeader("Authorization")
	if h == "" {
		return "", false
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return "", true
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), true
}

// RequireSession rejects requests without a valid session token and stores
// the account id for handlers.
func RequireSession(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := SessionToken(c)
		if !ok {
			abortUnauthorized(c, "AUTH_HEADER_MISSING", "Sign in required")
			return
		}
		if token == "" {
			abortUnauthorized(c, "INVALID_AUTH_FORMAT", "Invalid Authorization header")
			return
		}

		claims, err := j.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "INVALID_TOKEN", "Session expired or invalid")
			return
		}

		c.Set(accountIDKey, claims.AccountID)
		c.Next()
	}
}

// OptionalSession stores the account id when a valid token is present and
// lets every request through.
func OptionalSession(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := SessionToken(c); ok && token != "" {
			if claims, err := j.ValidateToken(token); err == nil {
				c.Set(accountIDKey, claims.AccountID)
			}
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}
