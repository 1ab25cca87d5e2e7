package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// TokenVerifier validates an access token and resolves the user it belongs to.
type TokenVerifier interface {
	GetUIDByToken(ctx context.Context, token string) (uint32, bool)
}

// Auth is the session gate: every request on a protected route re-verifies
// the bearer token and carries the owner id in the request context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		uid, valid := verifier.GetUIDByToken(c.Request.Context(), token)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userIDKey, uid)
		c.Next()
	}
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", false
	}
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// UserID returns the owner id set by Auth.
func UserID(c *gin.Context) (uint32, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	uid, ok := v.(uint32)
	return uid, ok
}
