package auth

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	headerName     = "X-API-Key"
	userHeaderName = "X-User-ID"

	// UserIDKey is the gin context key holding the caller's user id.
	UserIDKey = "user_id"
)

// APIKeyMiddleware validates the API key from the X-API-Key header.
// If apiKey is empty, authentication is disabled.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}

// UserMiddleware identifies the caller from the X-User-ID header, or the
// user_id query parameter for websocket clients that cannot set headers.
// The id must be a positive integer. It is trusted as sent: any holder of the
// API key can act as any user, so end-user deployments need an authenticating
// proxy in front that sets the header.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userHeaderName)
		if raw == "" {
			raw = c.Query("user_id")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid user id",
			})
			return
		}

		c.Set(UserIDKey, id)
		c.Next()
	}
}

// UserID returns the id stored by UserMiddleware.
func UserID(c *gin.Context) int {
	return c.GetInt(UserIDKey)
}
