package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards admin routes with a shared key. An empty key disables the check.
func AdminKey(required string, logger zerolog.Logger) gin.HandlerFunc {
	if required == "" {
		logger.Warn().Msg("ADMIN_KEY not set, admin routes are open")
	}
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(required)) != 1 {
			logger.Warn().
				Str("request_id", c.GetString(RequestIDHeader)).
				Str("path", c.FullPath()).
				Str("client_ip", c.ClientIP()).
				Bool("key_present", key != "").
				Msg("admin request rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid admin key",
					"details": nil,
				},
			})
			return
		}
		c.Next()
	}
}
