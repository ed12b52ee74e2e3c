package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// BearerAuth checks the Authorization header against the expected token.
// When expectedClientID is non-empty the X-Client-Id header must match it
// as well, so a connector configured for another tenant is rejected even
// if it somehow holds a valid token.
func BearerAuth(token, expectedClientID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			log.Error().Str("path", c.Request.URL.Path).Msg("API token not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server is not configured for authentication"})
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		presented := strings.TrimPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if expectedClientID != "" {
			if got := c.GetHeader("X-Client-Id"); got != expectedClientID {
				log.Warn().Str("client_id", got).Msg("Rejected request with unknown client id")
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown client"})
				return
			}
		}

		c.Next()
	}
}
