package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/move-league/move-league-backend/pkg/logger"
	"github.com/move-league/move-league-backend/pkg/ratelimit"
)

// KeyFunc extracts the rate limit key for a request.
type KeyFunc func(*gin.Context) string

// UserKeyFunc keys on the authenticated user and falls back to the client IP.
func UserKeyFunc(c *gin.Context) string {
	if userID := UserID(c); userID != "" {
		return fmt.Sprintf("user:%s", userID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter
// errors fail open.
func RateLimit(limiter ratelimit.Limiter, keyFunc KeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = UserKeyFunc
	}

	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"kind": "RATE_LIMITED", "message": "Too many requests, slow down"},
			})
			return
		}

		c.Next()
	}
}
