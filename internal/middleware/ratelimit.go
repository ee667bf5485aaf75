package middleware

import (
	"immobile-portal/internal/apierror"
	"immobile-portal/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

const msgTooManyRequests = "Muitas requisições, tente novamente mais tarde"

// RateLimit limits requests per authenticated user, falling back to the client IP
func RateLimit(rl *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if user, ok := CurrentUser(c); ok {
			key = "user:" + user.ID
		}

		if !rl.AllowRequest(key) {
			abort(c, apierror.TooManyRequests(msgTooManyRequests))
			return
		}
		c.Next()
	}
}
