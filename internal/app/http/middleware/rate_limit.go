package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"membership-app/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

var limiter = ratelimit.New()

// KeyByUser scopes a limit to the authenticated member; it must run after
// AuthMiddleware. KeyByIP is for unauthenticated surfaces (the webhook).
func KeyByUser(c *gin.Context) string {
	return "user:" + strconv.FormatUint(uint64(c.GetUint("user_id")), 10)
}

func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// RateLimit binds one (scope, limit, window) policy to an endpoint and
// stamps the telemetry headers on every response.
func RateLimit(scope string, max int, window time.Duration, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := limiter.Check(scope+":"+keyFn(c), max, window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Seconds() + 0.5)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Too many requests, retry in %ds", retryAfter),
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
