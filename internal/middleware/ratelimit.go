package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/debugmentor/debugmentor-backend/internal/gate"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
)

type RateLimitMiddleware struct {
	log  *logger.Logger
	gate *gate.Gate
}

func NewRateLimitMiddleware(log *logger.Logger, g *gate.Gate) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		log:  log.With("middleware", "RateLimitMiddleware"),
		gate: g,
	}
}

// LimitByIP admits requests through the given bucket keyed by client IP.
// Used on the auth endpoints, where no identity exists yet.
func (rm *RateLimitMiddleware) LimitByIP(bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := rm.gate.Admit(c.Request.Context(), bucket, c.ClientIP())
		if err != nil {
			// Counter infrastructure failure: let the request through.
			rm.log.Warn("rate limit counter unavailable", "bucket", bucket, "error", err)
			c.Next()
			return
		}
		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":        "rate_limited",
					"message":     "too many requests, slow down",
					"retry_after": retryAfter,
				},
			})
			return
		}
		c.Next()
	}
}
