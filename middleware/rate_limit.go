package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/metrics"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit giới hạn theo IP client; Redis lỗi thì cho qua và log.
func RateLimit(limiter RateLimiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ok, wait, err := limiter.Allow(ctx, scope+":"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", slog.String("scope", scope), slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !ok {
			metrics.RateLimitRejectedTotal.WithLabelValues(scope).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
