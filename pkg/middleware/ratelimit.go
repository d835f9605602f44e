package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/hazardwatch/pkg/ratelimit"
)

// RateLimit 写接口限流中间件，key 按客户端 IP 维度。
// Redis 故障时放行，限流不能成为可用性瓶颈。
func RateLimit(limiter ratelimit.Limiter, prefix string, limit ratelimit.Limit, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := prefix + ":" + c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limit check failed, allowing request", "key", key, "error", err)
			c.Next()
			return
		}
		if !res.Allowed {
			c.Header("Retry-After", res.RetryAfter.String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}
		c.Next()
	}
}
