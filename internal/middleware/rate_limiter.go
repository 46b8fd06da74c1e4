package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/slotwise/booking-api/internal/handler"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter keeps one token bucket per client IP. Buckets for idle clients
// expire after an hour.
type RateLimiter struct {
	cfg     RateLimiterConfig
	buckets *cache.Cache
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		buckets: cache.New(time.Hour, 10*time.Minute),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		var limiter *rate.Limiter
		if v, ok := rl.buckets.Get(ip); ok {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rl.cfg.Rate, rl.cfg.Burst)
			rl.buckets.SetDefault(ip, limiter)
		}
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
