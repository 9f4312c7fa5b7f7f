package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	// RPS is the sustained number of requests per second per client IP.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// Idle is how long an unused client bucket is kept.
	Idle time.Duration
}

// RateLimit returns a gin middleware that keeps one token bucket per client
// IP. Requests over the limit receive 429 with a Retry-After header.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Ceil(cfg.RPS))
	}
	if cfg.Idle <= 0 {
		cfg.Idle = 10 * time.Minute
	}
	buckets := gocache.New(cfg.Idle, cfg.Idle/2)
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/cfg.RPS))))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		lim := bucket(buckets, ip, cfg)

		if !lim.Allow() {
			c.Header("Retry-After", retryAfter)
			if c.GetHeader("HX-Request") == "true" {
				c.Header("HX-Trigger", `{"showToast":[{"type":"error","message":"Too many requests, slow down"}]}`)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// bucket returns the limiter for ip, creating it on first sight and
// refreshing its expiry on every hit.
func bucket(buckets *gocache.Cache, ip string, cfg RateLimitConfig) *rate.Limiter {
	if v, ok := buckets.Get(ip); ok {
		lim := v.(*rate.Limiter)
		buckets.Set(ip, lim, gocache.DefaultExpiration)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	if err := buckets.Add(ip, lim, gocache.DefaultExpiration); err != nil {
		// Lost the race to a concurrent request from the same client.
		if v, ok := buckets.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}
