package security

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit is a fixed-window limiter keyed by user id (or IP for anonymous
// requests). Redis being down fails open: a purchase is never blocked by the
// limiter's own storage.
func (r *RateLimiter) Limit(max int, window time.Duration) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		ctx := e.Request.Context()

		id := e.RealIP()
		if e.Auth != nil {
			id = fmt.Sprintf("user:%s", e.Auth.Id)
		}
		key := fmt.Sprintf("ratelimit:%s:%s", e.Request.URL.Path, id)

		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("rate limiter unavailable: %v", err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, window)
		}
		if count > int64(max) {
			return apis.NewApiError(429, "Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}

// BlockSuspiciousAgents rejects obvious scripted clients on purchase routes.
func (r *RateLimiter) BlockSuspiciousAgents() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		userAgent := e.Request.Header.Get("User-Agent")
		if isSuspiciousUserAgent(userAgent) {
			return apis.NewForbiddenError("Access denied", nil)
		}
		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
