package http

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"tubegrab/internal/config"
)

// rateLimitMiddleware enforces a simple per-minute fixed-window rate limit
// per client IP using Redis. The service is anonymous, so the remote
// address is the only identity we have.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := cfg.RateLimit.DefaultPerMinute
		if limit <= 0 {
			return c.Next()
		}

		now := time.Now().UTC()
		window := now.Format("200601021504") // YYYYMMDDHHMM minute window
		key := fmt.Sprintf("tubegrab:rl:%s:%s", c.IP(), window)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down should not take the service with it.
			return c.Next()
		}
		if count == 1 {
			// First hit in this window; set TTL
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Code:    "RATE_LIMIT_EXCEEDED",
				Error:   "Rate limit exceeded, try again later",
			})
		}

		return c.Next()
	}
}

// localRateLimitMiddleware is the in-process fallback used when no
// Redis is configured: a token bucket per client IP.
func localRateLimitMiddleware(cfg *config.Config) fiber.Handler {
	limit := cfg.RateLimit.DefaultPerMinute
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *fiber.Ctx) error {
		ip := c.IP()

		mu.Lock()
		lim, ok := limiters[ip]
		if !ok {
			// Rough cap on tracked clients.
			if len(limiters) > 10000 {
				limiters = make(map[string]*rate.Limiter)
			}
			lim = rate.NewLimiter(rate.Limit(float64(limit)/60.0), limit)
			limiters[ip] = lim
		}
		mu.Unlock()

		if !lim.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Code:    "RATE_LIMIT_EXCEEDED",
				Error:   "Rate limit exceeded, try again later",
			})
		}
		return c.Next()
	}
}
