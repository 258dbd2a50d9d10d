package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cutroom/api/pkg/response"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a rate limiting middleware. Keys are per authenticated
// user when auth is enabled, otherwise per client IP.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := GetUserID(c)
		if caller == "" {
			caller = c.IP()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, caller)
		ctx := context.Background()

		// Increment counter
		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// If Redis fails, allow the request
			return c.Next()
		}

		// Set expiration on first request
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// UploadLimit returns a rate limiter for video uploads.
func (rl *RateLimiter) UploadLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("upload", maxPerHour, time.Hour)
}

// ProcessLimit returns a rate limiter for transcode job creation.
func (rl *RateLimiter) ProcessLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("process", maxPerHour, time.Hour)
}

// AILimit returns a rate limiter for AI pipeline job creation.
func (rl *RateLimiter) AILimit(maxPerHour int) fiber.Handler {
	return rl.Limit("ai", maxPerHour, time.Hour)
}

// TranscribeLimit returns a rate limiter for synchronous transcription.
func (rl *RateLimiter) TranscribeLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("transcribe", maxPerHour, time.Hour)
}
