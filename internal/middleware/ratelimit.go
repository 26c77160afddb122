package middleware

import (
	"fmt"
	"strconv"
	"time"

	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimitConfig for RateLimit. PerMinute caps each actor per fixed one-minute
// window; Burst sizes the process-wide token bucket.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
	Prefix    string
	Now       func() time.Time
}

const defaultRateLimitPrefix = "ratelimit:"

// RateLimit limits requests per actor with a Redis fixed-window counter and
// guards the process with a token bucket. Fails closed when Redis is unavailable.
func RateLimit(rdb *redis.Client, cfg RateLimitConfig) fiber.Handler {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 50
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultRateLimitPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Burst)), cfg.Burst)

	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			log.Warn().Str("trace_id", GetTraceID(c)).Str("path", c.Path()).Msg("Rate limit exceeded (global)")
			return tooManyRequests(c, 1)
		}

		subject := c.IP()
		if actor, ok := GetActor(c); ok {
			subject = actor.UserID.String()
		}
		now := cfg.Now().UTC()
		window := now.Truncate(time.Minute)
		key := fmt.Sprintf("%s%s:%d", cfg.Prefix, subject, window.Unix())

		ctx := c.UserContext()
		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Minute+5*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Msg("rate limiter unavailable")
			return response.Fail(c, fiber.StatusServiceUnavailable, "RATE_LIMITER_UNAVAILABLE", "Service Unavailable")
		}
		if incr.Val() > int64(cfg.PerMinute) {
			retry := int(window.Add(time.Minute).Sub(now).Seconds()) + 1
			log.Warn().Str("trace_id", GetTraceID(c)).Str("subject", subject).Int64("count", incr.Val()).Msg("Rate limit exceeded")
			return tooManyRequests(c, retry)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx, retryAfter int) error {
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	return response.Fail(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too Many Requests")
}
