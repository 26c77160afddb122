package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"fundgate-backend/internal/pkg/healthkeys"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func skipStats(path string) bool {
	return path == "/" || path == "/reset" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon")
}

// HealthMarker counts API traffic in Redis for /health/json. 5xx answers count
// as failures and 429s are tracked separately. Stats errors never fail the
// request.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipStats(c.Path()) {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		if err != nil {
			// resolve the final status before counting it
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
			err = nil
		}

		last := map[string]interface{}{
			"time":     start.UTC(),
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   c.Response().StatusCode(),
			"trace_id": GetTraceID(c),
		}
		if actor, ok := GetActor(c); ok {
			last["team_id"] = actor.TeamID.String()
		}
		b, _ := json.Marshal(last)

		ctx := c.UserContext()
		status := c.Response().StatusCode()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, healthkeys.LastReq, b, 0)
		pipe.Incr(ctx, healthkeys.ReqTotal)
		pipe.Incr(ctx, healthkeys.ResCount)
		pipe.IncrByFloat(ctx, healthkeys.ResTime, float64(time.Since(start).Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			pipe.Incr(ctx, healthkeys.ReqErrors)
		}
		if status == fiber.StatusTooManyRequests {
			pipe.Incr(ctx, healthkeys.ReqLimited)
		}
		if _, perr := pipe.Exec(ctx); perr != nil {
			log.Debug().Err(perr).Str("trace_id", GetTraceID(c)).Msg("request stats not recorded")
		}
		return err
	}
}
