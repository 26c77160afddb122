package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RouteLogger writes one line per request once it completes. The acting user
// and team are attached when the session resolved one.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var ev *zerolog.Event
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			ev = log.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		ev = ev.Str("trace_id", GetTraceID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("ms", time.Since(start).Milliseconds())
		if actor, ok := GetActor(c); ok {
			ev = ev.Str("user_id", actor.UserID.String()).Str("team_id", actor.TeamID.String()).Str("role", actor.Role)
		}
		ev.Msg("request")
		return err
	}
}
