package middleware

import (
	"strings"

	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type CORSConfig struct {
	// AllowedSuffix matches the GP console origins, e.g. ".fundgate.io".
	AllowedSuffix string
	DevPassword   string
}

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Content-Type, X-Trace-Id, dev-password"
	corsExposeHeaders = "X-Trace-Id, Retry-After"
)

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

// CORS admits the console origins (suffix match), localhost preflights, and
// callers presenting the dev password. Requests without an Origin header
// (server to server, the KYC provider) pass through untouched.
func CORS(cfg CORSConfig) fiber.Handler {
	suffix := strings.ToLower(cfg.AllowedSuffix)
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		allowed := (suffix != "" && strings.HasSuffix(strings.ToLower(origin), suffix)) ||
			(cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword)
		preflight := c.Method() == fiber.MethodOptions
		if preflight && isLocalOrigin(origin) {
			allowed = true
		}
		if !allowed {
			return response.Fail(c, fiber.StatusForbidden, "CORS_ORIGIN_DENIED", "Not allowed by CORS")
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
		if preflight {
			c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			return c.SendStatus(fiber.StatusNoContent)
		}
		c.Set(fiber.HeaderAccessControlExposeHeaders, corsExposeHeaders)
		return c.Next()
	}
}
