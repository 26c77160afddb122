package middleware

import (
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetActor builds the calling actor from the session user plus request
// metadata. ok is false when the session has no parseable user_id.
func GetActor(c *fiber.Ctx) (domain.Actor, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return domain.Actor{}, false
	}
	userStr, _ := m["user_id"].(string)
	userID, err := uuid.Parse(userStr)
	if err != nil {
		return domain.Actor{}, false
	}
	a := domain.Actor{
		UserID:    userID,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
	a.Role, _ = m["role"].(string)
	if teamStr, _ := m["team_id"].(string); teamStr != "" {
		if teamID, err := uuid.Parse(teamStr); err == nil {
			a.TeamID = teamID
		}
	}
	return a, true
}
