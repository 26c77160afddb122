package middleware

import (
	"fundgate-backend/internal/pkg/constants"
	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission allows the request only when the actor's team role is
// listed for permission in constants.PermissionRoles. A permission missing
// from the table is a server misconfiguration, not a denial.
func AuthorizePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		if actor.Role == "" {
			log.Error().Str("trace_id", GetTraceID(c)).Str("user_id", actor.UserID.String()).Msg("session user has no role")
			return response.Fail(c, fiber.StatusInternalServerError, "ROLE_MISSING", "Authorization error")
		}
		if roles := constants.PermissionRoles[permission]; len(roles) == 0 {
			log.Error().Str("permission", permission).Msg("permission has no roles configured")
			return response.Fail(c, fiber.StatusInternalServerError, "PERMISSION_NOT_CONFIGURED", "Permission configuration error")
		}
		if !constants.AllowedRole(permission, actor.Role) {
			log.Warn().
				Str("trace_id", GetTraceID(c)).
				Str("user_id", actor.UserID.String()).
				Str("team_id", actor.TeamID.String()).
				Str("role", actor.Role).
				Str("permission", permission).
				Msg("permission denied")
			return response.Fail(c, fiber.StatusForbidden, "PERMISSION_DENIED", "User is Forbidden from performing this action", map[string]interface{}{
				"permission": permission,
				"role":       actor.Role,
			})
		}
		return c.Next()
	}
}
