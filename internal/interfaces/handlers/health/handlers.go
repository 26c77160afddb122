package health

import (
	"encoding/json"
	"strconv"
	"time"

	healthsvc "fundgate-backend/internal/application/health"
	"fundgate-backend/internal/pkg/healthkeys"
	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const serviceName = "fundgate-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	AuditQueue     healthsvc.AuditQueue
	HealthAdminKey string
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Fail(c, fiber.StatusForbidden, "HEALTH_KEY_INVALID", "Unauthorized")
	}
	ctx := c.UserContext()
	if err := h.Rdb.Del(ctx, healthkeys.All...).Err(); err != nil {
		return response.FromError(c, err)
	}
	if err := h.Rdb.Set(ctx, healthkeys.StartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err(); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns health data: service, status, runtime, traffic, dependencies and audit backlog.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.UserContext(), h.Rdb, h.DB, h.AuditQueue)
	out := map[string]interface{}{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	}
	if result.Audit != nil {
		out["audit"] = result.Audit
	}
	return c.JSON(out)
}

// Errors returns the last 50 error log entries from Redis, including failed audit writes.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Rdb.LRange(c.UserContext(), healthkeys.ErrorLog, 0, 49).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	errors := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if _ = json.Unmarshal([]byte(s), &m); m != nil {
			errors = append(errors, m)
		}
	}
	return c.JSON(errors)
}
