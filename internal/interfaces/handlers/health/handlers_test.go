package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"fundgate-backend/internal/pkg/healthkeys"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct{}

func (fakeQueue) Pending() int  { return 2 }
func (fakeQueue) Capacity() int { return 64 }

func setupHealthHandlers(t *testing.T) (*Handlers, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return &Handlers{
		Rdb:            rdb,
		AuditQueue:     fakeQueue{},
		HealthAdminKey: "test-admin-key",
	}, mr
}

func TestReset_Unauthorized(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/reset", h.Reset)

	resp, err := app.Test(httptest.NewRequest("GET", "/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "error", out["status"])

	resp, err = app.Test(httptest.NewRequest("GET", "/reset?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestReset_ClearsStats(t *testing.T) {
	h, mr := setupHealthHandlers(t)
	require.NoError(t, mr.Set(healthkeys.ReqTotal, "42"))
	_, err := mr.Lpush(healthkeys.ErrorLog, `{"message":"x"}`)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/reset", h.Reset)
	resp, err := app.Test(httptest.NewRequest("GET", "/reset?key=test-admin-key", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, mr.Exists(healthkeys.ReqTotal))
	assert.False(t, mr.Exists(healthkeys.ErrorLog))
	assert.True(t, mr.Exists(healthkeys.StartTime))
}

func TestJSON_IncludesAuditBacklog(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/health/json", h.JSON)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, serviceName, out["service"])
	assert.Equal(t, "issue", out["status"])
	auditInfo := out["audit"].(map[string]interface{})
	assert.Equal(t, float64(2), auditInfo["pending"])
	deps := out["dependencies"].(map[string]interface{})
	assert.Equal(t, "connected", deps["redis"].(map[string]interface{})["status"])
}

func TestErrors_ReturnsEntries(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	ctx := context.Background()
	require.NoError(t, h.Rdb.LPush(ctx, healthkeys.ErrorLog, `{"message":"audit write failed"}`, "not json").Err())

	app := fiber.New()
	app.Get("/health/errors", h.Errors)
	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	var out []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "audit write failed", out[0]["message"])
}
