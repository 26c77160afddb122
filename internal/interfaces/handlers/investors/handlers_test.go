package investors

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fundgate-backend/internal/application/approval"
	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupInvestorsTest(t *testing.T) (*fiber.App, *gorm.DB, uuid.UUID) {
	db := testdb.Open(t)
	svc := &approval.Service{DB: db, Audit: &audit.Recorder{}, Now: func() time.Time { return time.Now().UTC() }}
	h := &Handlers{Service: svc}
	teamID := uuid.New()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(),
			"team_id": teamID.String(),
			"role":    "admin",
		})
		return c.Next()
	})
	app.Post("/investors/bulk-approve", h.BulkApprove)
	app.Post("/investors/:id/transition", h.Transition)
	app.Post("/investors/:id/confirm-funded", h.ConfirmFunded)
	app.Get("/investors/:id/history", h.History)
	return app, db, teamID
}

func seed(t *testing.T, db *gorm.DB, teamID uuid.UUID, stage domain.Stage) domain.Investor {
	fund := domain.Fund{TeamID: teamID, Name: "Fund I", Currency: "USD"}
	require.NoError(t, db.Create(&fund).Error)
	inv := domain.Investor{FundID: &fund.FundID, Name: "LP", Email: uuid.NewString() + "@example.com", Stage: &stage, NdaSigned: true}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]interface{}) {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(out map[string]interface{}) interface{} {
	return out["error"].(map[string]interface{})["details"].(map[string]interface{})["code"]
}

func TestTransition_OK(t *testing.T) {
	app, db, teamID := setupInvestorsTest(t)
	inv := seed(t, db, teamID, domain.StageApplied)

	code, out := post(t, app, "/investors/"+inv.InvestorID.String()+"/transition", `{"to_stage":"under_review","notes":"docs in"}`)
	assert.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "APPLIED", data["from"])
	assert.Equal(t, "UNDER_REVIEW", data["to"])

	req := httptest.NewRequest("GET", "/investors/"+inv.InvestorID.String()+"/history", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var hist map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	assert.Len(t, hist["data"], 1)
}

func TestTransition_InvalidTransition(t *testing.T) {
	app, db, teamID := setupInvestorsTest(t)
	inv := seed(t, db, teamID, domain.StageApplied)

	code, out := post(t, app, "/investors/"+inv.InvestorID.String()+"/transition", `{"to_stage":"FUNDED"}`)
	assert.Equal(t, 400, code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(out))
}

func TestTransition_GateFailed(t *testing.T) {
	app, db, teamID := setupInvestorsTest(t)
	inv := seed(t, db, teamID, domain.StageUnderReview)

	code, out := post(t, app, "/investors/"+inv.InvestorID.String()+"/transition", `{"to_stage":"APPROVED"}`)
	assert.Equal(t, 403, code)
	assert.Equal(t, "GATE_FAILED", errorCode(out))
}

func TestTransition_StaleExpectedStage(t *testing.T) {
	app, db, teamID := setupInvestorsTest(t)
	inv := seed(t, db, teamID, domain.StageApplied)

	code, out := post(t, app, "/investors/"+inv.InvestorID.String()+"/transition", `{"to_stage":"UNDER_REVIEW","expected_stage":"APPROVED"}`)
	assert.Equal(t, 409, code)
	assert.Equal(t, "STALE_STAGE", errorCode(out))
}

func TestTransition_BadIDAndUnknownInvestor(t *testing.T) {
	app, _, _ := setupInvestorsTest(t)

	code, _ := post(t, app, "/investors/not-a-uuid/transition", `{"to_stage":"UNDER_REVIEW"}`)
	assert.Equal(t, 400, code)

	code, out := post(t, app, "/investors/"+uuid.NewString()+"/transition", `{"to_stage":"UNDER_REVIEW"}`)
	assert.Equal(t, 404, code)
	assert.Equal(t, "INVESTOR_NOT_FOUND", errorCode(out))
}

func TestBulkApprove_PartialFailure(t *testing.T) {
	app, db, teamID := setupInvestorsTest(t)
	ready := seed(t, db, teamID, domain.StageUnderReview)
	require.NoError(t, db.Create(&domain.AccreditationCertification{
		InvestorID:   ready.InvestorID,
		Status:       domain.CertificationCompleted,
		Acknowledged: true,
	}).Error)
	notReady := seed(t, db, teamID, domain.StageApplied)

	body := `{"investor_ids":["` + ready.InvestorID.String() + `","` + notReady.InvestorID.String() + `"]}`
	code, out := post(t, app, "/investors/bulk-approve", body)
	assert.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.Len(t, data["approved"], 1)
	assert.Len(t, data["failed"], 1)

	code, _ = post(t, app, "/investors/bulk-approve", `{"investor_ids":[]}`)
	assert.Equal(t, 400, code)
	code, _ = post(t, app, "/investors/bulk-approve", `{"investor_ids":["nope"]}`)
	assert.Equal(t, 400, code)
}

func TestConfirmFunded(t *testing.T) {
	app, db, teamID := setupInvestorsTest(t)
	inv := seed(t, db, teamID, domain.StageCommitted)

	code, out := post(t, app, "/investors/"+inv.InvestorID.String()+"/confirm-funded", `{"fund_id":"`+inv.FundID.String()+`"}`)
	assert.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.NotNil(t, data)

	other := domain.Fund{TeamID: uuid.New(), Name: "Other", Currency: "USD"}
	require.NoError(t, db.Create(&other).Error)
	code, out = post(t, app, "/investors/"+inv.InvestorID.String()+"/confirm-funded", `{"fund_id":"`+other.FundID.String()+`"}`)
	assert.Equal(t, 403, code)
	assert.Equal(t, "FUND_NOT_IN_TEAM", errorCode(out))

	code, _ = post(t, app, "/investors/"+inv.InvestorID.String()+"/confirm-funded", `{}`)
	assert.Equal(t, 400, code)
}

func TestTransition_OtherTeamForbidden(t *testing.T) {
	app, db, _ := setupInvestorsTest(t)
	inv := seed(t, db, uuid.New(), domain.StageApplied)

	code, out := post(t, app, "/investors/"+inv.InvestorID.String()+"/transition", `{"to_stage":"UNDER_REVIEW"}`)
	assert.Equal(t, 403, code)
	assert.Equal(t, "INVESTOR_NOT_IN_TEAM", errorCode(out))

	resp, err := app.Test(httptest.NewRequest("GET", "/investors/"+inv.InvestorID.String()+"/history", nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestHandlers_NoSession(t *testing.T) {
	db := testdb.Open(t)
	h := &Handlers{Service: &approval.Service{DB: db}}
	app := fiber.New()
	app.Post("/investors/:id/transition", h.Transition)

	req := httptest.NewRequest("POST", "/investors/"+uuid.NewString()+"/transition", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
