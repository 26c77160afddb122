package transactions

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/application/kyc"
	"fundgate-backend/internal/application/risk"
	txsvc "fundgate-backend/internal/application/transactions"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/testdb"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type txFixture struct {
	app      *fiber.App
	db       *gorm.DB
	rec      *audit.Recorder
	fund     domain.Fund
	investor domain.Investor
}

func setupTxTest(t *testing.T, kycStatus string) *txFixture {
	db := testdb.Open(t)
	rec := &audit.Recorder{}
	svc := &txsvc.Service{
		DB:     db,
		Gate:   &kyc.Gate{DB: db},
		Policy: risk.DefaultPolicy(),
		Audit:  rec,
		Now:    func() time.Time { return time.Now().UTC() },
	}
	h := &Handlers{Service: svc}
	teamID := uuid.New()
	fund := domain.Fund{TeamID: teamID, Name: "Fund II", Currency: "USD"}
	require.NoError(t, db.Create(&fund).Error)
	inv := domain.Investor{Name: "LP", Email: "lp@example.com", FundID: &fund.FundID, KycStatus: &kycStatus}
	require.NoError(t, db.Create(&inv).Error)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(),
			"team_id": teamID.String(),
			"role":    "manager",
		})
		return c.Next()
	})
	app.Post("/transactions", h.Create)
	app.Get("/transactions", h.List)
	return &txFixture{app: app, db: db, rec: rec, fund: fund, investor: inv}
}

func (f *txFixture) create(t *testing.T, amount string) (int, map[string]interface{}) {
	body := `{"fund_id":"` + f.fund.FundID.String() + `","investor_id":"` + f.investor.InvestorID.String() +
		`","type":"CAPITAL_CALL","amount":"` + amount + `","currency":"usd"}`
	req := httptest.NewRequest("POST", "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func details(out map[string]interface{}) map[string]interface{} {
	return out["error"].(map[string]interface{})["details"].(map[string]interface{})
}

func TestCreate_Created(t *testing.T) {
	f := setupTxTest(t, domain.KycApproved)
	code, out := f.create(t, "50000")
	assert.Equal(t, 201, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, domain.TxStatusPending, data["status"])
	assert.Equal(t, "USD", data["currency"])
	assert.Len(t, f.rec.OfType(audit.EventTransactionCreated), 1)
}

func TestCreate_KycBlocked(t *testing.T) {
	f := setupTxTest(t, domain.KycPending)
	code, out := f.create(t, "50000")
	assert.Equal(t, 403, code)
	assert.Equal(t, "KYC_REQUIRED", details(out)["code"])
	assert.Equal(t, domain.KycPending, details(out)["kyc_status"])
	assert.Len(t, f.rec.OfType(audit.EventTransactionBlockedKyc), 1)
}

func TestCreate_AmlBlocked(t *testing.T) {
	f := setupTxTest(t, domain.KycVerified)
	code, out := f.create(t, "300000")
	assert.Equal(t, 403, code)
	assert.Equal(t, "AML_BLOCKED", details(out)["code"])
}

func TestCreate_BadBody(t *testing.T) {
	f := setupTxTest(t, domain.KycVerified)
	req := httptest.NewRequest("POST", "/transactions", strings.NewReader(`{"fund_id":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestList_FiltersByFund(t *testing.T) {
	f := setupTxTest(t, domain.KycVerified)
	code, _ := f.create(t, "1000")
	require.Equal(t, 201, code)

	resp, err := f.app.Test(httptest.NewRequest("GET", "/transactions?fund_id="+f.fund.FundID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out["data"], 1)

	resp, err = f.app.Test(httptest.NewRequest("GET", "/transactions?fund_id="+uuid.NewString(), nil))
	require.NoError(t, err)
	out = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out["data"], 0)

	resp, err = f.app.Test(httptest.NewRequest("GET", "/transactions?investor_id=bad", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
