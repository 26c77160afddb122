package kyc

import (
	"context"
	"errors"
	"testing"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"
	"fundgate-backend/internal/pkg/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func seedInvestor(t *testing.T, db *gorm.DB, status *string) domain.Investor {
	t.Helper()
	inv := domain.Investor{Name: "LP One", Email: "lp@example.com", KycStatus: status}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func TestEvaluate_AllowList(t *testing.T) {
	for _, s := range []string{domain.KycApproved, domain.KycVerified} {
		d := Evaluate(strPtr(s))
		assert.True(t, d.Allowed, s)
		assert.Equal(t, s, d.CurrentStatus)
	}
	for _, s := range []*string{nil, strPtr(domain.KycNotStarted), strPtr(domain.KycPending), strPtr("approved"), strPtr("Verified"), strPtr("MANUAL_REVIEW"), strPtr("")} {
		d := Evaluate(s)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonKycRequired, d.Reason)
	}
	assert.Equal(t, "", Evaluate(nil).CurrentStatus)
	assert.Equal(t, "PENDING", Evaluate(strPtr("PENDING")).CurrentStatus)
}

func TestGate_Check(t *testing.T) {
	db := testdb.Open(t)
	g := &Gate{DB: db}

	ok := seedInvestor(t, db, strPtr(domain.KycVerified))
	d, err := g.Check(context.Background(), ok.InvestorID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	blocked := seedInvestor(t, db, nil)
	d, err = g.Check(context.Background(), blocked.InvestorID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	_, err = g.Check(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrInvestorNotFound))
}

func TestService_ApplyUpdate_Idempotent(t *testing.T) {
	db := testdb.Open(t)
	rec := &audit.Recorder{}
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := &Service{DB: db, Audit: rec, Now: func() time.Time { return now }}
	inv := seedInvestor(t, db, strPtr(domain.KycPending))

	applied, err := s.ApplyUpdate(context.Background(), Update{EventID: "evt_1", InvestorID: inv.InvestorID, Status: domain.KycVerified})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.ApplyUpdate(context.Background(), Update{EventID: "evt_1", InvestorID: inv.InvestorID, Status: domain.KycRejected})
	require.NoError(t, err)
	assert.False(t, applied)

	var got domain.Investor
	require.NoError(t, db.First(&got, "investor_id = ?", inv.InvestorID).Error)
	assert.Equal(t, domain.KycVerified, got.KycStatusValue())
	assert.Equal(t, int64(2), got.Version)

	events := rec.OfType(audit.EventKycStatusUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, domain.KycPending, events[0].Metadata["previous_status"])
}

func TestService_ApplyUpdate_Errors(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}

	_, err := s.ApplyUpdate(context.Background(), Update{EventID: "evt_x", InvestorID: uuid.New(), Status: "VERIFIED"})
	assert.True(t, errors.Is(err, ErrInvestorNotFound))

	_, err = s.ApplyUpdate(context.Background(), Update{EventID: "", InvestorID: uuid.New(), Status: "VERIFIED"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var n int64
	db.Model(&domain.KycProviderEvent{}).Count(&n)
	assert.Equal(t, int64(0), n)
}
