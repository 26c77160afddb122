package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"
	"fundgate-backend/internal/pkg/testdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *Service
	db         *gorm.DB
	rec        *audit.Recorder
	actor      domain.Actor
	fund       domain.Fund
	investment domain.Investment
}

func setup(t *testing.T, commitment int64) *fixture {
	t.Helper()
	db := testdb.Open(t)
	rec := &audit.Recorder{}
	actor := domain.Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: "admin", IP: "198.51.100.4", UserAgent: "gp-portal"}
	fund := domain.Fund{TeamID: actor.TeamID, Name: "Fund III", Currency: "USD"}
	require.NoError(t, db.Create(&fund).Error)
	inv := domain.Investment{
		InvestorID:       uuid.New(),
		FundID:           fund.FundID,
		CommitmentAmount: decimal.NewFromInt(commitment),
		FundedAmount:     decimal.Zero,
		Status:           domain.InvestmentCommitted,
	}
	require.NoError(t, db.Create(&inv).Error)
	return &fixture{
		svc:        &Service{DB: db, Audit: rec, Now: func() time.Time { return now }},
		db:         db,
		rec:        rec,
		actor:      actor,
		fund:       fund,
		investment: inv,
	}
}

func (f *fixture) seedTx(t *testing.T, status string, amount int64) domain.Transaction {
	t.Helper()
	txn := domain.Transaction{
		Type:        domain.TxTypeCapitalCall,
		FundID:      f.fund.FundID,
		InvestorID:  f.investment.InvestorID,
		TeamID:      f.fund.TeamID,
		Amount:      decimal.NewFromInt(amount),
		Currency:    "USD",
		Status:      status,
		InitiatedBy: f.actor.UserID,
		InitiatedAt: now.Add(-48 * time.Hour),
	}
	require.NoError(t, f.db.Create(&txn).Error)
	return txn
}

func confirmInput(id uuid.UUID, amount int64) ConfirmInput {
	ref := "FED-20260803-001"
	return ConfirmInput{
		TransactionID:     id,
		AmountReceived:    decimal.NewFromInt(amount),
		FundsReceivedDate: now.Add(-6 * time.Hour),
		BankReference:     &ref,
	}
}

func (f *fixture) reloadInvestment(t *testing.T) domain.Investment {
	var inv domain.Investment
	require.NoError(t, f.db.First(&inv, "id = ?", f.investment.ID).Error)
	return inv
}

func TestUploadProof(t *testing.T) {
	f := setup(t, 100_000)
	txn := f.seedTx(t, domain.TxStatusPending, 40_000)

	got, err := f.svc.UploadProof(context.Background(), f.actor, txn.TxID, ProofInput{DocumentRef: "docs/wire-123.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusProofUploaded, got.Status)
	assert.Equal(t, int64(2), got.Version)

	var stored domain.Transaction
	require.NoError(t, f.db.First(&stored, "tx_id = ?", txn.TxID).Error)
	assert.Equal(t, domain.TxStatusProofUploaded, stored.Status)
	require.NotNil(t, stored.ProofDocumentRef)
	assert.Equal(t, "docs/wire-123.pdf", *stored.ProofDocumentRef)

	_, err = f.svc.UploadProof(context.Background(), f.actor, txn.TxID, ProofInput{DocumentRef: "again.pdf"})
	assert.True(t, errors.Is(err, ErrNotAwaitingProof))
	assert.Len(t, f.rec.OfType(audit.EventProofUploaded), 1)

	_, err = f.svc.UploadProof(context.Background(), f.actor, txn.TxID, ProofInput{})
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "MISSING_FIELDS", e.Code)
}

func TestConfirmWire_PartialThenFull(t *testing.T) {
	f := setup(t, 100_000)
	first := f.seedTx(t, domain.TxStatusProofUploaded, 40_000)
	second := f.seedTx(t, domain.TxStatusProofUploaded, 60_000)

	out, err := f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(first.TxID, 40_000))
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, out.Transaction.Status)
	assert.Equal(t, domain.InvestmentPartiallyFunded, out.Investment.Status)
	assert.True(t, out.FundAggregate.TotalFunded.Equal(decimal.NewFromInt(40_000)))
	assert.True(t, out.FundAggregate.TotalCommitted.Equal(decimal.NewFromInt(100_000)))

	out, err = f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(second.TxID, 60_000))
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentFunded, out.Investment.Status)

	inv := f.reloadInvestment(t)
	assert.True(t, inv.FundedAmount.Equal(decimal.NewFromInt(100_000)))
	assert.Equal(t, domain.InvestmentFunded, inv.Status)
	assert.NotNil(t, inv.CompletedAt)

	var stored domain.Transaction
	require.NoError(t, f.db.First(&stored, "tx_id = ?", second.TxID).Error)
	assert.Equal(t, domain.TxStatusCompleted, stored.Status)
	require.NotNil(t, stored.ConfirmedAt)
	require.NotNil(t, stored.FundsReceivedDate)
	assert.True(t, stored.FundsReceivedDate.Equal(now.Add(-6*time.Hour)))
	require.NotNil(t, stored.AmountReceived)
	assert.True(t, stored.AmountReceived.Equal(decimal.NewFromInt(60_000)))
	assert.Equal(t, "FED-20260803-001", *stored.BankReference)
	assert.Equal(t, f.actor.UserID, *stored.ConfirmedBy)

	var events []domain.TransactionEvent
	require.NoError(t, f.db.Where("tx_id = ? AND action = ?", second.TxID, domain.TxEventWireConfirmed).Find(&events).Error)
	assert.Len(t, events, 1)
	assert.Len(t, f.rec.OfType(audit.EventWireConfirmed), 2)
}

func TestConfirmWire_SecondConfirmationConflicts(t *testing.T) {
	f := setup(t, 100_000)
	txn := f.seedTx(t, domain.TxStatusProofUploaded, 50_000)

	_, err := f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(txn.TxID, 50_000))
	require.NoError(t, err)
	_, err = f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(txn.TxID, 50_000))
	assert.True(t, errors.Is(err, ErrAlreadySettled))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	assert.True(t, f.reloadInvestment(t).FundedAmount.Equal(decimal.NewFromInt(50_000)))
}

func TestConfirmWire_ConcurrentDoubleConfirm(t *testing.T) {
	f := setup(t, 100_000)
	txn := f.seedTx(t, domain.TxStatusProofUploaded, 30_000)

	const attempts = 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(txn.TxID, 30_000))
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadySettled):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)

	inv := f.reloadInvestment(t)
	assert.True(t, inv.FundedAmount.Equal(decimal.NewFromInt(30_000)))

	var n int64
	require.NoError(t, f.db.Model(&domain.TransactionEvent{}).Where("tx_id = ? AND action = ?", txn.TxID, domain.TxEventWireConfirmed).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	var agg domain.FundAggregate
	require.NoError(t, f.db.First(&agg, "fund_id = ?", f.fund.FundID).Error)
	assert.True(t, agg.TotalFunded.Equal(decimal.NewFromInt(30_000)))
}

func TestConfirmWire_StaleReadLosesToConcurrentSettler(t *testing.T) {
	f := setup(t, 100_000)
	txn := f.seedTx(t, domain.TxStatusProofUploaded, 30_000)

	// another settler commits after our status read and before our conditional update
	fired := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:concurrent_settler", func(d *gorm.DB) {
		if fired || d.Statement.Table != "Transactions" {
			return
		}
		fired = true
		d.AddError(d.Session(&gorm.Session{NewDB: true}).
			Exec(`UPDATE "Transactions" SET status = ?, version = version + 1 WHERE tx_id = ?`, domain.TxStatusCompleted, txn.TxID).Error)
	}))

	_, err := f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(txn.TxID, 30_000))
	require.True(t, fired)
	assert.True(t, errors.Is(err, ErrAlreadySettled))
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int64(1), e.Details["version"])

	assert.True(t, f.reloadInvestment(t).FundedAmount.IsZero())
	var n int64
	require.NoError(t, f.db.Model(&domain.TransactionEvent{}).Where("tx_id = ? AND action = ?", txn.TxID, domain.TxEventWireConfirmed).Count(&n).Error)
	assert.Equal(t, int64(0), n)
	require.NoError(t, f.db.Model(&domain.FundAggregate{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
	assert.Empty(t, f.rec.OfType(audit.EventWireConfirmed))
}

func TestConfirmWire_DifferentTransactionsInParallel(t *testing.T) {
	f := setup(t, 100_000)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		ids = append(ids, f.seedTx(t, domain.TxStatusProofUploaded, 10_000).TxID)
	}
	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(id, 10_000))
		}(i, id)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.True(t, f.reloadInvestment(t).FundedAmount.Equal(decimal.NewFromInt(40_000)))

	var agg domain.FundAggregate
	require.NoError(t, f.db.First(&agg, "fund_id = ?", f.fund.FundID).Error)
	assert.True(t, agg.TotalFunded.Equal(decimal.NewFromInt(40_000)))
}

func TestConfirmWire_Rejections(t *testing.T) {
	f := setup(t, 100_000)
	pending := f.seedTx(t, domain.TxStatusPending, 10_000)
	uploaded := f.seedTx(t, domain.TxStatusProofUploaded, 10_000)

	_, err := f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(uuid.New(), 10_000))
	assert.True(t, errors.Is(err, ErrTransactionNotFound))

	_, err = f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(pending.TxID, 10_000))
	assert.True(t, errors.Is(err, ErrAlreadySettled))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, domain.TxStatusPending, e.Details["status"])

	other := f.actor
	other.TeamID = uuid.New()
	_, err = f.svc.ConfirmWire(context.Background(), other, confirmInput(uploaded.TxID, 10_000))
	assert.True(t, errors.Is(err, ErrFundNotInTeam))

	_, err = f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(uploaded.TxID, 0))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	future := confirmInput(uploaded.TxID, 10_000)
	future.FundsReceivedDate = now.Add(time.Hour)
	_, err = f.svc.ConfirmWire(context.Background(), f.actor, future)
	assert.True(t, errors.Is(err, ErrInvalidReceivedDate))

	assert.True(t, f.reloadInvestment(t).FundedAmount.IsZero())
	assert.Empty(t, f.rec.OfType(audit.EventWireConfirmed))
}

func TestConfirmWire_MissingInvestmentRollsBack(t *testing.T) {
	f := setup(t, 100_000)
	txn := f.seedTx(t, domain.TxStatusProofUploaded, 10_000)
	require.NoError(t, f.db.Delete(&domain.Investment{}, "id = ?", f.investment.ID).Error)

	_, err := f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(txn.TxID, 10_000))
	assert.True(t, errors.Is(err, ErrInvestmentNotFound))

	var stored domain.Transaction
	require.NoError(t, f.db.First(&stored, "tx_id = ?", txn.TxID).Error)
	assert.Equal(t, domain.TxStatusProofUploaded, stored.Status)
	assert.Equal(t, int64(1), stored.Version)

	var n int64
	require.NoError(t, f.db.Model(&domain.FundAggregate{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestConfirmWire_DistributionNotSettledByWire(t *testing.T) {
	f := setup(t, 100_000)
	txn := f.seedTx(t, domain.TxStatusProofUploaded, 10_000)
	require.NoError(t, f.db.Model(&domain.Transaction{}).Where("tx_id = ?", txn.TxID).Update("type", domain.TxTypeDistribution).Error)

	_, err := f.svc.ConfirmWire(context.Background(), f.actor, confirmInput(txn.TxID, 10_000))
	assert.True(t, errors.Is(err, ErrNotCapitalCall))
}
