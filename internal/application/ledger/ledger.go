// Package ledger maintains investment funding and fund-level totals. Every
// function takes the caller's transaction handle; none of them commit.
package ledger

import (
	"time"

	"fundgate-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockFund takes a row lock on the fund so concurrent aggregate recomputes for
// the same fund are serialized.
func LockFund(tx *gorm.DB, fundID uuid.UUID) (*domain.Fund, error) {
	var fund domain.Fund
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("fund_id = ?", fundID).
		First(&fund).Error
	if err != nil {
		return nil, err
	}
	return &fund, nil
}

// LockInvestment locks the investment row for investor+fund.
func LockInvestment(tx *gorm.DB, investorID, fundID uuid.UUID) (*domain.Investment, error) {
	var inv domain.Investment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("investor_id = ? AND fund_id = ?", investorID, fundID).
		Order(`"createdAt" ASC`).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ApplyFunding adds amount to the investment's funded total and recomputes its status.
func ApplyFunding(tx *gorm.DB, inv *domain.Investment, amount decimal.Decimal, now time.Time) error {
	funded := inv.FundedAmount.Add(amount)
	status := domain.FundingStatus(funded, inv.CommitmentAmount, inv.Status)
	updates := map[string]interface{}{
		"funded_amount": funded,
		"status":        status,
		"updatedAt":     now,
	}
	if status == domain.InvestmentFunded && inv.CompletedAt == nil {
		updates["completed_at"] = now
		inv.CompletedAt = &now
	}
	if err := tx.Model(&domain.Investment{}).Where("id = ?", inv.ID).Updates(updates).Error; err != nil {
		return err
	}
	inv.FundedAmount = funded
	inv.Status = status
	inv.UpdatedAt = now
	return nil
}

// RecomputeFundAggregate rebuilds the fund's totals from its investments and
// upserts the aggregate row. Callers must hold the fund lock.
func RecomputeFundAggregate(tx *gorm.DB, fundID uuid.UUID, now time.Time) (*domain.FundAggregate, error) {
	var investments []domain.Investment
	if err := tx.Select("investor_id", "commitment_amount", "funded_amount").
		Where("fund_id = ?", fundID).
		Find(&investments).Error; err != nil {
		return nil, err
	}
	agg := domain.FundAggregate{
		FundID:         fundID,
		TotalCommitted: decimal.Zero,
		TotalFunded:    decimal.Zero,
		UpdatedAt:      now,
	}
	investors := make(map[uuid.UUID]struct{}, len(investments))
	for _, inv := range investments {
		investors[inv.InvestorID] = struct{}{}
		agg.TotalCommitted = agg.TotalCommitted.Add(inv.CommitmentAmount)
		agg.TotalFunded = agg.TotalFunded.Add(inv.FundedAmount)
	}
	agg.InvestorCount = len(investors)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fund_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_committed", "total_funded", "investor_count", "updatedAt"}),
	}).Create(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
