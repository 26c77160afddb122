package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvestmentApplied         = "APPLIED"
	InvestmentCommitted       = "COMMITTED"
	InvestmentPartiallyFunded = "PARTIALLY_FUNDED"
	InvestmentFunded          = "FUNDED"
)

// Investment links an investor to a fund. FundedAmount is only ever increased,
// and only by wire settlement or manual reconciliation.
type Investment struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvestorID       uuid.UUID       `gorm:"column:investor_id;type:uuid;not null;index:idx_investment_investor_fund" json:"investor_id"`
	FundID           uuid.UUID       `gorm:"column:fund_id;type:uuid;not null;index:idx_investment_investor_fund" json:"fund_id"`
	CommitmentAmount decimal.Decimal `gorm:"column:commitment_amount;type:decimal(20,2);not null" json:"commitment_amount"`
	FundedAmount     decimal.Decimal `gorm:"column:funded_amount;type:decimal(20,2);not null" json:"funded_amount"`
	Status           string          `gorm:"column:status;type:varchar(20);not null" json:"status"`
	IsManual         bool            `gorm:"column:is_manual;not null;default:false" json:"is_manual"`
	VerifiedAt       *time.Time      `gorm:"column:verified_at" json:"verified_at"`
	CompletedAt      *time.Time      `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt        time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Investment) TableName() string {
	return "Investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// FundingStatus derives the investment status from funded vs commitment.
func FundingStatus(funded, commitment decimal.Decimal, current string) string {
	switch {
	case funded.IsPositive() && funded.GreaterThanOrEqual(commitment):
		return InvestmentFunded
	case funded.IsPositive():
		return InvestmentPartiallyFunded
	default:
		return current
	}
}
