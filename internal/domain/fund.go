package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fund is a GP-managed fund owned by one team.
type Fund struct {
	FundID    uuid.UUID `gorm:"column:fund_id;type:uuid;primaryKey" json:"fund_id"`
	TeamID    uuid.UUID `gorm:"column:team_id;type:uuid;not null;index" json:"team_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Currency  string    `gorm:"column:currency;type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Fund) TableName() string {
	return "Funds"
}

func (f *Fund) BeforeCreate(tx *gorm.DB) error {
	if f.FundID == uuid.Nil {
		f.FundID = uuid.New()
	}
	return nil
}

// FundAggregate holds rolled-up committed and funded totals for a fund.
type FundAggregate struct {
	FundID         uuid.UUID       `gorm:"column:fund_id;type:uuid;primaryKey" json:"fund_id"`
	TotalCommitted decimal.Decimal `gorm:"column:total_committed;type:decimal(20,2);not null" json:"total_committed"`
	TotalFunded    decimal.Decimal `gorm:"column:total_funded;type:decimal(20,2);not null" json:"total_funded"`
	InvestorCount  int             `gorm:"column:investor_count;not null;default:0" json:"investor_count"`
	UpdatedAt      time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (FundAggregate) TableName() string {
	return "FundAggregates"
}
