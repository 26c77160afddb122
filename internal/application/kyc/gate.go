// Package kyc holds the KYC gate consulted before any transaction is created,
// and the intake of status updates pushed by the external KYC provider.
package kyc

import (
	"context"

	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ReasonKycRequired = "KYC_REQUIRED"

var ErrInvestorNotFound = apperr.NotFound("INVESTOR_NOT_FOUND", "Investor not found")

// Decision is the gate outcome. CurrentStatus is "" when the investor has no
// recorded KYC status.
type Decision struct {
	Allowed       bool
	Reason        string
	CurrentStatus string
}

// Evaluate applies the allow-list to a stored status.
func Evaluate(status *string) Decision {
	current := ""
	if status != nil {
		current = *status
	}
	if domain.IsKycCleared(current) {
		return Decision{Allowed: true, CurrentStatus: current}
	}
	return Decision{Reason: ReasonKycRequired, CurrentStatus: current}
}

// Gate reads KYC status. It never writes.
type Gate struct {
	DB *gorm.DB
}

func (g *Gate) Check(ctx context.Context, investorID uuid.UUID) (Decision, error) {
	var inv domain.Investor
	err := g.DB.WithContext(ctx).
		Select("investor_id", "kyc_status").
		Where("investor_id = ?", investorID).
		First(&inv).Error
	if err != nil {
		return Decision{}, apperr.FromGorm(err, ErrInvestorNotFound)
	}
	return Evaluate(inv.KycStatus), nil
}
