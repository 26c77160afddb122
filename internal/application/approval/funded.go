package approval

import (
	"context"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/application/ledger"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrFundNotFound = apperr.NotFound("FUND_NOT_FOUND", "Fund not found")

type FundedResult struct {
	Transition *Result `json:"transition,omitempty"`
	Reconciled int     `json:"reconciled"`
}

// ConfirmWireFunded moves the investor to FUNDED, then reconciles the manual
// (offline) investments the investor holds in the fund. An investor already
// FUNDED skips the transition so a failed reconciliation can be retried.
func (s *Service) ConfirmWireFunded(ctx context.Context, actor domain.Actor, investorID, fundID uuid.UUID, notes string) (*FundedResult, error) {
	var fund domain.Fund
	if err := s.DB.WithContext(ctx).Where("fund_id = ?", fundID).First(&fund).Error; err != nil {
		return nil, apperr.FromGorm(err, ErrFundNotFound)
	}
	if actor.TeamID != fund.TeamID {
		return nil, apperr.Authorization("FUND_NOT_IN_TEAM", "fund not in team")
	}

	inv, err := s.loadInvestor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	var held int64
	if err := s.DB.WithContext(ctx).Model(&domain.Investment{}).
		Where("investor_id = ? AND fund_id = ?", investorID, fundID).
		Count(&held).Error; err != nil {
		return nil, apperr.Internal("STORAGE_FAILURE", err)
	}
	if held == 0 && (inv.FundID == nil || *inv.FundID != fundID) {
		return nil, ErrInvestorNotInFund
	}
	stage, err := currentStage(inv)
	if err != nil {
		return nil, err
	}

	out := &FundedResult{}
	if stage != domain.StageFunded {
		res, err := s.Transition(ctx, actor, TransitionInput{InvestorID: investorID, To: domain.StageFunded, Notes: notes})
		if err != nil {
			return nil, err
		}
		out.Transition = res
	}

	n, err := s.reconcileManual(ctx, investorID, fundID)
	if err != nil {
		log.Error().Err(err).Str("investor_id", investorID.String()).Str("fund_id", fundID.String()).Msg("manual investment reconciliation failed")
		return out, apperr.Internal("RECONCILE_FAILED", err)
	}
	out.Reconciled = n
	if n > 0 {
		audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventManualInvestmentsReconciled, audit.ResourceInvestor, investorID.String(), map[string]interface{}{
			"fund_id":    fundID.String(),
			"reconciled": n,
		}))
	}
	return out, nil
}

// reconcileManual marks unverified manual investments verified, completed and
// fully funded. Already verified records are left alone.
func (s *Service) reconcileManual(ctx context.Context, investorID, fundID uuid.UUID) (int, error) {
	now := s.now()
	count := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.LockFund(tx, fundID); err != nil {
			return err
		}
		var pending []domain.Investment
		if err := tx.Where("investor_id = ? AND fund_id = ? AND is_manual = ? AND verified_at IS NULL", investorID, fundID, true).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		for i := range pending {
			if err := markManualFunded(tx, &pending[i], now); err != nil {
				return err
			}
		}
		count = len(pending)
		_, err := ledger.RecomputeFundAggregate(tx, fundID, now)
		return err
	})
	return count, err
}

func markManualFunded(tx *gorm.DB, inv *domain.Investment, now time.Time) error {
	funded := inv.FundedAmount
	if funded.LessThan(inv.CommitmentAmount) {
		funded = inv.CommitmentAmount
	}
	updates := map[string]interface{}{
		"funded_amount": funded,
		"status":        domain.InvestmentFunded,
		"verified_at":   now,
		"updatedAt":     now,
	}
	if inv.CompletedAt == nil {
		updates["completed_at"] = now
	}
	return tx.Model(&domain.Investment{}).
		Where("id = ? AND verified_at IS NULL", inv.ID).
		Updates(updates).Error
}
