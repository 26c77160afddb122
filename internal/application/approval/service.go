// Package approval is the investor onboarding state machine. Every transition
// is checked against the fixed table in domain, guarded by approval gates when
// entering APPROVED, and written with a compare-and-swap on (stage, version) so
// a caller acting on a stale read is rejected.
package approval

import (
	"context"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB       *gorm.DB
	Audit    audit.Sink
	Reporter audit.ErrorReporter
	Now      func() time.Time
}

type TransitionInput struct {
	InvestorID uuid.UUID
	To         domain.Stage
	Notes      string
	// ExpectedStage, when set, must match the stored stage.
	ExpectedStage *domain.Stage
}

type Result struct {
	InvestorID uuid.UUID                      `json:"investor_id"`
	From       domain.Stage                   `json:"from"`
	To         domain.Stage                   `json:"to"`
	Entry      domain.InvestorStageTransition `json:"entry"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) loadInvestor(ctx context.Context, id uuid.UUID) (*domain.Investor, error) {
	var inv domain.Investor
	if err := s.DB.WithContext(ctx).Where("investor_id = ?", id).First(&inv).Error; err != nil {
		return nil, apperr.FromGorm(err, ErrInvestorNotFound)
	}
	return &inv, nil
}

func teamFunds(db *gorm.DB, teamID uuid.UUID) *gorm.DB {
	return db.Model(&domain.Fund{}).Select("fund_id").Where("team_id = ?", teamID)
}

// loadTeamInvestor loads an investor that applied to, or holds an investment
// in, a fund owned by teamID.
func (s *Service) loadTeamInvestor(ctx context.Context, id, teamID uuid.UUID) (*domain.Investor, error) {
	inv, err := s.loadInvestor(ctx, id)
	if err != nil {
		return nil, err
	}
	var n int64
	err = s.DB.WithContext(ctx).Model(&domain.Investor{}).
		Where("investor_id = ?", id).
		Where(s.DB.Where("fund_id IN (?)", teamFunds(s.DB, teamID)).
			Or("investor_id IN (?)", s.DB.Model(&domain.Investment{}).Select("investor_id").Where("fund_id IN (?)", teamFunds(s.DB, teamID)))).
		Count(&n).Error
	if err != nil {
		return nil, apperr.Internal("STORAGE_FAILURE", err)
	}
	if n == 0 {
		log.Warn().Str("investor_id", id.String()).Str("team_id", teamID.String()).Msg("investor outside actor team")
		return nil, ErrInvestorNotInTeam
	}
	return inv, nil
}

// currentStage returns the stored stage. Rows without one predate the stage
// column and must be backfilled; they are never inferred here.
func currentStage(inv *domain.Investor) (domain.Stage, error) {
	if inv.Stage == nil || *inv.Stage == "" {
		log.Error().Str("investor_id", inv.InvestorID.String()).Msg("investor has no stored stage")
		return "", ErrStageNotBackfilled
	}
	if !inv.Stage.Valid() {
		log.Error().Str("investor_id", inv.InvestorID.String()).Str("stage", string(*inv.Stage)).Msg("investor has unknown stage")
		return "", apperr.Internal("UNKNOWN_STAGE", nil)
	}
	return *inv.Stage, nil
}

// Transition moves an investor to in.To.
func (s *Service) Transition(ctx context.Context, actor domain.Actor, in TransitionInput) (*Result, error) {
	if !in.To.Valid() {
		return nil, ErrInvalidStage.With(map[string]interface{}{"stage": string(in.To)})
	}
	inv, err := s.loadTeamInvestor(ctx, in.InvestorID, actor.TeamID)
	if err != nil {
		return nil, err
	}
	from, err := currentStage(inv)
	if err != nil {
		return nil, err
	}
	if in.ExpectedStage != nil && *in.ExpectedStage != from {
		return nil, ErrStaleStage.With(map[string]interface{}{"expected": string(*in.ExpectedStage), "current": string(from)})
	}
	if !domain.CanTransition(from, in.To) {
		return nil, ErrInvalidTransition.With(map[string]interface{}{
			"from":    string(from),
			"to":      string(in.To),
			"allowed": domain.NextStages(from),
		})
	}
	if in.To == domain.StageApproved {
		if err := s.checkGates(ctx, inv); err != nil {
			return nil, err
		}
	}

	now := s.now()
	updates := map[string]interface{}{
		"stage":     in.To,
		"version":   inv.Version + 1,
		"updatedAt": now,
	}
	switch in.To {
	case domain.StageUnderReview:
		if !domain.IsKycCleared(inv.KycStatusValue()) {
			updates["kyc_status"] = domain.KycPending
		}
		if inv.OnboardingStep < 2 {
			updates["onboarding_step"] = 2
		}
	case domain.StageFunded:
		updates["onboarding_completed_at"] = now
	}

	entry := domain.InvestorStageTransition{
		InvestorID: inv.InvestorID,
		FromStage:  from,
		ToStage:    in.To,
		ActorID:    actor.UserID,
		Notes:      in.Notes,
		At:         now,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Investor{}).
			Where("investor_id = ? AND stage = ? AND version = ?", inv.InvestorID, from, inv.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStage.With(map[string]interface{}{"expected": string(from)})
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, apperr.FromGorm(err, nil)
	}

	log.Info().
		Str("investor_id", inv.InvestorID.String()).
		Str("from", string(from)).
		Str("to", string(in.To)).
		Msg("investor stage changed")

	audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventInvestorStageChanged, audit.ResourceInvestor, inv.InvestorID.String(), map[string]interface{}{
		"from":  string(from),
		"to":    string(in.To),
		"notes": in.Notes,
	}))

	return &Result{InvestorID: inv.InvestorID, From: from, To: in.To, Entry: entry}, nil
}

// checkGates returns ErrGateFailed naming the first unmet gate. All unmet
// gates are listed in the details.
func (s *Service) checkGates(ctx context.Context, inv *domain.Investor) error {
	var failed []string

	var certs int64
	if err := s.DB.WithContext(ctx).Model(&domain.AccreditationCertification{}).
		Where("investor_id = ? AND status = ? AND acknowledged = ?", inv.InvestorID, domain.CertificationCompleted, true).
		Count(&certs).Error; err != nil {
		return apperr.Internal("STORAGE_FAILURE", err)
	}
	if certs == 0 {
		failed = append(failed, GateAccreditation)
	}
	if !inv.NdaSigned {
		failed = append(failed, GateNdaSigned)
	}
	if len(failed) == 0 {
		return nil
	}
	return ErrGateFailed.With(map[string]interface{}{"gate": failed[0], "gates": failed})
}

// History returns the investor's transitions, oldest first.
func (s *Service) History(ctx context.Context, actor domain.Actor, investorID uuid.UUID) ([]domain.InvestorStageTransition, error) {
	if _, err := s.loadTeamInvestor(ctx, investorID, actor.TeamID); err != nil {
		return nil, err
	}
	var rows []domain.InvestorStageTransition
	if err := s.DB.WithContext(ctx).
		Where("investor_id = ?", investorID).
		Order("at ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Internal("STORAGE_FAILURE", err)
	}
	return rows, nil
}
