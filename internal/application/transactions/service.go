// Package transactions is the capital movement intake. A request is
// authorized, KYC-gated and AML-screened before any row is written, and every
// screening outcome lands in the audit trail.
package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/application/kyc"
	"fundgate-backend/internal/application/risk"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"
	"fundgate-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB       *gorm.DB
	Gate     *kyc.Gate
	Policy   risk.Policy
	Audit    audit.Sink
	Reporter audit.ErrorReporter
	Now      func() time.Time
}

type CreateInput struct {
	FundID      uuid.UUID       `json:"fund_id" validate:"required"`
	InvestorID  uuid.UUID       `json:"investor_id" validate:"required"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,uppercase"`
	BankLinkID  *uuid.UUID      `json:"bank_link_id"`
	Description string          `json:"description" validate:"max=500"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateTransaction validates and screens the request, then persists a
// PENDING transaction. Checks run in a fixed order and the first failure ends
// the request.
func (s *Service) CreateTransaction(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Transaction, error) {
	in.Type = strings.TrimSpace(in.Type)
	if !domain.ValidTransactionType(in.Type) {
		return nil, ErrInvalidType
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	db := s.DB.WithContext(ctx)

	var fund domain.Fund
	if err := db.Where("fund_id = ? AND team_id = ?", in.FundID, actor.TeamID).First(&fund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundNotInTeam
		}
		return nil, apperr.Internal("STORAGE_FAILURE", err)
	}

	investor, err := s.investorInFund(ctx, in.InvestorID, fund.FundID)
	if err != nil {
		return nil, err
	}

	decision, err := s.Gate.Check(ctx, investor.InvestorID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventTransactionBlockedKyc, audit.ResourceInvestor, investor.InvestorID.String(), map[string]interface{}{
			"fund_id":    fund.FundID.String(),
			"type":       in.Type,
			"amount":     in.Amount.String(),
			"kyc_status": decision.CurrentStatus,
		}))
		log.Warn().Str("investor_id", investor.InvestorID.String()).Str("kyc_status", decision.CurrentStatus).Msg("transaction blocked: kyc")
		return nil, ErrKycRequired.With(map[string]interface{}{"kyc_status": decision.CurrentStatus})
	}

	now := s.now()
	assessment, err := s.screen(ctx, investor.InvestorID, in.Amount, now)
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventAmlScreening, audit.ResourceInvestor, investor.InvestorID.String(), map[string]interface{}{
		"fund_id":      fund.FundID.String(),
		"type":         in.Type,
		"amount":       in.Amount.String(),
		"score":        assessment.Score,
		"flags":        assessment.FlagNames(),
		"window_count": assessment.WindowCount,
		"window_sum":   assessment.WindowSum.String(),
		"blocked":      assessment.Blocked(),
	}))
	if assessment.Blocked() {
		log.Warn().Str("investor_id", investor.InvestorID.String()).Int("score", assessment.Score).Strs("flags", assessment.FlagNames()).Msg("transaction blocked: aml")
		return nil, ErrAmlBlocked.With(map[string]interface{}{"score": assessment.Score, "flags": assessment.FlagNames()})
	}

	bankLinkID, err := s.resolveBankLink(ctx, investor.InvestorID, in.BankLinkID)
	if err != nil {
		return nil, err
	}

	currency := in.Currency
	if currency == "" {
		currency = fund.Currency
	}
	txn := domain.Transaction{
		Type:        in.Type,
		FundID:      fund.FundID,
		InvestorID:  investor.InvestorID,
		TeamID:      fund.TeamID,
		Amount:      in.Amount,
		Currency:    currency,
		Status:      domain.TxStatusPending,
		BankLinkID:  bankLinkID,
		Description: in.Description,
		InitiatedBy: actor.UserID,
		InitiatedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	eventData, _ := json.Marshal(map[string]interface{}{
		"amount":     in.Amount.String(),
		"risk_score": assessment.Score,
		"risk_flags": assessment.FlagNames(),
	})
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		return tx.Create(&domain.TransactionEvent{
			TxID:      txn.TxID,
			Action:    domain.TxEventInitiated,
			ActorID:   actor.UserID,
			IPAddress: actor.IP,
			UserAgent: actor.UserAgent,
			EventData: datatypes.JSON(eventData),
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, apperr.FromGorm(err, nil)
	}

	audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventTransactionCreated, audit.ResourceTransaction, txn.TxID.String(), map[string]interface{}{
		"fund_id":     fund.FundID.String(),
		"investor_id": investor.InvestorID.String(),
		"type":        txn.Type,
		"amount":      txn.Amount.String(),
		"currency":    txn.Currency,
	}))
	log.Info().Str("transaction_id", txn.TxID.String()).Str("investor_id", investor.InvestorID.String()).Str("type", txn.Type).Msg("transaction created")
	return &txn, nil
}

// investorInFund resolves the investor through the fund it applied to, or
// through an investment it holds in the fund.
func (s *Service) investorInFund(ctx context.Context, investorID, fundID uuid.UUID) (*domain.Investor, error) {
	var inv domain.Investor
	err := s.DB.WithContext(ctx).
		Where("investor_id = ?", investorID).
		Where(s.DB.Where("fund_id = ?", fundID).
			Or("investor_id IN (?)", s.DB.Model(&domain.Investment{}).Select("investor_id").Where("fund_id = ?", fundID))).
		First(&inv).Error
	if err != nil {
		return nil, apperr.FromGorm(err, ErrInvestorNotFound)
	}
	return &inv, nil
}

func (s *Service) screen(ctx context.Context, investorID uuid.UUID, amount decimal.Decimal, now time.Time) (risk.Assessment, error) {
	var recent []domain.Transaction
	err := s.DB.WithContext(ctx).
		Where(`investor_id = ? AND "createdAt" >= ?`, investorID, now.Add(-s.Policy.Window)).
		Find(&recent).Error
	if err != nil {
		return risk.Assessment{}, apperr.Internal("STORAGE_FAILURE", err)
	}
	history := make([]risk.Entry, len(recent))
	for i, t := range recent {
		history[i] = risk.Entry{Amount: t.Amount, CreatedAt: t.CreatedAt}
	}
	return risk.Score(s.Policy, amount, history, now), nil
}

// resolveBankLink uses the requested link when it belongs to the investor,
// otherwise the investor's first link. No link at all is allowed.
func (s *Service) resolveBankLink(ctx context.Context, investorID uuid.UUID, requested *uuid.UUID) (*uuid.UUID, error) {
	db := s.DB.WithContext(ctx)
	if requested != nil && *requested != uuid.Nil {
		var link domain.BankLink
		err := db.Where("id = ? AND investor_id = ?", *requested, investorID).First(&link).Error
		if err == nil {
			return &link.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal("STORAGE_FAILURE", err)
		}
		log.Warn().Str("investor_id", investorID.String()).Str("bank_link_id", requested.String()).Msg("requested bank link not linked to investor, using first linked account")
	}
	var links []domain.BankLink
	if err := db.Where("investor_id = ?", investorID).Order(`"createdAt" ASC`).Limit(1).Find(&links).Error; err != nil {
		return nil, apperr.Internal("STORAGE_FAILURE", err)
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0].ID, nil
}
