// Package settlement turns an uploaded proof of wire into settled ledgers.
// Confirmation runs as one database transaction: the transaction row is
// re-read and conditionally updated, so of two concurrent confirmations of the
// same wire exactly one commits.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/application/ledger"
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
	Audit    audit.Sink
	Reporter audit.ErrorReporter
	Now      func() time.Time
}

type ProofInput struct {
	DocumentRef string `json:"document_ref" validate:"required,max=500"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type ConfirmInput struct {
	TransactionID     uuid.UUID       `json:"-" validate:"required"`
	AmountReceived    decimal.Decimal `json:"amount_received" validate:"required"`
	FundsReceivedDate time.Time       `json:"funds_received_date" validate:"required"`
	BankReference     *string         `json:"bank_reference" validate:"omitempty,max=100"`
}

type Outcome struct {
	Transaction   domain.Transaction   `json:"transaction"`
	Investment    domain.Investment    `json:"investment"`
	FundAggregate domain.FundAggregate `json:"fund_aggregate"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func loadTransaction(tx *gorm.DB, id uuid.UUID, actor domain.Actor) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := tx.Where("tx_id = ?", id).First(&txn).Error; err != nil {
		return nil, apperr.FromGorm(err, ErrTransactionNotFound)
	}
	if txn.TeamID != actor.TeamID {
		return nil, ErrFundNotInTeam
	}
	if txn.Type != domain.TxTypeCapitalCall {
		return nil, ErrNotCapitalCall
	}
	return &txn, nil
}

func txEvent(txID uuid.UUID, action string, actor domain.Actor, data map[string]interface{}, at time.Time) *domain.TransactionEvent {
	b, _ := json.Marshal(data)
	return &domain.TransactionEvent{
		TxID:      txID,
		Action:    action,
		ActorID:   actor.UserID,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		EventData: datatypes.JSON(b),
		CreatedAt: at,
	}
}

// UploadProof records the investor's proof of wire and moves the transaction
// from PENDING to PROOF_UPLOADED.
func (s *Service) UploadProof(ctx context.Context, actor domain.Actor, txID uuid.UUID, in ProofInput) (*domain.Transaction, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	now := s.now()
	var txn *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = loadTransaction(tx, txID, actor)
		if err != nil {
			return err
		}
		if txn.Status != domain.TxStatusPending {
			return ErrNotAwaitingProof.With(map[string]interface{}{"status": txn.Status})
		}
		res := tx.Model(&domain.Transaction{}).
			Where("tx_id = ? AND status = ? AND version = ?", txn.TxID, domain.TxStatusPending, txn.Version).
			Updates(map[string]interface{}{
				"status":             domain.TxStatusProofUploaded,
				"proof_document_ref": in.DocumentRef,
				"proof_uploaded_at":  now,
				"version":            txn.Version + 1,
				"updatedAt":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotAwaitingProof
		}
		txn.Status = domain.TxStatusProofUploaded
		txn.ProofDocumentRef = &in.DocumentRef
		txn.ProofUploadedAt = &now
		txn.Version++
		txn.UpdatedAt = now
		return tx.Create(txEvent(txn.TxID, domain.TxEventProofUploaded, actor, map[string]interface{}{
			"document_ref": in.DocumentRef,
			"notes":        in.Notes,
		}, now)).Error
	})
	if err != nil {
		return nil, mapErr(err)
	}

	audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventProofUploaded, audit.ResourceTransaction, txn.TxID.String(), map[string]interface{}{
		"document_ref": in.DocumentRef,
	}))
	return txn, nil
}

// ConfirmWire settles a PROOF_UPLOADED capital call. The status change, the
// investment funding, the fund aggregate and the trail entry commit together
// or not at all.
func (s *Service) ConfirmWire(ctx context.Context, actor domain.Actor, in ConfirmInput) (*Outcome, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !in.AmountReceived.IsPositive() {
		return nil, ErrInvalidAmount
	}
	now := s.now()
	if in.FundsReceivedDate.After(now) {
		return nil, ErrInvalidReceivedDate
	}
	received := in.FundsReceivedDate.UTC()

	out := &Outcome{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := loadTransaction(tx, in.TransactionID, actor)
		if err != nil {
			return err
		}
		if txn.Status != domain.TxStatusProofUploaded {
			return ErrAlreadySettled.With(map[string]interface{}{"status": txn.Status})
		}

		res := tx.Model(&domain.Transaction{}).
			Where("tx_id = ? AND status = ? AND version = ?", txn.TxID, domain.TxStatusProofUploaded, txn.Version).
			Updates(map[string]interface{}{
				"status":              domain.TxStatusCompleted,
				"confirmed_by":        actor.UserID,
				"confirmed_at":        now,
				"funds_received_date": received,
				"amount_received":     in.AmountReceived,
				"bank_reference":      in.BankReference,
				"version":             txn.Version + 1,
				"updatedAt":           now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Warn().Str("tx_id", txn.TxID.String()).Int64("version", txn.Version).Msg("wire confirmation lost to a concurrent update")
			return ErrAlreadySettled.With(map[string]interface{}{"version": txn.Version})
		}

		if _, err := ledger.LockFund(tx, txn.FundID); err != nil {
			return apperr.FromGorm(err, ErrFundNotFound)
		}
		inv, err := ledger.LockInvestment(tx, txn.InvestorID, txn.FundID)
		if err != nil {
			return apperr.FromGorm(err, ErrInvestmentNotFound)
		}
		if err := ledger.ApplyFunding(tx, inv, in.AmountReceived, now); err != nil {
			return err
		}
		agg, err := ledger.RecomputeFundAggregate(tx, txn.FundID, now)
		if err != nil {
			return err
		}
		if err := tx.Create(txEvent(txn.TxID, domain.TxEventWireConfirmed, actor, map[string]interface{}{
			"amount_received":     in.AmountReceived.String(),
			"funds_received_date": received,
			"bank_reference":      in.BankReference,
		}, now)).Error; err != nil {
			return err
		}

		confirmedBy := actor.UserID
		amount := in.AmountReceived
		txn.Status = domain.TxStatusCompleted
		txn.ConfirmedBy = &confirmedBy
		txn.ConfirmedAt = &now
		txn.FundsReceivedDate = &received
		txn.AmountReceived = &amount
		txn.BankReference = in.BankReference
		txn.Version++
		txn.UpdatedAt = now

		out.Transaction = *txn
		out.Investment = *inv
		out.FundAggregate = *agg
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			log.Warn().Str("transaction_id", in.TransactionID.String()).Msg("wire confirmation lost race or repeated")
		}
		return nil, mapErr(err)
	}

	log.Info().
		Str("transaction_id", out.Transaction.TxID.String()).
		Str("investment_status", out.Investment.Status).
		Str("amount_received", in.AmountReceived.String()).
		Msg("wire confirmed")
	audit.Log(ctx, s.Audit, s.Reporter, audit.FromActor(actor, audit.EventWireConfirmed, audit.ResourceTransaction, out.Transaction.TxID.String(), map[string]interface{}{
		"fund_id":           out.Transaction.FundID.String(),
		"investor_id":       out.Transaction.InvestorID.String(),
		"amount_received":   in.AmountReceived.String(),
		"investment_status": out.Investment.Status,
		"funded_amount":     out.Investment.FundedAmount.String(),
	}))
	return out, nil
}

func mapErr(err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal("SETTLEMENT_FAILED", err)
}
