package transactions

import (
	"context"

	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/google/uuid"
)

const maxListLimit = 200

type ListFilter struct {
	FundID     *uuid.UUID
	InvestorID *uuid.UUID
	Status     string
	Limit      int
	Offset     int
}

// ListTransactions returns the team's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.Transaction, error) {
	if actor.TeamID == uuid.Nil {
		return nil, apperr.Authorization("TEAM_REQUIRED", "team_id missing from session")
	}
	q := s.DB.WithContext(ctx).Where("team_id = ?", actor.TeamID)
	if f.FundID != nil {
		q = q.Where("fund_id = ?", *f.FundID)
	}
	if f.InvestorID != nil {
		q = q.Where("investor_id = ?", *f.InvestorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}
	var txs []domain.Transaction
	if err := q.Order(`"createdAt" DESC`).Limit(limit).Offset(f.Offset).Find(&txs).Error; err != nil {
		return nil, apperr.Internal("STORAGE_FAILURE", err)
	}
	return txs, nil
}
