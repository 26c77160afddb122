package approval

import (
	"context"
	"errors"

	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const MaxBulkApprove = 200

type BulkFailure struct {
	InvestorID uuid.UUID              `json:"investor_id"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

type BulkResult struct {
	Approved []uuid.UUID   `json:"approved"`
	Failed   []BulkFailure `json:"failed"`
}

// BulkApprove transitions each investor to APPROVED independently. One
// investor's failure never stops the rest of the batch.
func (s *Service) BulkApprove(ctx context.Context, actor domain.Actor, ids []uuid.UUID, notes string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(ids) > MaxBulkApprove {
		return nil, ErrBatchTooLarge.With(map[string]interface{}{"max": MaxBulkApprove})
	}

	out := &BulkResult{Approved: []uuid.UUID{}, Failed: []BulkFailure{}}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		_, err := s.Transition(ctx, actor, TransitionInput{InvestorID: id, To: domain.StageApproved, Notes: notes})
		if err == nil {
			out.Approved = append(out.Approved, id)
			continue
		}
		f := BulkFailure{InvestorID: id, Code: "INTERNAL", Message: "internal error"}
		var e *apperr.Error
		if errors.As(err, &e) && e.Kind != apperr.KindInternal {
			f.Code = e.Code
			f.Message = e.Message
			f.Details = e.Details
		} else {
			log.Error().Err(err).Str("investor_id", id.String()).Msg("bulk approve failed")
		}
		out.Failed = append(out.Failed, f)
	}
	return out, nil
}
