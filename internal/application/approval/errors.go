package approval

import "fundgate-backend/internal/pkg/apperr"

const (
	GateAccreditation = "ACCREDITATION_ACKNOWLEDGED"
	GateNdaSigned     = "NDA_SIGNED"
)

var (
	ErrInvestorNotFound   = apperr.NotFound("INVESTOR_NOT_FOUND", "Investor not found")
	ErrInvestorNotInTeam  = apperr.Authorization("INVESTOR_NOT_IN_TEAM", "Investor does not belong to a fund of this team")
	ErrInvestorNotInFund  = apperr.Authorization("INVESTOR_NOT_IN_FUND", "Investor is not in this fund")
	ErrInvalidStage       = apperr.Validation("INVALID_STAGE", "Unknown investor stage")
	ErrInvalidTransition  = apperr.Validation("INVALID_TRANSITION", "Stage transition is not allowed")
	ErrGateFailed         = apperr.Policy("GATE_FAILED", "Approval gate not satisfied")
	ErrStaleStage         = apperr.Conflict("STALE_STAGE", "Investor stage changed since it was read")
	ErrStageNotBackfilled = &apperr.Error{Kind: apperr.KindInternal, Code: "STAGE_NOT_BACKFILLED", Message: "investor stage has not been backfilled"}
	ErrEmptyBatch         = apperr.Validation("MISSING_FIELDS", "investor_ids is required")
	ErrBatchTooLarge      = apperr.Validation("BATCH_TOO_LARGE", "Too many investors in one request")
)
