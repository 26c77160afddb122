package settlement

import "fundgate-backend/internal/pkg/apperr"

var (
	ErrTransactionNotFound = apperr.NotFound("TRANSACTION_NOT_FOUND", "Transaction not found")
	ErrInvestmentNotFound  = apperr.NotFound("INVESTMENT_NOT_FOUND", "No investment for this investor in the fund")
	ErrFundNotFound        = apperr.NotFound("FUND_NOT_FOUND", "Fund not found")
	ErrFundNotInTeam       = apperr.Authorization("FUND_NOT_IN_TEAM", "fund not in team")
	ErrAlreadySettled      = apperr.Conflict("ALREADY_SETTLED", "already settled")
	ErrNotAwaitingProof    = apperr.Conflict("NOT_AWAITING_PROOF", "Transaction is not awaiting proof of wire")
	ErrNotCapitalCall      = apperr.Validation("WIRE_NOT_APPLICABLE", "Only capital calls are settled by wire")
	ErrInvalidAmount       = apperr.Validation("INVALID_AMOUNT", "amount_received must be positive")
	ErrInvalidReceivedDate = apperr.Validation("INVALID_DATE", "funds_received_date cannot be in the future")
)
