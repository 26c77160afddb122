package transactions

import "fundgate-backend/internal/pkg/apperr"

var (
	ErrInvalidType      = apperr.Validation("INVALID_TYPE", "type must be CAPITAL_CALL or DISTRIBUTION")
	ErrInvalidAmount    = apperr.Validation("INVALID_AMOUNT", "amount must be positive")
	ErrFundNotInTeam    = apperr.Authorization("FUND_NOT_IN_TEAM", "fund not in team")
	ErrInvestorNotFound = apperr.NotFound("INVESTOR_NOT_FOUND", "Investor not found in fund")
	ErrKycRequired      = apperr.Policy("KYC_REQUIRED", "Investor KYC verification is required")
	ErrAmlBlocked       = apperr.Policy("AML_BLOCKED", "Transaction blocked by AML screening")
)
