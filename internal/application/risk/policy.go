// Package risk scores proposed capital movements for AML screening. Scoring is
// a pure function of the policy, the proposed amount, the investor's recent
// history and the caller-supplied time.
package risk

import (
	"time"

	"fundgate-backend/internal/config"

	"github.com/shopspring/decimal"
)

type Flag string

const (
	FlagLargeTransaction   Flag = "LARGE_TRANSACTION"
	FlagHighVelocity       Flag = "HIGH_VELOCITY"
	FlagDailyLimitExceeded Flag = "DAILY_LIMIT_EXCEEDED"
)

// Policy holds the tunable thresholds and per-flag weights.
type Policy struct {
	LargeTransactionThreshold decimal.Decimal
	DailyLimit                decimal.Decimal
	VelocityCount             int
	Window                    time.Duration
	BlockScore                int

	LargeTransactionWeight int
	HighVelocityWeight     int
	DailyLimitWeight       int
}

// DefaultPolicy returns the standard thresholds: 100k large transaction,
// 250k trailing 24h limit, 5 transactions velocity, block at 70.
func DefaultPolicy() Policy {
	return Policy{
		LargeTransactionThreshold: decimal.NewFromInt(100_000),
		DailyLimit:                decimal.NewFromInt(250_000),
		VelocityCount:             5,
		Window:                    24 * time.Hour,
		BlockScore:                70,
		LargeTransactionWeight:    30,
		HighVelocityWeight:        25,
		DailyLimitWeight:          40,
	}
}

// PolicyFromConfig overlays configured thresholds on the default weights.
// Zero values keep the defaults.
func PolicyFromConfig(cfg config.RiskConfig) Policy {
	p := DefaultPolicy()
	if cfg.LargeTransactionThreshold.IsPositive() {
		p.LargeTransactionThreshold = cfg.LargeTransactionThreshold
	}
	if cfg.DailyLimit.IsPositive() {
		p.DailyLimit = cfg.DailyLimit
	}
	if cfg.VelocityCount > 0 {
		p.VelocityCount = cfg.VelocityCount
	}
	if cfg.Window > 0 {
		p.Window = cfg.Window
	}
	if cfg.BlockScore > 0 {
		p.BlockScore = cfg.BlockScore
	}
	return p
}
