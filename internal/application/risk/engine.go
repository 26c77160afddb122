package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one prior transaction of the investor.
type Entry struct {
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Assessment is the result of screening one proposed transaction.
type Assessment struct {
	Score       int             `json:"score"`
	Flags       []Flag          `json:"flags"`
	WindowCount int             `json:"window_count"`
	WindowSum   decimal.Decimal `json:"window_sum"`
	BlockScore  int             `json:"block_score"`
}

// Blocked reports whether the score reaches the policy's block threshold.
func (a Assessment) Blocked() bool {
	return a.Score >= a.BlockScore
}

// FlagNames returns the triggered flags as strings, for audit metadata.
func (a Assessment) FlagNames() []string {
	out := make([]string, len(a.Flags))
	for i, f := range a.Flags {
		out[i] = string(f)
	}
	return out
}

// Score evaluates every rule independently and sums the weights of the ones
// that fire. History entries older than now-Window are ignored; the boundary
// itself is inside the window. Entries after now are ignored too.
func Score(p Policy, proposed decimal.Decimal, history []Entry, now time.Time) Assessment {
	cutoff := now.Add(-p.Window)

	count := 0
	sum := decimal.Zero
	for _, e := range history {
		if e.CreatedAt.Before(cutoff) || e.CreatedAt.After(now) {
			continue
		}
		count++
		sum = sum.Add(e.Amount)
	}

	a := Assessment{
		Flags:       []Flag{},
		WindowCount: count,
		WindowSum:   sum,
		BlockScore:  p.BlockScore,
	}
	if proposed.GreaterThan(p.LargeTransactionThreshold) {
		a.Flags = append(a.Flags, FlagLargeTransaction)
		a.Score += p.LargeTransactionWeight
	}
	if count >= p.VelocityCount {
		a.Flags = append(a.Flags, FlagHighVelocity)
		a.Score += p.HighVelocityWeight
	}
	if sum.Add(proposed).GreaterThan(p.DailyLimit) {
		a.Flags = append(a.Flags, FlagDailyLimitExceeded)
		a.Score += p.DailyLimitWeight
	}
	return a
}
