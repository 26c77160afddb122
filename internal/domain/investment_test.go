package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFundingStatus(t *testing.T) {
	commit := decimal.NewFromInt(100000)
	assert.Equal(t, InvestmentCommitted, FundingStatus(decimal.Zero, commit, InvestmentCommitted))
	assert.Equal(t, InvestmentPartiallyFunded, FundingStatus(decimal.NewFromInt(40000), commit, InvestmentCommitted))
	assert.Equal(t, InvestmentFunded, FundingStatus(decimal.NewFromInt(100000), commit, InvestmentPartiallyFunded))
	assert.Equal(t, InvestmentFunded, FundingStatus(decimal.NewFromInt(120000), commit, InvestmentPartiallyFunded))
}
