package core

import (
	"context"

	"github.com/holiman/uint256"
)

// InterestRates the result of one strategy evaluation, ray scaled.
type InterestRates struct {
	LiquidityRate      *uint256.Int
	StableBorrowRate   *uint256.Int
	VariableBorrowRate *uint256.Int
}

// InterestRateStrategy a pure function of the reserve's utilization.
// The curve parameters live on the reserve row.
type InterestRateStrategy interface {
	CalculateInterestRates(
		ctx context.Context,
		reserve *Reserve,
		availableLiquidity *uint256.Int,
		totalStableDebt *uint256.Int,
		totalVariableDebt *uint256.Int,
		avgStableRate *uint256.Int,
		reserveFactor uint64,
	) (*InterestRates, error)

	// MaxVariableBorrowRate the rate at 100% utilization, the
	// reference for the rebalance circuit breaker
	MaxVariableBorrowRate(reserve *Reserve) *uint256.Int
}
