package core

import (
	"context"
	"time"

	"github.com/holiman/uint256"
)

// Rebalance circuit breaker thresholds. A stable position can only be
// forced back to market when the reserve is nearly drained and the
// depositors' rate collapsed anyway.
const (
	// RebalanceUpUsageRatioThreshold minimum usage ratio, ray
	RebalanceUpUsageRatioThresholdDec = "950000000000000000000000000"
	// RebalanceUpLiquidityRateThreshold share of the max variable
	// rate the liquidity rate must stay under, bps
	RebalanceUpLiquidityRateThreshold = 4000
)

// MaxStableRateBorrowSizePercent per loan cap on stable borrows,
// bps of the reserve's available liquidity.
const MaxStableRateBorrowSizePercent = 2500

// ValidationService the precondition gates. Every check is read only
// and fails fast; the pool aborts the whole action on the first error.
type ValidationService interface {
	ValidateDeposit(ctx context.Context, reserve *Reserve, amount *uint256.Int) error
	ValidateWithdraw(ctx context.Context, reserve *Reserve, userID string, amount, userBalance *uint256.Int, now time.Time) error
	ValidateBorrow(ctx context.Context, reserve *Reserve, userID string, amount *uint256.Int, mode RateMode, now time.Time) error
	ValidateRepay(ctx context.Context, reserve *Reserve, userID, onBehalfOf string, amount *uint256.Int, all bool, mode RateMode, stableDebt, variableDebt *uint256.Int) error
	ValidateSwapRateMode(ctx context.Context, reserve *Reserve, config *UserConfig, stableDebt, variableDebt *uint256.Int, mode RateMode) error
	ValidateRebalance(ctx context.Context, reserve *Reserve, now time.Time) error
	ValidateSetUseAsCollateral(ctx context.Context, reserve *Reserve, userID string, useAsCollateral bool, now time.Time) error
	ValidateFlashLoan(req *FlashLoanRequest) error
	ValidateTransfer(ctx context.Context, userID string, now time.Time) error
	// ValidateLiquidation yields a structured code instead of a bare
	// error so automated liquidators get a machine readable reason
	ValidateLiquidation(ctx context.Context, collateralReserve, debtReserve *Reserve, config *UserConfig, healthFactor, totalDebt *uint256.Int) LiquidationCode
}
