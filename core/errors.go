package core

import "strconv"

// ErrorCode enumerates the reasons an action can be rejected. A
// rejected action is rolled back as a whole and the code lands on the
// aborted transaction record.
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100001
	// ErrInvalidArgument bad action payload
	ErrInvalidArgument ErrorCode = 100002
	// ErrPoolPaused the whole pool is paused
	ErrPoolPaused ErrorCode = 100003

	// ErrReserveNotFound no reserve listed for the asset
	ErrReserveNotFound ErrorCode = 100100
	// ErrInvalidAmount amount is zero or malformed
	ErrInvalidAmount ErrorCode = 100101
	// ErrReserveInactive reserve is not active
	ErrReserveInactive ErrorCode = 100102
	// ErrReserveFrozen reserve is frozen
	ErrReserveFrozen ErrorCode = 100103
	// ErrBorrowingDisabled borrowing not enabled on the reserve
	ErrBorrowingDisabled ErrorCode = 100104
	// ErrStableBorrowingDisabled stable borrowing not enabled
	ErrStableBorrowingDisabled ErrorCode = 100105
	// ErrInvalidRateMode rate mode is neither stable nor variable
	ErrInvalidRateMode ErrorCode = 100106
	// ErrInsufficientBalance amount exceeds the user's balance
	ErrInsufficientBalance ErrorCode = 100107
	// ErrInsufficientLiquidity not enough underlying cash in the reserve
	ErrInsufficientLiquidity ErrorCode = 100108
	// ErrInsufficientCollateral collateral cannot cover the new debt
	ErrInsufficientCollateral ErrorCode = 100109
	// ErrHealthFactorTooLow action would leave the health factor below 1
	ErrHealthFactorTooLow ErrorCode = 100110
	// ErrCollateralBalanceZero no collateral posted
	ErrCollateralBalanceZero ErrorCode = 100111
	// ErrNoDebtOfSelectedType nothing to repay or swap in that rate mode
	ErrNoDebtOfSelectedType ErrorCode = 100112
	// ErrNoExplicitAmountToRepayOnBehalf repay-all sentinel only for own debt
	ErrNoExplicitAmountToRepayOnBehalf ErrorCode = 100113
	// ErrCollateralSameAsBorrow stable borrow of the own collateral asset
	ErrCollateralSameAsBorrow ErrorCode = 100114
	// ErrAmountExceedsMaxLoanSize stable loan above the per loan cap
	ErrAmountExceedsMaxLoanSize ErrorCode = 100115
	// ErrRebalanceConditionsNotMet usage ratio or rate threshold not met
	ErrRebalanceConditionsNotMet ErrorCode = 100116
	// ErrDepositAlreadyInUse collateral flag cannot be cleared
	ErrDepositAlreadyInUse ErrorCode = 100117
	// ErrInconsistentFlashloanParams asset and amount arrays differ
	ErrInconsistentFlashloanParams ErrorCode = 100118
	// ErrInvalidPrice oracle has no usable price
	ErrInvalidPrice ErrorCode = 100119
	// ErrTransferNotAllowed post transfer health factor below 1
	ErrTransferNotAllowed ErrorCode = 100120
	// ErrNoMoreReservesAllowed reserve id space exhausted
	ErrNoMoreReservesAllowed ErrorCode = 100121
	// ErrReserveAlreadyInitialized reserve init called twice
	ErrReserveAlreadyInitialized ErrorCode = 100122
	// ErrLiquidityNotZero config change requires an empty reserve
	ErrLiquidityNotZero ErrorCode = 100123
	// ErrInvalidReserveConfig configuration violates its invariants
	ErrInvalidReserveConfig ErrorCode = 100124

	// ErrLiquidationNotEligible structured liquidation failures
	ErrLiquidationNoActiveReserve            ErrorCode = 100200
	ErrLiquidationHealthFactorAboveThreshold ErrorCode = 100201
	ErrLiquidationCollateralCannotBeUsed     ErrorCode = 100202
	ErrLiquidationCurrencyNotBorrowed        ErrorCode = 100203

	// ErrMathOverflow a fixed point operation left its numeric range
	ErrMathOverflow ErrorCode = 100300
	// ErrIndexOverflow an index or rate no longer fits 128 bits
	ErrIndexOverflow ErrorCode = 100301
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

// LiquidationCode machine readable liquidation validation result,
// returned as a code and message pair instead of a bare abort.
type LiquidationCode int

const (
	// LiquidationNoError liquidation may proceed
	LiquidationNoError LiquidationCode = iota
	// LiquidationNoActiveReserve collateral or debt reserve not active
	LiquidationNoActiveReserve
	// LiquidationHealthFactorAboveThreshold target user is solvent
	LiquidationHealthFactorAboveThreshold
	// LiquidationCollateralCannotBeLiquidated collateral unusable
	LiquidationCollateralCannotBeLiquidated
	// LiquidationCurrencyNotBorrowed user owes nothing in the debt asset
	LiquidationCurrencyNotBorrowed
)

func (c LiquidationCode) Message() string {
	switch c {
	case LiquidationNoError:
		return "no error"
	case LiquidationNoActiveReserve:
		return "reserve not active"
	case LiquidationHealthFactorAboveThreshold:
		return "health factor not below threshold"
	case LiquidationCollateralCannotBeLiquidated:
		return "collateral cannot be liquidated"
	case LiquidationCurrencyNotBorrowed:
		return "specified currency not borrowed by user"
	default:
		return "unknown"
	}
}

// ErrorCode maps a liquidation code onto the action error taxonomy.
func (c LiquidationCode) ErrorCode() ErrorCode {
	switch c {
	case LiquidationNoActiveReserve:
		return ErrLiquidationNoActiveReserve
	case LiquidationHealthFactorAboveThreshold:
		return ErrLiquidationHealthFactorAboveThreshold
	case LiquidationCollateralCannotBeLiquidated:
		return ErrLiquidationCollateralCannotBeUsed
	case LiquidationCurrencyNotBorrowed:
		return ErrLiquidationCurrencyNotBorrowed
	default:
		return ErrUnknown
	}
}
