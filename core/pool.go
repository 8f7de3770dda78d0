package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

// FlashLoanReceiver the borrower side of a flashloan. ExecuteOperation
// runs after funds were paid out; returning an error aborts the whole
// action, including the payout.
type FlashLoanReceiver interface {
	ExecuteOperation(ctx context.Context, assets []string, amounts, premiums []*uint256.Int, initiator string, params []byte) error
}

// FlashLoanRequest one flashloan call over several assets. Mode none
// requires the receiver to return funds plus premium within the
// action; stable/variable leave the amount open as debt of OnBehalfOf.
type FlashLoanRequest struct {
	Receiver   FlashLoanReceiver
	AssetIDs   []string
	Amounts    []*uint256.Int
	Modes      []RateMode
	OnBehalfOf string
	Params     []byte
}

// LiquidationResult what a liquidation call actually moved.
type LiquidationResult struct {
	DebtCovered      *uint256.Int
	CollateralSeized *uint256.Int
	ReceivedReceipt  bool
}

// LiquidationCloseFactorPercent at most half of the debt in one asset
// can be covered per call, bps.
const LiquidationCloseFactorPercent = 5000

// FlashLoanPremiumTotal premium charged on a flashloan, bps of the
// amount, cumulated to the depositors through the liquidity index.
const FlashLoanPremiumTotal = 9

// SysPauseProperty property store key halting all user actions.
const SysPauseProperty = "levee_pause"

// LiquidationService the single pass liquidation engine. Amounts are
// integer token units.
type LiquidationService interface {
	Liquidate(ctx context.Context, tx *db.DB, liquidator, collateralAssetID, debtAssetID, userID string, debtToCover *uint256.Int, receiveReceipt bool, now time.Time) (*LiquidationResult, error)
}

// PoolService the orchestrator: every user action enters here, runs
// its validation gate, then mutates reserve state and the ledgers.
// Each call must run inside one db transaction; the executor provides
// it, so an error rolls the whole action back.
type PoolService interface {
	Deposit(ctx context.Context, tx *db.DB, userID string, p *DepositPayload, now time.Time) error
	Withdraw(ctx context.Context, tx *db.DB, userID string, p *WithdrawPayload, now time.Time) error
	Borrow(ctx context.Context, tx *db.DB, userID string, p *BorrowPayload, now time.Time) error
	Repay(ctx context.Context, tx *db.DB, userID string, p *RepayPayload, now time.Time) error
	SwapRateMode(ctx context.Context, tx *db.DB, userID string, p *SwapRateModePayload, now time.Time) error
	RebalanceStableRate(ctx context.Context, tx *db.DB, p *RebalancePayload, now time.Time) error
	SetUseAsCollateral(ctx context.Context, tx *db.DB, userID string, p *SetCollateralPayload, now time.Time) error
	Liquidate(ctx context.Context, tx *db.DB, liquidator string, p *LiquidatePayload, now time.Time) (*LiquidationResult, error)
	FlashLoan(ctx context.Context, tx *db.DB, initiator string, req *FlashLoanRequest, now time.Time) error
	// FinalizeTransfer gate for receipt token transfers between users
	FinalizeTransfer(ctx context.Context, tx *db.DB, assetID, from, to string, amount, balanceFromBefore *uint256.Int, now time.Time) error

	// InitReserve one time listing of a new reserve
	InitReserve(ctx context.Context, tx *db.DB, reserve *Reserve) error
}
