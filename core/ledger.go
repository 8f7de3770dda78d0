package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

// The token ledgers are external collaborators: the engine only talks
// to these interfaces and never touches raw balances. Amounts are
// integer token units, indexes and rates are ray.

// ReceiptTokenLedger the interest bearing deposit token of a reserve.
// Balances are stored scaled by the liquidity index at write time.
type ReceiptTokenLedger interface {
	// Mint credits a deposit, returns true on the user's first deposit
	Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) (bool, error)
	// Burn debits a withdrawal and pays the underlying out to receiver
	Burn(ctx context.Context, tx *db.DB, assetID, userID, receiver string, amount, index *uint256.Int) error
	// MintToTreasury credits the protocol's skim at the given index
	MintToTreasury(ctx context.Context, tx *db.DB, assetID string, amount, index *uint256.Int) error
	// TransferOnLiquidation moves receipt tokens from the liquidated
	// user to the liquidator without touching the underlying
	TransferOnLiquidation(ctx context.Context, tx *db.DB, assetID, from, to string, amount, index *uint256.Int) error
	// TransferUnderlyingTo pays underlying out of the reserve's cash
	TransferUnderlyingTo(ctx context.Context, tx *db.DB, assetID, target string, amount *uint256.Int) error
	// ReceiveUnderlying books underlying coming into the reserve's cash
	ReceiveUnderlying(ctx context.Context, tx *db.DB, assetID string, amount *uint256.Int) error
	// HandleRepayment hook invoked after a repayment was received
	HandleRepayment(ctx context.Context, tx *db.DB, assetID, payer string, amount *uint256.Int) error

	ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error)
	ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error)
	// UnderlyingBalance the reserve's available cash
	UnderlyingBalance(ctx context.Context, assetID string) (*uint256.Int, error)
}

// VariableDebtLedger variable rate debt, scaled by the variable
// borrow index.
type VariableDebtLedger interface {
	// Mint opens debt, returns true on the user's first borrow
	Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) (bool, error)
	Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) error

	ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error)
	ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error)
}

// StableDebtSupply aggregate stable debt figures of one reserve.
type StableDebtSupply struct {
	Principal   *uint256.Int
	Total       *uint256.Int
	AvgRate     *uint256.Int
	LastUpdated int64
}

// StableDebtLedger stable rate debt. Each position compounds at the
// rate fixed when it was opened. Callers pass the accrual time so a
// replayed action compounds to the same instant it did originally.
type StableDebtLedger interface {
	Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, rate *uint256.Int, now time.Time) (bool, error)
	Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount *uint256.Int, now time.Time) error

	// BalanceOf principal plus compounded interest as of now
	BalanceOf(ctx context.Context, assetID, userID string, now time.Time) (*uint256.Int, error)
	PrincipalBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error)
	GetUserStableRate(ctx context.Context, assetID, userID string) (*uint256.Int, error)
	GetSupplyData(ctx context.Context, assetID string, now time.Time) (*StableDebtSupply, error)
}
