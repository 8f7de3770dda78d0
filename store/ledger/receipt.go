package ledger

import (
	"context"

	"levee/core"
	"levee/pkg/number"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

type receiptLedger struct {
	db       *db.DB
	treasury string
}

// NewReceipt new receipt token ledger. The treasury account receives
// the protocol's share of accrued interest.
func NewReceipt(db *db.DB, treasury string) core.ReceiptTokenLedger {
	return &receiptLedger{db: db, treasury: treasury}
}

func (s *receiptLedger) Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) (bool, error) {
	scaled, err := raymath.DivRay(amount, index)
	if err != nil {
		return false, err
	}
	if scaled.IsZero() {
		return false, core.ErrInvalidAmount
	}

	balance, err := loadBalance(tx, assetID, userID)
	if err != nil {
		return false, err
	}
	prev := units(balance.Balance)
	balance.Balance = number.ToDecimal(new(uint256.Int).Add(prev, scaled))
	if err := saveBalance(tx, balance); err != nil {
		return false, err
	}

	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return false, err
	}
	supply.Total = number.ToDecimal(new(uint256.Int).Add(units(supply.Total), scaled))
	if err := saveSupply(tx, supply); err != nil {
		return false, err
	}

	return prev.IsZero(), nil
}

func (s *receiptLedger) Burn(ctx context.Context, tx *db.DB, assetID, userID, receiver string, amount, index *uint256.Int) error {
	scaled, err := raymath.DivRay(amount, index)
	if err != nil {
		return err
	}
	if scaled.IsZero() {
		return core.ErrInvalidAmount
	}

	balance, err := loadBalance(tx, assetID, userID)
	if err != nil {
		return err
	}
	prev := units(balance.Balance)
	if prev.Cmp(scaled) < 0 {
		return core.ErrInsufficientBalance
	}
	balance.Balance = number.ToDecimal(new(uint256.Int).Sub(prev, scaled))
	if err := saveBalance(tx, balance); err != nil {
		return err
	}

	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return err
	}
	total := units(supply.Total)
	if total.Cmp(scaled) < 0 {
		return core.ErrInsufficientBalance
	}
	supply.Total = number.ToDecimal(total.Sub(total, scaled))

	// the underlying leaves the reserve towards receiver
	cash := units(supply.Cash)
	if cash.Cmp(amount) < 0 {
		return core.ErrInsufficientLiquidity
	}
	supply.Cash = number.ToDecimal(cash.Sub(cash, amount))

	return saveSupply(tx, supply)
}

func (s *receiptLedger) MintToTreasury(ctx context.Context, tx *db.DB, assetID string, amount, index *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	scaled, err := raymath.DivRay(amount, index)
	if err != nil {
		return err
	}
	if scaled.IsZero() {
		return nil
	}

	balance, err := loadBalance(tx, assetID, s.treasury)
	if err != nil {
		return err
	}
	balance.Balance = number.ToDecimal(new(uint256.Int).Add(units(balance.Balance), scaled))
	if err := saveBalance(tx, balance); err != nil {
		return err
	}

	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return err
	}
	supply.Total = number.ToDecimal(new(uint256.Int).Add(units(supply.Total), scaled))
	return saveSupply(tx, supply)
}

func (s *receiptLedger) TransferOnLiquidation(ctx context.Context, tx *db.DB, assetID, from, to string, amount, index *uint256.Int) error {
	scaled, err := raymath.DivRay(amount, index)
	if err != nil {
		return err
	}
	if scaled.IsZero() {
		return nil
	}

	fromBalance, err := loadBalance(tx, assetID, from)
	if err != nil {
		return err
	}
	prev := units(fromBalance.Balance)
	if prev.Cmp(scaled) < 0 {
		return core.ErrInsufficientBalance
	}
	fromBalance.Balance = number.ToDecimal(prev.Sub(prev, scaled))
	if err := saveBalance(tx, fromBalance); err != nil {
		return err
	}

	toBalance, err := loadBalance(tx, assetID, to)
	if err != nil {
		return err
	}
	toBalance.Balance = number.ToDecimal(new(uint256.Int).Add(units(toBalance.Balance), scaled))
	return saveBalance(tx, toBalance)
}

func (s *receiptLedger) TransferUnderlyingTo(ctx context.Context, tx *db.DB, assetID, target string, amount *uint256.Int) error {
	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return err
	}

	cash := units(supply.Cash)
	if cash.Cmp(amount) < 0 {
		return core.ErrInsufficientLiquidity
	}
	supply.Cash = number.ToDecimal(cash.Sub(cash, amount))
	return saveSupply(tx, supply)
}

func (s *receiptLedger) ReceiveUnderlying(ctx context.Context, tx *db.DB, assetID string, amount *uint256.Int) error {
	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return err
	}

	supply.Cash = number.ToDecimal(new(uint256.Int).Add(units(supply.Cash), amount))
	return saveSupply(tx, supply)
}

// HandleRepayment a hook after a repayment was booked. The ledger has
// nothing extra to settle.
func (s *receiptLedger) HandleRepayment(ctx context.Context, tx *db.DB, assetID, payer string, amount *uint256.Int) error {
	return nil
}

func (s *receiptLedger) ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	balance, err := viewBalance(s.db, assetID, userID)
	if err != nil {
		return nil, err
	}
	return units(balance.Balance), nil
}

func (s *receiptLedger) ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error) {
	supply, err := viewSupply(s.db, assetID)
	if err != nil {
		return nil, err
	}
	return units(supply.Total), nil
}

func (s *receiptLedger) UnderlyingBalance(ctx context.Context, assetID string) (*uint256.Int, error) {
	supply, err := viewSupply(s.db, assetID)
	if err != nil {
		return nil, err
	}
	return units(supply.Cash), nil
}
