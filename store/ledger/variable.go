package ledger

import (
	"context"

	"levee/core"
	"levee/pkg/number"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

type variableLedger struct {
	db *db.DB
}

// NewVariable new variable debt ledger
func NewVariable(db *db.DB) core.VariableDebtLedger {
	return &variableLedger{db: db}
}

func (s *variableLedger) Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) (bool, error) {
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

func (s *variableLedger) Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) error {
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
		// the last burn of a position may round one scaled unit above
		// the stored balance, close it out instead of failing
		diff := new(uint256.Int).Sub(scaled, prev)
		if diff.CmpUint64(1) > 0 {
			return core.ErrInsufficientBalance
		}
		scaled.Set(prev)
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
	return saveSupply(tx, supply)
}

func (s *variableLedger) ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	balance, err := viewBalance(s.db, assetID, userID)
	if err != nil {
		return nil, err
	}
	return units(balance.Balance), nil
}

func (s *variableLedger) ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error) {
	supply, err := viewSupply(s.db, assetID)
	if err != nil {
		return nil, err
	}
	return units(supply.Total), nil
}
