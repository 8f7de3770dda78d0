package ledger

import (
	"context"
	"time"

	"levee/core"
	"levee/internal/interest"
	"levee/pkg/number"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

type stableLedger struct {
	db *db.DB
}

// NewStable new stable debt ledger
func NewStable(db *db.DB) core.StableDebtLedger {
	return &stableLedger{db: db}
}

// compounded principal grown at rate since ts
func compounded(principal, rate *uint256.Int, ts, now int64) (*uint256.Int, error) {
	if principal.IsZero() {
		return uint256.NewInt(0), nil
	}

	cum, err := interest.Compounded(rate, ts, now)
	if err != nil {
		return nil, err
	}
	return raymath.MulRay(principal, cum)
}

// weightedRate the rate of the merged position, balance at oldRate
// plus amount at newRate.
func weightedRate(balance, oldRate, amount, newRate *uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int).Add(balance, amount)
	if total.IsZero() {
		return uint256.NewInt(0), nil
	}

	left, err := raymath.MulRay(balance, oldRate)
	if err != nil {
		return nil, err
	}
	right, err := raymath.MulRay(amount, newRate)
	if err != nil {
		return nil, err
	}
	return raymath.DivRay(new(uint256.Int).Add(left, right), total)
}

func (s *stableLedger) Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, rate *uint256.Int, now time.Time) (bool, error) {
	if amount.IsZero() {
		return false, core.ErrInvalidAmount
	}

	ts := now.Unix()

	balance, err := loadBalance(tx, assetID, userID)
	if err != nil {
		return false, err
	}

	principal := units(balance.Balance)
	isFirst := principal.IsZero()

	current, err := compounded(principal, units(balance.Rate), balance.LastUpdated, ts)
	if err != nil {
		return false, err
	}
	newRate, err := weightedRate(current, units(balance.Rate), amount, rate)
	if err != nil {
		return false, err
	}

	balance.Balance = number.ToDecimal(new(uint256.Int).Add(current, amount))
	balance.Rate = number.ToDecimal(newRate)
	balance.LastUpdated = ts
	if err := saveBalance(tx, balance); err != nil {
		return false, err
	}

	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return false, err
	}

	total, err := compounded(units(supply.Total), units(supply.AvgRate), supply.LastUpdated, ts)
	if err != nil {
		return false, err
	}
	avgRate, err := weightedRate(total, units(supply.AvgRate), amount, rate)
	if err != nil {
		return false, err
	}

	supply.Total = number.ToDecimal(new(uint256.Int).Add(total, amount))
	supply.AvgRate = number.ToDecimal(avgRate)
	supply.LastUpdated = ts
	if err := saveSupply(tx, supply); err != nil {
		return false, err
	}

	return isFirst, nil
}

func (s *stableLedger) Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount *uint256.Int, now time.Time) error {
	ts := now.Unix()

	balance, err := loadBalance(tx, assetID, userID)
	if err != nil {
		return err
	}

	userRate := units(balance.Rate)
	current, err := compounded(units(balance.Balance), userRate, balance.LastUpdated, ts)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return core.ErrInsufficientBalance
	}

	remaining := new(uint256.Int).Sub(current, amount)
	balance.Balance = number.ToDecimal(remaining)
	if remaining.IsZero() {
		balance.Rate = number.ToDecimal(uint256.NewInt(0))
	}
	balance.LastUpdated = ts
	if err := saveBalance(tx, balance); err != nil {
		return err
	}

	supply, err := loadSupply(tx, assetID)
	if err != nil {
		return err
	}

	total, err := compounded(units(supply.Total), units(supply.AvgRate), supply.LastUpdated, ts)
	if err != nil {
		return err
	}

	if total.Cmp(amount) <= 0 {
		supply.Total = number.ToDecimal(uint256.NewInt(0))
		supply.AvgRate = number.ToDecimal(uint256.NewInt(0))
	} else {
		newTotal := new(uint256.Int).Sub(total, amount)

		// remove the position's weight from the average; rounding can
		// push the subtraction below zero on the last burn
		whole, err := raymath.MulRay(total, units(supply.AvgRate))
		if err != nil {
			return err
		}
		part, err := raymath.MulRay(amount, userRate)
		if err != nil {
			return err
		}

		avgRate := uint256.NewInt(0)
		if whole.Cmp(part) > 0 {
			if avgRate, err = raymath.DivRay(new(uint256.Int).Sub(whole, part), newTotal); err != nil {
				return err
			}
		}

		supply.Total = number.ToDecimal(newTotal)
		supply.AvgRate = number.ToDecimal(avgRate)
	}
	supply.LastUpdated = ts

	return saveSupply(tx, supply)
}

func (s *stableLedger) BalanceOf(ctx context.Context, assetID, userID string, now time.Time) (*uint256.Int, error) {
	balance, err := viewBalance(s.db, assetID, userID)
	if err != nil {
		return nil, err
	}
	return compounded(units(balance.Balance), units(balance.Rate), balance.LastUpdated, now.Unix())
}

func (s *stableLedger) PrincipalBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	balance, err := viewBalance(s.db, assetID, userID)
	if err != nil {
		return nil, err
	}
	return units(balance.Balance), nil
}

func (s *stableLedger) GetUserStableRate(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	balance, err := viewBalance(s.db, assetID, userID)
	if err != nil {
		return nil, err
	}
	return units(balance.Rate), nil
}

func (s *stableLedger) GetSupplyData(ctx context.Context, assetID string, now time.Time) (*core.StableDebtSupply, error) {
	supply, err := viewSupply(s.db, assetID)
	if err != nil {
		return nil, err
	}

	principal := units(supply.Total)
	total, err := compounded(principal, units(supply.AvgRate), supply.LastUpdated, now.Unix())
	if err != nil {
		return nil, err
	}

	return &core.StableDebtSupply{
		Principal:   principal,
		Total:       total,
		AvgRate:     units(supply.AvgRate),
		LastUpdated: supply.LastUpdated,
	}, nil
}
