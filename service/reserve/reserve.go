package reserve

import (
	"context"
	"time"

	"levee/core"
	"levee/internal/interest"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

type reserveService struct {
	reserveStore   core.ReserveStore
	receiptLedger  core.ReceiptTokenLedger
	stableLedger   core.StableDebtLedger
	variableLedger core.VariableDebtLedger
	strategy       core.InterestRateStrategy
}

// New new reserve service
func New(
	reserveStore core.ReserveStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	strategy core.InterestRateStrategy,
) core.ReserveService {
	return &reserveService{
		reserveStore:   reserveStore,
		receiptLedger:  receiptLedger,
		stableLedger:   stableLedger,
		variableLedger: variableLedger,
		strategy:       strategy,
	}
}

func (s *reserveService) UpdateState(ctx context.Context, tx *db.DB, reserve *core.Reserve, now time.Time) error {
	scaledVariableDebt, err := s.variableLedger.ScaledTotalSupply(ctx, reserve.VariableDebtAssetID)
	if err != nil {
		return err
	}

	prevLiquidityIndex := reserve.GetLiquidityIndex()
	prevVariableIndex := reserve.GetVariableBorrowIndex()
	lastUpdated := reserve.LastUpdateTimestamp

	newLiquidityIndex, newVariableIndex, err := s.updateIndexes(reserve, scaledVariableDebt, now)
	if err != nil {
		return err
	}

	if err := s.mintToTreasury(
		ctx, tx, reserve,
		scaledVariableDebt,
		prevLiquidityIndex, newLiquidityIndex,
		prevVariableIndex, newVariableIndex,
		lastUpdated, now,
	); err != nil {
		return err
	}

	reserve.LastUpdateTimestamp = now.Unix()
	return nil
}

// updateIndexes rolls both cumulative indexes forward to now. The
// variable index only moves while variable debt is outstanding.
func (s *reserveService) updateIndexes(reserve *core.Reserve, scaledVariableDebt *uint256.Int, now time.Time) (*uint256.Int, *uint256.Int, error) {
	ts := now.Unix()
	newLiquidityIndex := reserve.GetLiquidityIndex()
	newVariableIndex := reserve.GetVariableBorrowIndex()

	liquidityRate := reserve.GetLiquidityRate()
	if !liquidityRate.IsZero() {
		cum, err := interest.Linear(liquidityRate, reserve.LastUpdateTimestamp, ts)
		if err != nil {
			return nil, nil, err
		}

		newLiquidityIndex, err = raymath.MulRay(cum, newLiquidityIndex)
		if err != nil {
			return nil, nil, err
		}

		if err := reserve.SetLiquidityIndex(newLiquidityIndex); err != nil {
			return nil, nil, err
		}

		if !scaledVariableDebt.IsZero() {
			cum, err := interest.Compounded(reserve.GetVariableBorrowRate(), reserve.LastUpdateTimestamp, ts)
			if err != nil {
				return nil, nil, err
			}

			newVariableIndex, err = raymath.MulRay(cum, newVariableIndex)
			if err != nil {
				return nil, nil, err
			}

			if err := reserve.SetVariableBorrowIndex(newVariableIndex); err != nil {
				return nil, nil, err
			}
		}
	}

	return newLiquidityIndex, newVariableIndex, nil
}

// mintToTreasury skims the reserve factor share of the debt interest
// accrued since the previous update, credited as receipt tokens held
// by the treasury account.
func (s *reserveService) mintToTreasury(
	ctx context.Context,
	tx *db.DB,
	reserve *core.Reserve,
	scaledVariableDebt *uint256.Int,
	prevLiquidityIndex, newLiquidityIndex *uint256.Int,
	prevVariableIndex, newVariableIndex *uint256.Int,
	lastUpdated int64, now time.Time,
) error {
	if reserve.ReserveFactor <= 0 {
		return nil
	}

	supply, err := s.stableLedger.GetSupplyData(ctx, reserve.StableDebtAssetID, now)
	if err != nil {
		return err
	}

	prevVariableDebt, err := raymath.MulRay(scaledVariableDebt, prevVariableIndex)
	if err != nil {
		return err
	}
	currVariableDebt, err := raymath.MulRay(scaledVariableDebt, newVariableIndex)
	if err != nil {
		return err
	}

	// stable legs compound at the average rate from the supply's own
	// update timestamp, cut at the previous and current accrual points
	cumPrev, err := interest.Compounded(supply.AvgRate, supply.LastUpdated, lastUpdated)
	if err != nil {
		return err
	}
	prevStableDebt, err := raymath.MulRay(supply.Principal, cumPrev)
	if err != nil {
		return err
	}

	cumCurr, err := interest.Compounded(supply.AvgRate, supply.LastUpdated, now.Unix())
	if err != nil {
		return err
	}
	currStableDebt, err := raymath.MulRay(supply.Principal, cumCurr)
	if err != nil {
		return err
	}

	currTotal := new(uint256.Int).Add(currVariableDebt, currStableDebt)
	prevTotal := new(uint256.Int).Add(prevVariableDebt, prevStableDebt)
	if currTotal.Cmp(prevTotal) <= 0 {
		return nil
	}

	accrued := new(uint256.Int).Sub(currTotal, prevTotal)
	amount, err := raymath.PercentMul(accrued, uint64(reserve.ReserveFactor))
	if err != nil {
		return err
	}

	if amount.IsZero() {
		return nil
	}

	logger.FromContext(ctx).WithField("asset", reserve.AssetID).
		Debugf("treasury skim %s units", amount.Dec())

	return s.receiptLedger.MintToTreasury(ctx, tx, reserve.ReceiptTokenAssetID, amount, newLiquidityIndex)
}

func (s *reserveService) UpdateInterestRates(ctx context.Context, tx *db.DB, reserve *core.Reserve, liquidityAdded, liquidityTaken *uint256.Int) error {
	// rates refresh right after accrual, so the reserve's own
	// timestamp is the accrual instant
	supply, err := s.stableLedger.GetSupplyData(ctx, reserve.StableDebtAssetID, time.Unix(reserve.LastUpdateTimestamp, 0))
	if err != nil {
		return err
	}

	scaledVariableDebt, err := s.variableLedger.ScaledTotalSupply(ctx, reserve.VariableDebtAssetID)
	if err != nil {
		return err
	}
	totalVariableDebt, err := raymath.MulRay(scaledVariableDebt, reserve.GetVariableBorrowIndex())
	if err != nil {
		return err
	}

	cash, err := s.receiptLedger.UnderlyingBalance(ctx, reserve.ReceiptTokenAssetID)
	if err != nil {
		return err
	}

	// the rate is computed on the liquidity after this action's cash
	// movement, which the ledger has not booked yet
	available := new(uint256.Int).Add(cash, liquidityAdded)
	if available.Cmp(liquidityTaken) < 0 {
		return core.ErrInsufficientLiquidity
	}
	available.Sub(available, liquidityTaken)

	rates, err := s.strategy.CalculateInterestRates(
		ctx, reserve,
		available, supply.Total, totalVariableDebt, supply.AvgRate,
		uint64(reserve.ReserveFactor),
	)
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("asset", reserve.AssetID).
		Debugf("rates liquidity=%s stable=%s variable=%s",
			rates.LiquidityRate.Dec(), rates.StableBorrowRate.Dec(), rates.VariableBorrowRate.Dec())

	return reserve.SetRates(rates.LiquidityRate, rates.StableBorrowRate, rates.VariableBorrowRate)
}

func (s *reserveService) CumulateToLiquidityIndex(ctx context.Context, reserve *core.Reserve, totalLiquidity, amount *uint256.Int) error {
	if amount.IsZero() || totalLiquidity.IsZero() {
		return nil
	}

	ratio, err := raymath.DivRay(amount, totalLiquidity)
	if err != nil {
		return err
	}

	factor := new(uint256.Int).Add(raymath.Ray, ratio)
	index, err := raymath.MulRay(factor, reserve.GetLiquidityIndex())
	if err != nil {
		return err
	}

	return reserve.SetLiquidityIndex(index)
}

func (s *reserveService) Init(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	if existing, err := s.reserveStore.Find(ctx, reserve.AssetID); err != nil {
		return err
	} else if existing != nil && existing.IsInitialized() {
		return core.ErrReserveAlreadyInitialized
	}

	count, err := s.reserveStore.Count(ctx)
	if err != nil {
		return err
	}
	if count >= core.MaxReserves {
		return core.ErrNoMoreReservesAllowed
	}

	reserve.ReserveID = count
	if err := reserve.SetLiquidityIndex(raymath.Ray); err != nil {
		return err
	}
	if err := reserve.SetVariableBorrowIndex(raymath.Ray); err != nil {
		return err
	}

	return s.reserveStore.Create(ctx, tx, reserve)
}
