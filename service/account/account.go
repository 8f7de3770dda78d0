package account

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/raymath"

	"github.com/holiman/uint256"
)

type accountService struct {
	reserveStore    core.ReserveStore
	userConfigStore core.UserConfigStore
	receiptLedger   core.ReceiptTokenLedger
	stableLedger    core.StableDebtLedger
	variableLedger  core.VariableDebtLedger
	oracle          core.PriceOracle
}

// New new account service
func New(
	reserveStore core.ReserveStore,
	userConfigStore core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	oracle core.PriceOracle,
) core.AccountService {
	return &accountService{
		reserveStore:    reserveStore,
		userConfigStore: userConfigStore,
		receiptLedger:   receiptLedger,
		stableLedger:    stableLedger,
		variableLedger:  variableLedger,
		oracle:          oracle,
	}
}

func (s *accountService) CalculateAccountData(ctx context.Context, userID string, now time.Time) (*core.AccountData, error) {
	data := &core.AccountData{
		TotalCollateral: uint256.NewInt(0),
		TotalDebt:       uint256.NewInt(0),
		HealthFactor:    new(uint256.Int).Set(core.MaxHealthFactor),
	}

	config, err := s.userConfigStore.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if config == nil || config.IsEmpty() {
		return data, nil
	}

	reserves, err := s.reserveStore.All(ctx)
	if err != nil {
		return nil, err
	}

	// value weighted sums, divided out once all reserves are in
	weightedLTV := uint256.NewInt(0)
	weightedThreshold := uint256.NewInt(0)

	for _, reserve := range reserves {
		if !config.UsesReserve(reserve.ReserveID) {
			continue
		}

		price, err := s.oracle.GetAssetPrice(ctx, reserve.AssetID)
		if err != nil {
			return nil, err
		}
		unit := tokenUnit(reserve.Decimals)

		if reserve.LiquidationThreshold > 0 && config.IsUsingAsCollateral(reserve.ReserveID) {
			balance, err := s.collateralBalance(ctx, reserve, userID, now)
			if err != nil {
				return nil, err
			}

			value, err := raymath.MulDiv(balance, price, unit)
			if err != nil {
				return nil, err
			}
			data.TotalCollateral.Add(data.TotalCollateral, value)

			w, err := raymath.MulDiv(value, uint256.NewInt(uint64(reserve.LTV)), uint256.NewInt(1))
			if err != nil {
				return nil, err
			}
			weightedLTV.Add(weightedLTV, w)

			w, err = raymath.MulDiv(value, uint256.NewInt(uint64(reserve.LiquidationThreshold)), uint256.NewInt(1))
			if err != nil {
				return nil, err
			}
			weightedThreshold.Add(weightedThreshold, w)
		}

		if config.IsBorrowing(reserve.ReserveID) {
			debt, err := s.debtBalance(ctx, reserve, userID, now)
			if err != nil {
				return nil, err
			}

			value, err := raymath.MulDiv(debt, price, unit)
			if err != nil {
				return nil, err
			}
			data.TotalDebt.Add(data.TotalDebt, value)
		}
	}

	if !data.TotalCollateral.IsZero() {
		avg := new(uint256.Int).Div(weightedLTV, data.TotalCollateral)
		data.AvgLTV = avg.Uint64()
		avg.Div(weightedThreshold, data.TotalCollateral)
		data.AvgLiquidationThreshold = avg.Uint64()
	}

	if data.TotalDebt.IsZero() {
		return data, nil
	}

	hf, err := healthFactor(data.TotalCollateral, data.TotalDebt, data.AvgLiquidationThreshold)
	if err != nil {
		return nil, err
	}
	data.HealthFactor = hf

	return data, nil
}

func (s *accountService) BalanceDecreaseAllowed(ctx context.Context, assetID, userID string, amount *uint256.Int, now time.Time) (bool, error) {
	config, err := s.userConfigStore.Find(ctx, userID)
	if err != nil {
		return false, err
	}
	if config == nil || !config.IsBorrowingAny() {
		return true, nil
	}

	reserve, err := s.reserveStore.Find(ctx, assetID)
	if err != nil {
		return false, err
	}
	if reserve == nil {
		return false, core.ErrReserveNotFound
	}

	// a reserve that never counts as collateral cannot hurt solvency
	if reserve.LiquidationThreshold == 0 || !config.IsUsingAsCollateral(reserve.ReserveID) {
		return true, nil
	}

	data, err := s.CalculateAccountData(ctx, userID, now)
	if err != nil {
		return false, err
	}
	if data.TotalDebt.IsZero() {
		return true, nil
	}

	price, err := s.oracle.GetAssetPrice(ctx, reserve.AssetID)
	if err != nil {
		return false, err
	}

	decrease, err := raymath.MulDiv(amount, price, tokenUnit(reserve.Decimals))
	if err != nil {
		return false, err
	}

	if data.TotalCollateral.Cmp(decrease) <= 0 {
		return false, nil
	}
	collateralAfter := new(uint256.Int).Sub(data.TotalCollateral, decrease)

	// the removed slice carries this reserve's own threshold; the
	// remainder keeps the account average
	weighted, err := raymath.MulDiv(data.TotalCollateral, uint256.NewInt(data.AvgLiquidationThreshold), uint256.NewInt(1))
	if err != nil {
		return false, err
	}
	removed, err := raymath.MulDiv(decrease, uint256.NewInt(uint64(reserve.LiquidationThreshold)), uint256.NewInt(1))
	if err != nil {
		return false, err
	}
	if weighted.Cmp(removed) <= 0 {
		return false, nil
	}
	thresholdAfter := new(uint256.Int).Sub(weighted, removed)
	thresholdAfter.Div(thresholdAfter, collateralAfter)

	hf, err := healthFactor(collateralAfter, data.TotalDebt, thresholdAfter.Uint64())
	if err != nil {
		return false, err
	}

	return hf.Cmp(core.HealthFactorLiquidationThreshold) >= 0, nil
}

func (s *accountService) CollateralNeededFor(ctx context.Context, userID, assetID string, amount *uint256.Int, now time.Time) (*uint256.Int, error) {
	data, err := s.CalculateAccountData(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	reserve, err := s.reserveStore.Find(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if reserve == nil {
		return nil, core.ErrReserveNotFound
	}

	price, err := s.oracle.GetAssetPrice(ctx, reserve.AssetID)
	if err != nil {
		return nil, err
	}

	borrowValue, err := raymath.MulDiv(amount, price, tokenUnit(reserve.Decimals))
	if err != nil {
		return nil, err
	}

	total := new(uint256.Int).Add(data.TotalDebt, borrowValue)
	if data.AvgLTV == 0 {
		return nil, core.ErrInsufficientCollateral
	}

	return raymath.PercentDiv(total, data.AvgLTV)
}

// collateralBalance the user's receipt token balance in underlying
// units as of now.
func (s *accountService) collateralBalance(ctx context.Context, reserve *core.Reserve, userID string, now time.Time) (*uint256.Int, error) {
	scaled, err := s.receiptLedger.ScaledBalanceOf(ctx, reserve.ReceiptTokenAssetID, userID)
	if err != nil {
		return nil, err
	}
	if scaled.IsZero() {
		return scaled, nil
	}

	income, err := reserve.NormalizedIncome(now)
	if err != nil {
		return nil, err
	}

	return raymath.MulRay(scaled, income)
}

// debtBalance stable plus variable debt in underlying units as of now.
func (s *accountService) debtBalance(ctx context.Context, reserve *core.Reserve, userID string, now time.Time) (*uint256.Int, error) {
	stable, err := s.stableLedger.BalanceOf(ctx, reserve.StableDebtAssetID, userID, now)
	if err != nil {
		return nil, err
	}

	scaled, err := s.variableLedger.ScaledBalanceOf(ctx, reserve.VariableDebtAssetID, userID)
	if err != nil {
		return nil, err
	}
	if scaled.IsZero() {
		return stable, nil
	}

	debtIndex, err := reserve.NormalizedVariableDebt(now)
	if err != nil {
		return nil, err
	}

	variable, err := raymath.MulRay(scaled, debtIndex)
	if err != nil {
		return nil, err
	}

	return new(uint256.Int).Add(stable, variable), nil
}

// healthFactor (collateral percentMul threshold) wadDiv debt, in ray.
func healthFactor(totalCollateral, totalDebt *uint256.Int, threshold uint64) (*uint256.Int, error) {
	adjusted, err := raymath.PercentMul(totalCollateral, threshold)
	if err != nil {
		return nil, err
	}

	// both legs are wad so the wad ratio is lifted straight to ray
	ratio, err := raymath.DivWad(adjusted, totalDebt)
	if err != nil {
		return nil, err
	}

	return raymath.WadToRay(ratio)
}

func tokenUnit(decimals int32) *uint256.Int {
	unit := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := int32(0); i < decimals; i++ {
		unit.Mul(unit, ten)
	}
	return unit
}
