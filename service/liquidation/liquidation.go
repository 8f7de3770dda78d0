package liquidation

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

type liquidationService struct {
	reserveStore   core.ReserveStore
	userConfigs    core.UserConfigStore
	receiptLedger  core.ReceiptTokenLedger
	stableLedger   core.StableDebtLedger
	variableLedger core.VariableDebtLedger
	reserveSrv     core.ReserveService
	accountSrv     core.AccountService
	validator      core.ValidationService
	oracle         core.PriceOracle
}

// New new liquidation service
func New(
	reserveStore core.ReserveStore,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	reserveSrv core.ReserveService,
	accountSrv core.AccountService,
	validator core.ValidationService,
	oracle core.PriceOracle,
) core.LiquidationService {
	return &liquidationService{
		reserveStore:   reserveStore,
		userConfigs:    userConfigs,
		receiptLedger:  receiptLedger,
		stableLedger:   stableLedger,
		variableLedger: variableLedger,
		reserveSrv:     reserveSrv,
		accountSrv:     accountSrv,
		validator:      validator,
		oracle:         oracle,
	}
}

func (s *liquidationService) Liquidate(ctx context.Context, tx *db.DB, liquidator, collateralAssetID, debtAssetID, userID string, debtToCover *uint256.Int, receiveReceipt bool, now time.Time) (*core.LiquidationResult, error) {
	log := logger.FromContext(ctx).WithField("event", "liquidate")

	collateralReserve, err := s.reserveStore.Find(ctx, collateralAssetID)
	if err != nil {
		return nil, err
	}

	// one asset may back both sides; the burn and seize phases each
	// write a versioned update, so they must share a single instance
	debtReserve := collateralReserve
	if debtAssetID != collateralAssetID {
		debtReserve, err = s.reserveStore.Find(ctx, debtAssetID)
		if err != nil {
			return nil, err
		}
	}
	if collateralReserve == nil || debtReserve == nil {
		return nil, core.ErrReserveNotFound
	}

	data, err := s.accountSrv.CalculateAccountData(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	config, err := s.userConfigs.Find(ctx, userID)
	if err != nil {
		return nil, err
	}

	stableDebt, variableDebt, err := s.userDebt(ctx, debtReserve, userID, now)
	if err != nil {
		return nil, err
	}
	totalDebt := new(uint256.Int).Add(stableDebt, variableDebt)

	if code := s.validator.ValidateLiquidation(ctx, collateralReserve, debtReserve, config, data.HealthFactor, totalDebt); code != core.LiquidationNoError {
		log.WithField("code", code).Infoln(code.Message())
		return nil, code.ErrorCode()
	}

	// close factor cap, then the caller's requested amount
	maxLiquidatable, err := raymath.PercentMul(totalDebt, core.LiquidationCloseFactorPercent)
	if err != nil {
		return nil, err
	}
	actualDebt := new(uint256.Int).Set(maxLiquidatable)
	if debtToCover != nil && debtToCover.Cmp(actualDebt) < 0 {
		actualDebt.Set(debtToCover)
	}

	userCollateral, err := s.receiptBalance(ctx, collateralReserve, userID, now)
	if err != nil {
		return nil, err
	}

	collateralSeized, actualDebt, err := s.availableCollateralToLiquidate(ctx, collateralReserve, debtReserve, actualDebt, userCollateral)
	if err != nil {
		return nil, err
	}

	// paying out the underlying needs actual cash in the reserve;
	// receipt tokens just change hands
	if !receiveReceipt {
		cash, err := s.receiptLedger.UnderlyingBalance(ctx, collateralReserve.ReceiptTokenAssetID)
		if err != nil {
			return nil, err
		}
		if cash.Cmp(collateralSeized) < 0 {
			return nil, core.ErrInsufficientLiquidity
		}
	}

	if err := s.burnDebt(ctx, tx, debtReserve, userID, actualDebt, stableDebt, variableDebt, now); err != nil {
		return nil, err
	}

	if err := s.seizeCollateral(ctx, tx, collateralReserve, userID, liquidator, collateralSeized, receiveReceipt, now); err != nil {
		return nil, err
	}

	// the whole collateral position is gone, drop the flag
	if collateralSeized.Cmp(userCollateral) >= 0 && config != nil {
		config.SetUsingAsCollateral(collateralReserve.ReserveID, false)
		if err := s.userConfigs.Update(ctx, tx, config); err != nil {
			return nil, err
		}
	}

	// pull the covered debt from the liquidator into the reserve
	if err := s.receiptLedger.ReceiveUnderlying(ctx, tx, debtReserve.ReceiptTokenAssetID, actualDebt); err != nil {
		return nil, err
	}

	log.WithField("user", userID).
		WithField("debt_covered", actualDebt.Dec()).
		WithField("collateral_seized", collateralSeized.Dec()).
		Infoln("liquidated")

	return &core.LiquidationResult{
		DebtCovered:      actualDebt,
		CollateralSeized: collateralSeized,
		ReceivedReceipt:  receiveReceipt,
	}, nil
}

// availableCollateralToLiquidate converts the debt to cover into
// collateral units inflated by the liquidation bonus, capped at the
// user's balance. When the cap binds, the debt is recomputed from the
// capped collateral: collateral seizure is the binding constraint.
func (s *liquidationService) availableCollateralToLiquidate(ctx context.Context, collateralReserve, debtReserve *core.Reserve, debtToCover, userCollateral *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	collateralPrice, err := s.oracle.GetAssetPrice(ctx, collateralReserve.AssetID)
	if err != nil {
		return nil, nil, err
	}
	debtPrice, err := s.oracle.GetAssetPrice(ctx, debtReserve.AssetID)
	if err != nil {
		return nil, nil, err
	}

	collateralUnit := tokenUnit(collateralReserve.Decimals)
	debtUnit := tokenUnit(debtReserve.Decimals)
	bonus := uint64(collateralReserve.LiquidationBonus)

	// debtPrice * debtToCover * bonus * collateralUnit
	// ----------------------------------------------- = collateral units
	//         collateralPrice * debtUnit
	debtValue, err := raymath.MulDiv(debtPrice, debtToCover, debtUnit)
	if err != nil {
		return nil, nil, err
	}
	debtValue, err = raymath.PercentMul(debtValue, bonus)
	if err != nil {
		return nil, nil, err
	}
	maxCollateral, err := raymath.MulDiv(debtValue, collateralUnit, collateralPrice)
	if err != nil {
		return nil, nil, err
	}

	if maxCollateral.Cmp(userCollateral) <= 0 {
		return maxCollateral, debtToCover, nil
	}

	// capped: run the conversion backwards from the full balance
	collateralValue, err := raymath.MulDiv(collateralPrice, userCollateral, collateralUnit)
	if err != nil {
		return nil, nil, err
	}
	collateralValue, err = raymath.PercentDiv(collateralValue, bonus)
	if err != nil {
		return nil, nil, err
	}
	debtNeeded, err := raymath.MulDiv(collateralValue, debtUnit, debtPrice)
	if err != nil {
		return nil, nil, err
	}

	return new(uint256.Int).Set(userCollateral), debtNeeded, nil
}

// burnDebt accrues the debt reserve, burns variable debt first and
// stable for the remainder, then refreshes its rates.
func (s *liquidationService) burnDebt(ctx context.Context, tx *db.DB, reserve *core.Reserve, userID string, amount, stableDebt, variableDebt *uint256.Int, now time.Time) error {
	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	remaining := new(uint256.Int).Set(amount)

	if !variableDebt.IsZero() {
		burn := new(uint256.Int).Set(remaining)
		if burn.Cmp(variableDebt) > 0 {
			burn.Set(variableDebt)
		}
		if err := s.variableLedger.Burn(ctx, tx, reserve.VariableDebtAssetID, userID, burn, reserve.GetVariableBorrowIndex()); err != nil {
			return err
		}
		remaining.Sub(remaining, burn)
	}

	if !remaining.IsZero() {
		if remaining.Cmp(stableDebt) > 0 {
			remaining.Set(stableDebt)
		}
		if err := s.stableLedger.Burn(ctx, tx, reserve.StableDebtAssetID, userID, remaining, now); err != nil {
			return err
		}
	}

	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, amount, uint256.NewInt(0)); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

// seizeCollateral hands the seized collateral to the liquidator,
// either as receipt tokens or as the underlying asset.
func (s *liquidationService) seizeCollateral(ctx context.Context, tx *db.DB, reserve *core.Reserve, userID, liquidator string, amount *uint256.Int, receiveReceipt bool, now time.Time) error {
	if receiveReceipt {
		transferIndex, err := reserve.NormalizedIncome(now)
		if err != nil {
			return err
		}

		liquidatorScaled, err := s.receiptLedger.ScaledBalanceOf(ctx, reserve.ReceiptTokenAssetID, liquidator)
		if err != nil {
			return err
		}

		if err := s.receiptLedger.TransferOnLiquidation(ctx, tx, reserve.ReceiptTokenAssetID, userID, liquidator, amount, transferIndex); err != nil {
			return err
		}

		// the liquidator's new position starts as collateral
		if liquidatorScaled.IsZero() {
			config, err := s.userConfigs.FindOrCreate(ctx, tx, liquidator)
			if err != nil {
				return err
			}
			config.SetUsingAsCollateral(reserve.ReserveID, true)
			return s.userConfigs.Update(ctx, tx, config)
		}

		return nil
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}
	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), amount); err != nil {
		return err
	}
	if err := s.receiptLedger.Burn(ctx, tx, reserve.ReceiptTokenAssetID, userID, liquidator, amount, reserve.GetLiquidityIndex()); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *liquidationService) userDebt(ctx context.Context, reserve *core.Reserve, userID string, now time.Time) (*uint256.Int, *uint256.Int, error) {
	stable, err := s.stableLedger.BalanceOf(ctx, reserve.StableDebtAssetID, userID, now)
	if err != nil {
		return nil, nil, err
	}

	scaled, err := s.variableLedger.ScaledBalanceOf(ctx, reserve.VariableDebtAssetID, userID)
	if err != nil {
		return nil, nil, err
	}
	if scaled.IsZero() {
		return stable, scaled, nil
	}

	index, err := reserve.NormalizedVariableDebt(now)
	if err != nil {
		return nil, nil, err
	}
	variable, err := raymath.MulRay(scaled, index)
	if err != nil {
		return nil, nil, err
	}

	return stable, variable, nil
}

func (s *liquidationService) receiptBalance(ctx context.Context, reserve *core.Reserve, userID string, now time.Time) (*uint256.Int, error) {
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

func tokenUnit(decimals int32) *uint256.Int {
	unit := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := int32(0); i < decimals; i++ {
		unit.Mul(unit, ten)
	}
	return unit
}
