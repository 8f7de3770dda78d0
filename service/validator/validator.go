package validator

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/raymath"

	"github.com/holiman/uint256"
)

type validatorService struct {
	accountSrv     core.AccountService
	userConfigs    core.UserConfigStore
	receiptLedger  core.ReceiptTokenLedger
	stableLedger   core.StableDebtLedger
	variableLedger core.VariableDebtLedger
	strategy       core.InterestRateStrategy
}

// New new validation service
func New(
	accountSrv core.AccountService,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	strategy core.InterestRateStrategy,
) core.ValidationService {
	return &validatorService{
		accountSrv:     accountSrv,
		userConfigs:    userConfigs,
		receiptLedger:  receiptLedger,
		stableLedger:   stableLedger,
		variableLedger: variableLedger,
		strategy:       strategy,
	}
}

func (s *validatorService) ValidateDeposit(ctx context.Context, reserve *core.Reserve, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return core.ErrInvalidAmount
	}
	if !reserve.Active {
		return core.ErrReserveInactive
	}
	if reserve.Frozen {
		return core.ErrReserveFrozen
	}
	return nil
}

func (s *validatorService) ValidateWithdraw(ctx context.Context, reserve *core.Reserve, userID string, amount, userBalance *uint256.Int, now time.Time) error {
	if amount == nil || amount.IsZero() {
		return core.ErrInvalidAmount
	}
	if amount.Cmp(userBalance) > 0 {
		return core.ErrInsufficientBalance
	}
	if !reserve.Active {
		return core.ErrReserveInactive
	}

	ok, err := s.accountSrv.BalanceDecreaseAllowed(ctx, reserve.AssetID, userID, amount, now)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrHealthFactorTooLow
	}

	return nil
}

func (s *validatorService) ValidateBorrow(ctx context.Context, reserve *core.Reserve, userID string, amount *uint256.Int, mode core.RateMode, now time.Time) error {
	if !reserve.Active {
		return core.ErrReserveInactive
	}
	if reserve.Frozen {
		return core.ErrReserveFrozen
	}
	if amount == nil || amount.IsZero() {
		return core.ErrInvalidAmount
	}
	if !reserve.BorrowingEnabled {
		return core.ErrBorrowingDisabled
	}
	if !mode.Valid() {
		return core.ErrInvalidRateMode
	}

	data, err := s.accountSrv.CalculateAccountData(ctx, userID, now)
	if err != nil {
		return err
	}
	if data.TotalCollateral.IsZero() {
		return core.ErrCollateralBalanceZero
	}
	if !data.IsSolvent() {
		return core.ErrHealthFactorTooLow
	}

	needed, err := s.accountSrv.CollateralNeededFor(ctx, userID, reserve.AssetID, amount, now)
	if err != nil {
		return err
	}
	if needed.Cmp(data.TotalCollateral) > 0 {
		return core.ErrInsufficientCollateral
	}

	if mode == core.RateModeStable {
		return s.validateStableBorrow(ctx, reserve, userID, amount)
	}

	return nil
}

// validateStableBorrow the extra gates on stable mode. A user cannot
// open a stable loan in the asset backing their own position, and a
// single loan cannot claim more than a fixed share of the liquidity.
func (s *validatorService) validateStableBorrow(ctx context.Context, reserve *core.Reserve, userID string, amount *uint256.Int) error {
	if !reserve.StableBorrowingEnabled {
		return core.ErrStableBorrowingDisabled
	}

	config, err := s.userConfigs.Find(ctx, userID)
	if err != nil {
		return err
	}

	if config != nil && config.IsUsingAsCollateral(reserve.ReserveID) && reserve.LTV > 0 {
		balance, err := s.receiptBalance(ctx, reserve, userID)
		if err != nil {
			return err
		}
		if amount.Cmp(balance) <= 0 {
			return core.ErrCollateralSameAsBorrow
		}
	}

	cash, err := s.receiptLedger.UnderlyingBalance(ctx, reserve.ReceiptTokenAssetID)
	if err != nil {
		return err
	}
	maxLoan, err := raymath.PercentMul(cash, core.MaxStableRateBorrowSizePercent)
	if err != nil {
		return err
	}
	if amount.Cmp(maxLoan) > 0 {
		return core.ErrAmountExceedsMaxLoanSize
	}

	return nil
}

func (s *validatorService) ValidateRepay(ctx context.Context, reserve *core.Reserve, userID, onBehalfOf string, amount *uint256.Int, all bool, mode core.RateMode, stableDebt, variableDebt *uint256.Int) error {
	if !reserve.Active {
		return core.ErrReserveInactive
	}
	if !all && (amount == nil || amount.IsZero()) {
		return core.ErrInvalidAmount
	}
	if !mode.Valid() {
		return core.ErrInvalidRateMode
	}

	if mode == core.RateModeStable && stableDebt.IsZero() {
		return core.ErrNoDebtOfSelectedType
	}
	if mode == core.RateModeVariable && variableDebt.IsZero() {
		return core.ErrNoDebtOfSelectedType
	}

	// the repay all sentinel reads the exact debt at execution time,
	// which a third party payer cannot consent to
	if all && onBehalfOf != "" && onBehalfOf != userID {
		return core.ErrNoExplicitAmountToRepayOnBehalf
	}

	return nil
}

func (s *validatorService) ValidateSwapRateMode(ctx context.Context, reserve *core.Reserve, config *core.UserConfig, stableDebt, variableDebt *uint256.Int, mode core.RateMode) error {
	if !reserve.Active {
		return core.ErrReserveInactive
	}
	if reserve.Frozen {
		return core.ErrReserveFrozen
	}

	switch mode {
	case core.RateModeStable:
		// leaving stable for variable
		if stableDebt.IsZero() {
			return core.ErrNoDebtOfSelectedType
		}
	case core.RateModeVariable:
		// leaving variable for stable, so the stable gates apply
		if variableDebt.IsZero() {
			return core.ErrNoDebtOfSelectedType
		}
		if !reserve.StableBorrowingEnabled {
			return core.ErrStableBorrowingDisabled
		}
		if config != nil && config.IsUsingAsCollateral(reserve.ReserveID) && reserve.LTV > 0 {
			return core.ErrCollateralSameAsBorrow
		}
	default:
		return core.ErrInvalidRateMode
	}

	return nil
}

func (s *validatorService) ValidateRebalance(ctx context.Context, reserve *core.Reserve, now time.Time) error {
	if !reserve.Active {
		return core.ErrReserveInactive
	}

	cash, err := s.receiptLedger.UnderlyingBalance(ctx, reserve.ReceiptTokenAssetID)
	if err != nil {
		return err
	}
	supply, err := s.stableLedger.GetSupplyData(ctx, reserve.StableDebtAssetID, now)
	if err != nil {
		return err
	}
	scaledVariable, err := s.variableLedger.ScaledTotalSupply(ctx, reserve.VariableDebtAssetID)
	if err != nil {
		return err
	}
	variableDebt, err := raymath.MulRay(scaledVariable, reserve.GetVariableBorrowIndex())
	if err != nil {
		return err
	}

	totalDebt := new(uint256.Int).Add(supply.Total, variableDebt)
	if totalDebt.IsZero() {
		return core.ErrRebalanceConditionsNotMet
	}

	usageRatio, err := raymath.DivRay(totalDebt, new(uint256.Int).Add(cash, totalDebt))
	if err != nil {
		return err
	}

	minUsage, err := uint256.FromDecimal(core.RebalanceUpUsageRatioThresholdDec)
	if err != nil {
		return err
	}

	maxVariableRate := s.strategy.MaxVariableBorrowRate(reserve)
	rateThreshold, err := raymath.PercentMul(maxVariableRate, core.RebalanceUpLiquidityRateThreshold)
	if err != nil {
		return err
	}

	if usageRatio.Cmp(minUsage) < 0 || reserve.GetLiquidityRate().Cmp(rateThreshold) > 0 {
		return core.ErrRebalanceConditionsNotMet
	}

	return nil
}

func (s *validatorService) ValidateSetUseAsCollateral(ctx context.Context, reserve *core.Reserve, userID string, useAsCollateral bool, now time.Time) error {
	if !reserve.Active {
		return core.ErrReserveInactive
	}

	balance, err := s.receiptBalance(ctx, reserve, userID)
	if err != nil {
		return err
	}
	if balance.IsZero() {
		return core.ErrInsufficientBalance
	}

	if !useAsCollateral {
		ok, err := s.accountSrv.BalanceDecreaseAllowed(ctx, reserve.AssetID, userID, balance, now)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrDepositAlreadyInUse
		}
	}

	return nil
}

func (s *validatorService) ValidateFlashLoan(req *core.FlashLoanRequest) error {
	if req == nil || req.Receiver == nil {
		return core.ErrInvalidArgument
	}
	if len(req.AssetIDs) == 0 ||
		len(req.AssetIDs) != len(req.Amounts) ||
		len(req.AssetIDs) != len(req.Modes) {
		return core.ErrInconsistentFlashloanParams
	}
	return nil
}

func (s *validatorService) ValidateTransfer(ctx context.Context, userID string, now time.Time) error {
	data, err := s.accountSrv.CalculateAccountData(ctx, userID, now)
	if err != nil {
		return err
	}
	if !data.IsSolvent() {
		return core.ErrTransferNotAllowed
	}
	return nil
}

func (s *validatorService) ValidateLiquidation(ctx context.Context, collateralReserve, debtReserve *core.Reserve, config *core.UserConfig, healthFactor, totalDebt *uint256.Int) core.LiquidationCode {
	if !collateralReserve.Active || !debtReserve.Active {
		return core.LiquidationNoActiveReserve
	}

	if healthFactor.Cmp(core.HealthFactorLiquidationThreshold) >= 0 {
		return core.LiquidationHealthFactorAboveThreshold
	}

	canBeLiquidated := collateralReserve.LiquidationThreshold > 0 &&
		config != nil && config.IsUsingAsCollateral(collateralReserve.ReserveID)
	if !canBeLiquidated {
		return core.LiquidationCollateralCannotBeLiquidated
	}

	if config == nil || !config.IsBorrowing(debtReserve.ReserveID) || totalDebt.IsZero() {
		return core.LiquidationCurrencyNotBorrowed
	}

	return core.LiquidationNoError
}

func (s *validatorService) receiptBalance(ctx context.Context, reserve *core.Reserve, userID string) (*uint256.Int, error) {
	scaled, err := s.receiptLedger.ScaledBalanceOf(ctx, reserve.ReceiptTokenAssetID, userID)
	if err != nil {
		return nil, err
	}
	if scaled.IsZero() {
		return scaled, nil
	}
	return raymath.MulRay(scaled, reserve.GetLiquidityIndex())
}
