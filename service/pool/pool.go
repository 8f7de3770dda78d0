package pool

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/number"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/spf13/cast"
)

type poolService struct {
	reserveStore   core.ReserveStore
	userConfigs    core.UserConfigStore
	receiptLedger  core.ReceiptTokenLedger
	stableLedger   core.StableDebtLedger
	variableLedger core.VariableDebtLedger
	reserveSrv     core.ReserveService
	accountSrv     core.AccountService
	validator      core.ValidationService
	liquidationSrv core.LiquidationService
	properties     property.Store
}

// New new pool service
func New(
	reserveStore core.ReserveStore,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	reserveSrv core.ReserveService,
	accountSrv core.AccountService,
	validator core.ValidationService,
	liquidationSrv core.LiquidationService,
	properties property.Store,
) core.PoolService {
	return &poolService{
		reserveStore:   reserveStore,
		userConfigs:    userConfigs,
		receiptLedger:  receiptLedger,
		stableLedger:   stableLedger,
		variableLedger: variableLedger,
		reserveSrv:     reserveSrv,
		accountSrv:     accountSrv,
		validator:      validator,
		liquidationSrv: liquidationSrv,
		properties:     properties,
	}
}

func (s *poolService) guard(ctx context.Context) error {
	v, err := s.properties.Get(ctx, core.SysPauseProperty)
	if err != nil {
		return err
	}
	if cast.ToBool(v.String()) {
		return core.ErrPoolPaused
	}
	return nil
}

func (s *poolService) findReserve(ctx context.Context, assetID string) (*core.Reserve, error) {
	reserve, err := s.reserveStore.Find(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if reserve == nil || !reserve.IsInitialized() {
		return nil, core.ErrReserveNotFound
	}
	return reserve, nil
}

func (s *poolService) Deposit(ctx context.Context, tx *db.DB, userID string, p *core.DepositPayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	amount, err := number.ToUnits(p.Amount, reserve.Decimals)
	if err != nil {
		return core.ErrInvalidAmount
	}

	if err := s.validator.ValidateDeposit(ctx, reserve, amount); err != nil {
		return err
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}
	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, amount, uint256.NewInt(0)); err != nil {
		return err
	}

	onBehalfOf := p.OnBehalfOf
	if onBehalfOf == "" {
		onBehalfOf = userID
	}

	if err := s.receiptLedger.ReceiveUnderlying(ctx, tx, reserve.ReceiptTokenAssetID, amount); err != nil {
		return err
	}

	isFirst, err := s.receiptLedger.Mint(ctx, tx, reserve.ReceiptTokenAssetID, onBehalfOf, amount, reserve.GetLiquidityIndex())
	if err != nil {
		return err
	}
	if isFirst {
		if err := s.setCollateralFlag(ctx, tx, onBehalfOf, reserve.ReserveID, true); err != nil {
			return err
		}
	}

	logger.FromContext(ctx).WithField("event", "deposit").
		WithField("asset", reserve.AssetID).
		Debugf("user %s deposited %s units", onBehalfOf, amount.Dec())

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) Withdraw(ctx context.Context, tx *db.DB, userID string, p *core.WithdrawPayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	balance, err := s.receiptBalance(ctx, reserve, userID)
	if err != nil {
		return err
	}

	amount := balance
	if !p.All {
		if amount, err = number.ToUnits(p.Amount, reserve.Decimals); err != nil {
			return core.ErrInvalidAmount
		}
	}

	if err := s.validator.ValidateWithdraw(ctx, reserve, userID, amount, balance, now); err != nil {
		return err
	}

	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), amount); err != nil {
		return err
	}

	if amount.Cmp(balance) == 0 {
		if err := s.setCollateralFlag(ctx, tx, userID, reserve.ReserveID, false); err != nil {
			return err
		}
	}

	receiver := p.To
	if receiver == "" {
		receiver = userID
	}

	if err := s.receiptLedger.Burn(ctx, tx, reserve.ReceiptTokenAssetID, userID, receiver, amount, reserve.GetLiquidityIndex()); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) Borrow(ctx context.Context, tx *db.DB, userID string, p *core.BorrowPayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	amount, err := number.ToUnits(p.Amount, reserve.Decimals)
	if err != nil {
		return core.ErrInvalidAmount
	}

	borrower := p.OnBehalfOf
	if borrower == "" {
		borrower = userID
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	if err := s.validator.ValidateBorrow(ctx, reserve, borrower, amount, p.RateMode, now); err != nil {
		return err
	}

	isFirst, err := s.mintDebt(ctx, tx, reserve, borrower, amount, p.RateMode, now)
	if err != nil {
		return err
	}
	if isFirst {
		if err := s.setBorrowingFlag(ctx, tx, borrower, reserve.ReserveID, true); err != nil {
			return err
		}
	}

	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), amount); err != nil {
		return err
	}

	if err := s.receiptLedger.TransferUnderlyingTo(ctx, tx, reserve.ReceiptTokenAssetID, userID, amount); err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("event", "borrow").
		WithField("asset", reserve.AssetID).
		Debugf("user %s borrowed %s units mode %d", borrower, amount.Dec(), p.RateMode)

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) Repay(ctx context.Context, tx *db.DB, userID string, p *core.RepayPayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	onBehalfOf := p.OnBehalfOf
	if onBehalfOf == "" {
		onBehalfOf = userID
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	stableDebt, variableDebt, err := s.userDebt(ctx, reserve, onBehalfOf, now)
	if err != nil {
		return err
	}

	var amount *uint256.Int
	if !p.All {
		if amount, err = number.ToUnits(p.Amount, reserve.Decimals); err != nil {
			return core.ErrInvalidAmount
		}
	}

	if err := s.validator.ValidateRepay(ctx, reserve, userID, p.OnBehalfOf, amount, p.All, p.RateMode, stableDebt, variableDebt); err != nil {
		return err
	}

	payback := new(uint256.Int).Set(variableDebt)
	if p.RateMode == core.RateModeStable {
		payback.Set(stableDebt)
	}
	if amount != nil && amount.Cmp(payback) < 0 {
		payback.Set(amount)
	}

	if p.RateMode == core.RateModeStable {
		if err := s.stableLedger.Burn(ctx, tx, reserve.StableDebtAssetID, onBehalfOf, payback, now); err != nil {
			return err
		}
		if payback.Cmp(stableDebt) == 0 && variableDebt.IsZero() {
			if err := s.setBorrowingFlag(ctx, tx, onBehalfOf, reserve.ReserveID, false); err != nil {
				return err
			}
		}
	} else {
		if err := s.variableLedger.Burn(ctx, tx, reserve.VariableDebtAssetID, onBehalfOf, payback, reserve.GetVariableBorrowIndex()); err != nil {
			return err
		}
		if payback.Cmp(variableDebt) == 0 && stableDebt.IsZero() {
			if err := s.setBorrowingFlag(ctx, tx, onBehalfOf, reserve.ReserveID, false); err != nil {
				return err
			}
		}
	}

	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, payback, uint256.NewInt(0)); err != nil {
		return err
	}

	if err := s.receiptLedger.ReceiveUnderlying(ctx, tx, reserve.ReceiptTokenAssetID, payback); err != nil {
		return err
	}
	if err := s.receiptLedger.HandleRepayment(ctx, tx, reserve.ReceiptTokenAssetID, userID, payback); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) SwapRateMode(ctx context.Context, tx *db.DB, userID string, p *core.SwapRateModePayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	stableDebt, variableDebt, err := s.userDebt(ctx, reserve, userID, now)
	if err != nil {
		return err
	}

	config, err := s.userConfigs.Find(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.validator.ValidateSwapRateMode(ctx, reserve, config, stableDebt, variableDebt, p.RateMode); err != nil {
		return err
	}

	if p.RateMode == core.RateModeStable {
		// stable position becomes variable
		if err := s.stableLedger.Burn(ctx, tx, reserve.StableDebtAssetID, userID, stableDebt, now); err != nil {
			return err
		}
		if _, err := s.variableLedger.Mint(ctx, tx, reserve.VariableDebtAssetID, userID, stableDebt, reserve.GetVariableBorrowIndex()); err != nil {
			return err
		}
	} else {
		// variable position becomes stable at the current rate
		if err := s.variableLedger.Burn(ctx, tx, reserve.VariableDebtAssetID, userID, variableDebt, reserve.GetVariableBorrowIndex()); err != nil {
			return err
		}
		if _, err := s.stableLedger.Mint(ctx, tx, reserve.StableDebtAssetID, userID, variableDebt, reserve.GetStableBorrowRate(), now); err != nil {
			return err
		}
	}

	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), uint256.NewInt(0)); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) RebalanceStableRate(ctx context.Context, tx *db.DB, p *core.RebalancePayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	debt, err := s.stableLedger.BalanceOf(ctx, reserve.StableDebtAssetID, p.UserID, now)
	if err != nil {
		return err
	}
	if debt.IsZero() {
		return core.ErrNoDebtOfSelectedType
	}

	if err := s.validator.ValidateRebalance(ctx, reserve, now); err != nil {
		return err
	}

	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	if err := s.stableLedger.Burn(ctx, tx, reserve.StableDebtAssetID, p.UserID, debt, now); err != nil {
		return err
	}
	if _, err := s.stableLedger.Mint(ctx, tx, reserve.StableDebtAssetID, p.UserID, debt, reserve.GetStableBorrowRate(), now); err != nil {
		return err
	}

	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), uint256.NewInt(0)); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) SetUseAsCollateral(ctx context.Context, tx *db.DB, userID string, p *core.SetCollateralPayload, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, p.AssetID)
	if err != nil {
		return err
	}

	if err := s.validator.ValidateSetUseAsCollateral(ctx, reserve, userID, p.UseAsCollateral, now); err != nil {
		return err
	}

	return s.setCollateralFlag(ctx, tx, userID, reserve.ReserveID, p.UseAsCollateral)
}

func (s *poolService) Liquidate(ctx context.Context, tx *db.DB, liquidator string, p *core.LiquidatePayload, now time.Time) (*core.LiquidationResult, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	debtReserve, err := s.findReserve(ctx, p.DebtAssetID)
	if err != nil {
		return nil, err
	}

	debtToCover, err := number.ToUnits(p.DebtToCover, debtReserve.Decimals)
	if err != nil {
		return nil, core.ErrInvalidAmount
	}

	return s.liquidationSrv.Liquidate(ctx, tx, liquidator, p.CollateralAssetID, p.DebtAssetID, p.UserID, debtToCover, p.ReceiveReceipt, now)
}

func (s *poolService) FlashLoan(ctx context.Context, tx *db.DB, initiator string, req *core.FlashLoanRequest, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	if err := s.validator.ValidateFlashLoan(req); err != nil {
		return err
	}

	onBehalfOf := req.OnBehalfOf
	if onBehalfOf == "" {
		onBehalfOf = initiator
	}

	reserves := make([]*core.Reserve, len(req.AssetIDs))
	premiums := make([]*uint256.Int, len(req.AssetIDs))

	for i, assetID := range req.AssetIDs {
		reserve, err := s.findReserve(ctx, assetID)
		if err != nil {
			return err
		}
		reserves[i] = reserve

		premium := uint256.NewInt(0)
		if req.Modes[i] == core.RateModeNone {
			if premium, err = raymath.PercentMul(req.Amounts[i], core.FlashLoanPremiumTotal); err != nil {
				return err
			}
		}
		premiums[i] = premium

		if err := s.receiptLedger.TransferUnderlyingTo(ctx, tx, reserve.ReceiptTokenAssetID, initiator, req.Amounts[i]); err != nil {
			return err
		}
	}

	if err := req.Receiver.ExecuteOperation(ctx, req.AssetIDs, req.Amounts, premiums, initiator, req.Params); err != nil {
		return err
	}

	for i, reserve := range reserves {
		amount := req.Amounts[i]

		if req.Modes[i] == core.RateModeNone {
			if err := s.settleFlashLoan(ctx, tx, reserve, amount, premiums[i], now); err != nil {
				return err
			}
			continue
		}

		// the borrower keeps the funds and the amount stays open as debt
		if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
			return err
		}
		isFirst, err := s.mintDebt(ctx, tx, reserve, onBehalfOf, amount, req.Modes[i], now)
		if err != nil {
			return err
		}
		if isFirst {
			if err := s.setBorrowingFlag(ctx, tx, onBehalfOf, reserve.ReserveID, true); err != nil {
				return err
			}
		}
		if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, uint256.NewInt(0), amount); err != nil {
			return err
		}
		if err := s.reserveStore.Update(ctx, tx, reserve); err != nil {
			return err
		}
	}

	return nil
}

// settleFlashLoan books the returned principal plus premium and
// spreads the premium over the depositors.
func (s *poolService) settleFlashLoan(ctx context.Context, tx *db.DB, reserve *core.Reserve, amount, premium *uint256.Int, now time.Time) error {
	if err := s.reserveSrv.UpdateState(ctx, tx, reserve, now); err != nil {
		return err
	}

	scaled, err := s.receiptLedger.ScaledTotalSupply(ctx, reserve.ReceiptTokenAssetID)
	if err != nil {
		return err
	}
	totalLiquidity, err := raymath.MulRay(scaled, reserve.GetLiquidityIndex())
	if err != nil {
		return err
	}

	if err := s.reserveSrv.CumulateToLiquidityIndex(ctx, reserve, totalLiquidity, premium); err != nil {
		return err
	}
	if err := s.reserveSrv.UpdateInterestRates(ctx, tx, reserve, premium, uint256.NewInt(0)); err != nil {
		return err
	}

	repaid := new(uint256.Int).Add(amount, premium)
	if err := s.receiptLedger.ReceiveUnderlying(ctx, tx, reserve.ReceiptTokenAssetID, repaid); err != nil {
		return err
	}

	return s.reserveStore.Update(ctx, tx, reserve)
}

func (s *poolService) FinalizeTransfer(ctx context.Context, tx *db.DB, assetID, from, to string, amount, balanceFromBefore *uint256.Int, now time.Time) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	reserve, err := s.findReserve(ctx, assetID)
	if err != nil {
		return err
	}

	if err := s.validator.ValidateTransfer(ctx, from, now); err != nil {
		return err
	}

	if from == to || amount.IsZero() {
		return nil
	}

	if balanceFromBefore.Cmp(amount) == 0 {
		if err := s.setCollateralFlag(ctx, tx, from, reserve.ReserveID, false); err != nil {
			return err
		}
	}

	// receiving the first receipt tokens flags the reserve as collateral
	toScaled, err := s.receiptLedger.ScaledBalanceOf(ctx, reserve.ReceiptTokenAssetID, to)
	if err != nil {
		return err
	}
	toBalance, err := raymath.MulRay(toScaled, reserve.GetLiquidityIndex())
	if err != nil {
		return err
	}
	if toBalance.Cmp(amount) == 0 {
		if err := s.setCollateralFlag(ctx, tx, to, reserve.ReserveID, true); err != nil {
			return err
		}
	}

	return nil
}

func (s *poolService) InitReserve(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	if err := reserve.Config().Validate(); err != nil {
		return err
	}

	return s.reserveSrv.Init(ctx, tx, reserve)
}

func (s *poolService) mintDebt(ctx context.Context, tx *db.DB, reserve *core.Reserve, borrower string, amount *uint256.Int, mode core.RateMode, now time.Time) (bool, error) {
	if mode == core.RateModeStable {
		return s.stableLedger.Mint(ctx, tx, reserve.StableDebtAssetID, borrower, amount, reserve.GetStableBorrowRate(), now)
	}
	return s.variableLedger.Mint(ctx, tx, reserve.VariableDebtAssetID, borrower, amount, reserve.GetVariableBorrowIndex())
}

func (s *poolService) userDebt(ctx context.Context, reserve *core.Reserve, userID string, now time.Time) (*uint256.Int, *uint256.Int, error) {
	stable, err := s.stableLedger.BalanceOf(ctx, reserve.StableDebtAssetID, userID, now)
	if err != nil {
		return nil, nil, err
	}

	scaled, err := s.variableLedger.ScaledBalanceOf(ctx, reserve.VariableDebtAssetID, userID)
	if err != nil {
		return nil, nil, err
	}

	variable, err := raymath.MulRay(scaled, reserve.GetVariableBorrowIndex())
	if err != nil {
		return nil, nil, err
	}

	return stable, variable, nil
}

func (s *poolService) receiptBalance(ctx context.Context, reserve *core.Reserve, userID string) (*uint256.Int, error) {
	scaled, err := s.receiptLedger.ScaledBalanceOf(ctx, reserve.ReceiptTokenAssetID, userID)
	if err != nil {
		return nil, err
	}
	return raymath.MulRay(scaled, reserve.GetLiquidityIndex())
}

func (s *poolService) setCollateralFlag(ctx context.Context, tx *db.DB, userID string, reserveID int64, on bool) error {
	config, err := s.userConfigs.FindOrCreate(ctx, tx, userID)
	if err != nil {
		return err
	}
	if config.IsUsingAsCollateral(reserveID) == on {
		return nil
	}
	config.SetUsingAsCollateral(reserveID, on)
	return s.userConfigs.Update(ctx, tx, config)
}

func (s *poolService) setBorrowingFlag(ctx context.Context, tx *db.DB, userID string, reserveID int64, on bool) error {
	config, err := s.userConfigs.FindOrCreate(ctx, tx, userID)
	if err != nil {
		return err
	}
	if config.IsBorrowing(reserveID) == on {
		return nil
	}
	config.SetBorrowing(reserveID, on)
	return s.userConfigs.Update(ctx, tx, config)
}
