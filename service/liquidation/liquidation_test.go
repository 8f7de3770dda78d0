package liquidation

import (
	"context"
	"testing"
	"time"

	"levee/core"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reserveStoreStub struct {
	core.ReserveStore
	reserves map[string]*core.Reserve
	updated  []*core.Reserve
}

func (s *reserveStoreStub) Find(ctx context.Context, assetID string) (*core.Reserve, error) {
	return s.reserves[assetID], nil
}

func (s *reserveStoreStub) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	s.updated = append(s.updated, reserve)
	return nil
}

type userConfigStub struct {
	core.UserConfigStore
	configs map[string]*core.UserConfig
}

func (s *userConfigStub) Find(ctx context.Context, userID string) (*core.UserConfig, error) {
	return s.configs[userID], nil
}

func (s *userConfigStub) FindOrCreate(ctx context.Context, tx *db.DB, userID string) (*core.UserConfig, error) {
	if c, ok := s.configs[userID]; ok {
		return c, nil
	}
	c := &core.UserConfig{UserID: userID}
	s.configs[userID] = c
	return c, nil
}

func (s *userConfigStub) Update(ctx context.Context, tx *db.DB, config *core.UserConfig) error {
	s.configs[config.UserID] = config
	return nil
}

type receiptStub struct {
	core.ReceiptTokenLedger
	balances    map[string]*uint256.Int
	cash        *uint256.Int
	transferred *uint256.Int
	burned      *uint256.Int
	received    *uint256.Int
}

func (s *receiptStub) ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	if v, ok := s.balances[userID]; ok {
		return new(uint256.Int).Set(v), nil
	}
	return uint256.NewInt(0), nil
}

func (s *receiptStub) UnderlyingBalance(ctx context.Context, assetID string) (*uint256.Int, error) {
	return new(uint256.Int).Set(s.cash), nil
}

func (s *receiptStub) TransferOnLiquidation(ctx context.Context, tx *db.DB, assetID, from, to string, amount, index *uint256.Int) error {
	s.transferred = new(uint256.Int).Set(amount)
	return nil
}

func (s *receiptStub) Burn(ctx context.Context, tx *db.DB, assetID, userID, receiver string, amount, index *uint256.Int) error {
	s.burned = new(uint256.Int).Set(amount)
	return nil
}

func (s *receiptStub) ReceiveUnderlying(ctx context.Context, tx *db.DB, assetID string, amount *uint256.Int) error {
	s.received = new(uint256.Int).Set(amount)
	return nil
}

func (s *receiptStub) ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

type stableStub struct {
	core.StableDebtLedger
	debt   *uint256.Int
	burned *uint256.Int
}

func (s *stableStub) BalanceOf(ctx context.Context, assetID, userID string, now time.Time) (*uint256.Int, error) {
	return new(uint256.Int).Set(s.debt), nil
}

func (s *stableStub) Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount *uint256.Int, now time.Time) error {
	s.burned = new(uint256.Int).Set(amount)
	return nil
}

func (s *stableStub) GetSupplyData(ctx context.Context, assetID string, now time.Time) (*core.StableDebtSupply, error) {
	return &core.StableDebtSupply{
		Principal: uint256.NewInt(0),
		Total:     new(uint256.Int).Set(s.debt),
		AvgRate:   uint256.NewInt(0),
	}, nil
}

type variableStub struct {
	core.VariableDebtLedger
	scaled *uint256.Int
	burned *uint256.Int
}

func (s *variableStub) ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	return new(uint256.Int).Set(s.scaled), nil
}

func (s *variableStub) ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error) {
	return new(uint256.Int).Set(s.scaled), nil
}

func (s *variableStub) Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) error {
	s.burned = new(uint256.Int).Set(amount)
	return nil
}

type reserveSrvStub struct {
	core.ReserveService
}

func (s *reserveSrvStub) UpdateState(ctx context.Context, tx *db.DB, reserve *core.Reserve, now time.Time) error {
	reserve.LastUpdateTimestamp = now.Unix()
	return nil
}

func (s *reserveSrvStub) UpdateInterestRates(ctx context.Context, tx *db.DB, reserve *core.Reserve, liquidityAdded, liquidityTaken *uint256.Int) error {
	return nil
}

type accountStub struct {
	core.AccountService
	healthFactor *uint256.Int
}

func (s *accountStub) CalculateAccountData(ctx context.Context, userID string, now time.Time) (*core.AccountData, error) {
	return &core.AccountData{
		TotalCollateral: uint256.NewInt(0),
		TotalDebt:       uint256.NewInt(0),
		HealthFactor:    new(uint256.Int).Set(s.healthFactor),
	}, nil
}

type validatorStub struct {
	core.ValidationService
}

func (s *validatorStub) ValidateLiquidation(ctx context.Context, collateralReserve, debtReserve *core.Reserve, config *core.UserConfig, healthFactor, totalDebt *uint256.Int) core.LiquidationCode {
	if healthFactor.Cmp(core.HealthFactorLiquidationThreshold) >= 0 {
		return core.LiquidationHealthFactorAboveThreshold
	}
	return core.LiquidationNoError
}

type oracleStub struct {
	prices map[string]*uint256.Int
}

func (s *oracleStub) GetAssetPrice(ctx context.Context, assetID string) (*uint256.Int, error) {
	if p, ok := s.prices[assetID]; ok {
		return new(uint256.Int).Set(p), nil
	}
	return nil, core.ErrInvalidPrice
}

// units a human amount with 8 decimals
func units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(100000000))
}

func wadPrice(numerator, denominator uint64) *uint256.Int {
	v := new(uint256.Int).Mul(uint256.NewInt(numerator), raymath.Wad)
	return v.Div(v, uint256.NewInt(denominator))
}

type fixture struct {
	svc      core.LiquidationService
	reserves *reserveStoreStub
	configs  *userConfigStub
	receipt  *receiptStub
	stable   *stableStub
	variable *variableStub
	oracle   *oracleStub
}

// the canonical scenario: 1000 A collateral (LT 85%, bonus 105%),
// 700 B variable debt, price of A dropped to 0.8
func newFixture(userCollateral, variableDebt uint64) *fixture {
	collateral := &core.Reserve{
		AssetID:              "asset-a",
		ReserveID:            0,
		Active:               true,
		LTV:                  8000,
		LiquidationThreshold: 8500,
		LiquidationBonus:     10500,
		Decimals:             8,
		ReceiptTokenAssetID:  "r-a",
		StableDebtAssetID:    "s-a",
		VariableDebtAssetID:  "v-a",
	}
	collateral.SetLiquidityIndex(raymath.Ray)
	collateral.SetVariableBorrowIndex(raymath.Ray)

	debt := &core.Reserve{
		AssetID:             "asset-b",
		ReserveID:           1,
		Active:              true,
		BorrowingEnabled:    true,
		Decimals:            8,
		ReceiptTokenAssetID: "r-b",
		StableDebtAssetID:   "s-b",
		VariableDebtAssetID: "v-b",
	}
	debt.SetLiquidityIndex(raymath.Ray)
	debt.SetVariableBorrowIndex(raymath.Ray)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetBorrowing(1, true)

	f := &fixture{
		reserves: &reserveStoreStub{reserves: map[string]*core.Reserve{"asset-a": collateral, "asset-b": debt}},
		configs:  &userConfigStub{configs: map[string]*core.UserConfig{"u1": config}},
		receipt: &receiptStub{
			balances: map[string]*uint256.Int{"u1": units(userCollateral)},
			cash:     units(100000),
		},
		stable:   &stableStub{debt: uint256.NewInt(0)},
		variable: &variableStub{scaled: units(variableDebt)},
		oracle: &oracleStub{prices: map[string]*uint256.Int{
			"asset-a": wadPrice(8, 10),
			"asset-b": wadPrice(1, 1),
		}},
	}

	f.svc = New(
		f.reserves, f.configs, f.receipt, f.stable, f.variable,
		&reserveSrvStub{},
		&accountStub{healthFactor: ray("971428571428571429000000000")},
		&validatorStub{},
		f.oracle,
	)
	return f
}

func ray(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestLiquidateCloseFactor(t *testing.T) {
	f := newFixture(1000, 700)

	// requesting the full 700 only covers the close factor half
	res, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(700), false, time.Unix(0, 0))
	require.Nil(t, err)

	assert.Equal(t, units(350).Dec(), res.DebtCovered.Dec())

	// 350 * 1.0 * 1.05 / 0.8 = 459.375 units of A
	assert.Equal(t, "45937500000", res.CollateralSeized.Dec())
	assert.Equal(t, units(350).Dec(), f.variable.burned.Dec())
	assert.Equal(t, units(350).Dec(), f.receipt.received.Dec())

	// underlying paid out, receipt tokens untouched
	assert.Equal(t, "45937500000", f.receipt.burned.Dec())
	assert.Nil(t, f.receipt.transferred)
	assert.False(t, res.ReceivedReceipt)
}

func TestLiquidatePartialRequest(t *testing.T) {
	f := newFixture(1000, 700)

	res, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(100), false, time.Unix(0, 0))
	require.Nil(t, err)

	assert.Equal(t, units(100).Dec(), res.DebtCovered.Dec())
	// 100 * 1.05 / 0.8 = 131.25
	assert.Equal(t, "13125000000", res.CollateralSeized.Dec())

	// collateral flag stays, plenty remains
	config := f.configs.configs["u1"]
	assert.True(t, config.IsUsingAsCollateral(0))
}

func TestLiquidateCollateralBinds(t *testing.T) {
	// only 100 A of collateral: seizure caps at the balance and the
	// debt burned is reduced to match, never the reverse
	f := newFixture(100, 700)

	res, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(700), false, time.Unix(0, 0))
	require.Nil(t, err)

	assert.Equal(t, units(100).Dec(), res.CollateralSeized.Dec())

	// 100 * 0.8 / 1.05 = 76.19... of B
	assert.Equal(t, "7619047619", res.DebtCovered.Dec())

	// round tripping the reduced debt can never seize more than the
	// balance that bound it
	forward := new(uint256.Int).Mul(res.DebtCovered, uint256.NewInt(10500))
	forward.Div(forward, uint256.NewInt(10000))
	forward.Mul(forward, uint256.NewInt(10))
	forward.Div(forward, uint256.NewInt(8))
	assert.True(t, forward.Cmp(units(100)) <= 0)

	// the whole position is gone, flag cleared
	config := f.configs.configs["u1"]
	assert.False(t, config.IsUsingAsCollateral(0))
}

// versionedReserveStoreStub loads a fresh copy per Find and guards
// Update with the version column, the way the sql store does.
type versionedReserveStoreStub struct {
	core.ReserveStore
	rows    map[string]*core.Reserve
	updates int
}

func (s *versionedReserveStoreStub) Find(ctx context.Context, assetID string) (*core.Reserve, error) {
	row, ok := s.rows[assetID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (s *versionedReserveStoreStub) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	version := reserve.Version
	reserve.Version++

	row := s.rows[reserve.AssetID]
	if row == nil || row.Version != version {
		return db.ErrOptimisticLock
	}

	copied := *reserve
	s.rows[reserve.AssetID] = &copied
	s.updates++
	return nil
}

func TestLiquidateSameAssetDebtAndCollateral(t *testing.T) {
	// borrowing the collateral asset itself is valid for variable
	// debt, and both the burn and seize phases then write the same
	// reserve row
	reserve := &core.Reserve{
		AssetID:              "asset-a",
		ReserveID:            0,
		Active:               true,
		BorrowingEnabled:     true,
		LTV:                  8000,
		LiquidationThreshold: 8500,
		LiquidationBonus:     10500,
		Decimals:             8,
		ReceiptTokenAssetID:  "r-a",
		StableDebtAssetID:    "s-a",
		VariableDebtAssetID:  "v-a",
	}
	reserve.SetLiquidityIndex(raymath.Ray)
	reserve.SetVariableBorrowIndex(raymath.Ray)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetBorrowing(0, true)

	reserves := &versionedReserveStoreStub{rows: map[string]*core.Reserve{"asset-a": reserve}}
	receipt := &receiptStub{
		balances: map[string]*uint256.Int{"u1": units(1000)},
		cash:     units(100000),
	}
	variable := &variableStub{scaled: units(700)}

	svc := New(
		reserves,
		&userConfigStub{configs: map[string]*core.UserConfig{"u1": config}},
		receipt,
		&stableStub{debt: uint256.NewInt(0)},
		variable,
		&reserveSrvStub{},
		&accountStub{healthFactor: ray("971428571428571429000000000")},
		&validatorStub{},
		&oracleStub{prices: map[string]*uint256.Int{"asset-a": wadPrice(1, 1)}},
	)

	res, err := svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-a", "u1", units(700), false, time.Unix(0, 0))
	require.Nil(t, err)

	assert.Equal(t, units(350).Dec(), res.DebtCovered.Dec())
	// 350 * 1.05 = 367.5 units of the same asset
	assert.Equal(t, "36750000000", res.CollateralSeized.Dec())
	assert.Equal(t, units(350).Dec(), variable.burned.Dec())

	// both phases persisted their versioned writes
	assert.Equal(t, 2, reserves.updates)
	assert.Equal(t, int64(2), reserves.rows["asset-a"].Version)
}

func TestLiquidateSeizureNeverExceedsBalance(t *testing.T) {
	// sweep collateral balances and prices that exercise both rounding
	// directions of the capped backward pass: converting the reduced
	// debt forward again may never seize more than the balance
	cases := []struct {
		collateral uint64
		debt       uint64
		priceNum   uint64
		priceDen   uint64
	}{
		{100, 700, 8, 10},
		{137, 700, 8, 10},
		{99, 650, 7, 9},
		{1, 700, 1, 3},
		{333, 999, 13, 7},
		{250, 701, 3, 11},
	}

	for _, tc := range cases {
		f := newFixture(tc.collateral, tc.debt)
		f.oracle.prices["asset-a"] = wadPrice(tc.priceNum, tc.priceDen)

		res, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(tc.debt), false, time.Unix(0, 0))
		require.Nil(t, err, "collateral=%d price=%d/%d", tc.collateral, tc.priceNum, tc.priceDen)

		balance := units(tc.collateral)
		assert.True(t, res.CollateralSeized.Cmp(balance) <= 0,
			"seized %s exceeds balance %s", res.CollateralSeized.Dec(), balance.Dec())

		// forward conversion of the covered debt at the same price and
		// bonus stays within the balance that bound it
		debtValue, err := raymath.MulDiv(wadPrice(1, 1), res.DebtCovered, units(1))
		require.Nil(t, err)
		debtValue, err = raymath.PercentMul(debtValue, 10500)
		require.Nil(t, err)
		forward, err := raymath.MulDiv(debtValue, units(1), wadPrice(tc.priceNum, tc.priceDen))
		require.Nil(t, err)

		assert.True(t, forward.Cmp(balance) <= 0,
			"round trip %s exceeds balance %s", forward.Dec(), balance.Dec())
	}
}

func TestLiquidateReceiveReceiptToken(t *testing.T) {
	f := newFixture(1000, 700)

	res, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(350), true, time.Unix(0, 0))
	require.Nil(t, err)

	assert.True(t, res.ReceivedReceipt)
	assert.Equal(t, "45937500000", f.receipt.transferred.Dec())
	assert.Nil(t, f.receipt.burned)

	// first receipt tokens of the liquidator are flagged as collateral
	config := f.configs.configs["liq"]
	require.NotNil(t, config)
	assert.True(t, config.IsUsingAsCollateral(0))
}

func TestLiquidateInsufficientCash(t *testing.T) {
	f := newFixture(1000, 700)
	f.receipt.cash = units(100)

	_, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(700), false, time.Unix(0, 0))
	assert.Equal(t, core.ErrInsufficientLiquidity, err)
}

func TestLiquidateSolventUser(t *testing.T) {
	f := newFixture(1000, 700)
	f.svc = New(
		f.reserves, f.configs, f.receipt, f.stable, f.variable,
		&reserveSrvStub{},
		&accountStub{healthFactor: new(uint256.Int).Set(raymath.Ray)},
		&validatorStub{},
		f.oracle,
	)

	_, err := f.svc.Liquidate(context.Background(), nil, "liq", "asset-a", "asset-b", "u1", units(350), false, time.Unix(0, 0))
	assert.Equal(t, core.ErrLiquidationHealthFactorAboveThreshold, err)
}
