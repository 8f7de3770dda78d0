package account

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

type mockReserveStore struct {
	reserves []*core.Reserve
}

func (m *mockReserveStore) Create(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	m.reserves = append(m.reserves, reserve)
	return nil
}

func (m *mockReserveStore) Find(ctx context.Context, assetID string) (*core.Reserve, error) {
	for _, r := range m.reserves {
		if r.AssetID == assetID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockReserveStore) FindByID(ctx context.Context, reserveID int64) (*core.Reserve, error) {
	for _, r := range m.reserves {
		if r.ReserveID == reserveID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockReserveStore) All(ctx context.Context) ([]*core.Reserve, error) {
	return m.reserves, nil
}

func (m *mockReserveStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.reserves)), nil
}

func (m *mockReserveStore) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	return nil
}

type mockUserConfigStore struct {
	configs map[string]*core.UserConfig
}

func (m *mockUserConfigStore) FindOrCreate(ctx context.Context, tx *db.DB, userID string) (*core.UserConfig, error) {
	if c, ok := m.configs[userID]; ok {
		return c, nil
	}
	c := &core.UserConfig{UserID: userID}
	m.configs[userID] = c
	return c, nil
}

func (m *mockUserConfigStore) Find(ctx context.Context, userID string) (*core.UserConfig, error) {
	return m.configs[userID], nil
}

func (m *mockUserConfigStore) Update(ctx context.Context, tx *db.DB, config *core.UserConfig) error {
	m.configs[config.UserID] = config
	return nil
}

func (m *mockUserConfigStore) ListBorrowers(ctx context.Context) ([]string, error) {
	return nil, nil
}

type mockReceiptLedger struct {
	// assetID -> userID -> scaled balance
	balances map[string]map[string]*uint256.Int
}

func (m *mockReceiptLedger) Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) (bool, error) {
	return false, nil
}

func (m *mockReceiptLedger) Burn(ctx context.Context, tx *db.DB, assetID, userID, receiver string, amount, index *uint256.Int) error {
	return nil
}

func (m *mockReceiptLedger) MintToTreasury(ctx context.Context, tx *db.DB, assetID string, amount, index *uint256.Int) error {
	return nil
}

func (m *mockReceiptLedger) TransferOnLiquidation(ctx context.Context, tx *db.DB, assetID, from, to string, amount, index *uint256.Int) error {
	return nil
}

func (m *mockReceiptLedger) TransferUnderlyingTo(ctx context.Context, tx *db.DB, assetID, target string, amount *uint256.Int) error {
	return nil
}

func (m *mockReceiptLedger) ReceiveUnderlying(ctx context.Context, tx *db.DB, assetID string, amount *uint256.Int) error {
	return nil
}

func (m *mockReceiptLedger) HandleRepayment(ctx context.Context, tx *db.DB, assetID, payer string, amount *uint256.Int) error {
	return nil
}

func (m *mockReceiptLedger) ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	if users, ok := m.balances[assetID]; ok {
		if v, ok := users[userID]; ok {
			return new(uint256.Int).Set(v), nil
		}
	}
	return uint256.NewInt(0), nil
}

func (m *mockReceiptLedger) ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

func (m *mockReceiptLedger) UnderlyingBalance(ctx context.Context, assetID string) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

type mockStableLedger struct{}

func (m *mockStableLedger) Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, rate *uint256.Int, now time.Time) (bool, error) {
	return false, nil
}

func (m *mockStableLedger) Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount *uint256.Int, now time.Time) error {
	return nil
}

func (m *mockStableLedger) BalanceOf(ctx context.Context, assetID, userID string, now time.Time) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

func (m *mockStableLedger) PrincipalBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

func (m *mockStableLedger) GetUserStableRate(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

func (m *mockStableLedger) GetSupplyData(ctx context.Context, assetID string, now time.Time) (*core.StableDebtSupply, error) {
	return &core.StableDebtSupply{
		Principal: uint256.NewInt(0),
		Total:     uint256.NewInt(0),
		AvgRate:   uint256.NewInt(0),
	}, nil
}

type mockVariableLedger struct {
	balances map[string]map[string]*uint256.Int
}

func (m *mockVariableLedger) Mint(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) (bool, error) {
	return false, nil
}

func (m *mockVariableLedger) Burn(ctx context.Context, tx *db.DB, assetID, userID string, amount, index *uint256.Int) error {
	return nil
}

func (m *mockVariableLedger) ScaledBalanceOf(ctx context.Context, assetID, userID string) (*uint256.Int, error) {
	if users, ok := m.balances[assetID]; ok {
		if v, ok := users[userID]; ok {
			return new(uint256.Int).Set(v), nil
		}
	}
	return uint256.NewInt(0), nil
}

func (m *mockVariableLedger) ScaledTotalSupply(ctx context.Context, assetID string) (*uint256.Int, error) {
	return uint256.NewInt(0), nil
}

type mockOracle struct {
	prices map[string]*uint256.Int
}

func (m *mockOracle) GetAssetPrice(ctx context.Context, assetID string) (*uint256.Int, error) {
	if p, ok := m.prices[assetID]; ok {
		return new(uint256.Int).Set(p), nil
	}
	return nil, core.ErrInvalidPrice
}

type fixture struct {
	svc      core.AccountService
	reserves *mockReserveStore
	configs  *mockUserConfigStore
	receipts *mockReceiptLedger
	debts    *mockVariableLedger
	oracle   *mockOracle
}

func wad(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), raymath.Wad)
}

// units a human amount with 8 decimals
func units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(100000000))
}

func newFixture() *fixture {
	f := &fixture{
		reserves: &mockReserveStore{},
		configs:  &mockUserConfigStore{configs: map[string]*core.UserConfig{}},
		receipts: &mockReceiptLedger{balances: map[string]map[string]*uint256.Int{}},
		debts:    &mockVariableLedger{balances: map[string]map[string]*uint256.Int{}},
		oracle:   &mockOracle{prices: map[string]*uint256.Int{}},
	}
	f.svc = New(f.reserves, f.configs, f.receipts, &mockStableLedger{}, f.debts, f.oracle)
	return f
}

func (f *fixture) listReserve(assetID string, id int64, ltv, threshold int64) *core.Reserve {
	r := &core.Reserve{
		AssetID:              assetID,
		ReserveID:            id,
		LTV:                  ltv,
		LiquidationThreshold: threshold,
		LiquidationBonus:     10500,
		Decimals:             8,
		ReceiptTokenAssetID:  "r-" + assetID,
		StableDebtAssetID:    "s-" + assetID,
		VariableDebtAssetID:  "v-" + assetID,
	}
	r.SetLiquidityIndex(raymath.Ray)
	r.SetVariableBorrowIndex(raymath.Ray)
	f.reserves.reserves = append(f.reserves.reserves, r)
	return r
}

func (f *fixture) deposit(assetID, userID string, amount *uint256.Int) {
	if f.receipts.balances["r-"+assetID] == nil {
		f.receipts.balances["r-"+assetID] = map[string]*uint256.Int{}
	}
	f.receipts.balances["r-"+assetID][userID] = amount
}

func (f *fixture) borrow(assetID, userID string, amount *uint256.Int) {
	if f.debts.balances["v-"+assetID] == nil {
		f.debts.balances["v-"+assetID] = map[string]*uint256.Int{}
	}
	f.debts.balances["v-"+assetID][userID] = amount
}

func TestCalculateAccountDataNoPosition(t *testing.T) {
	f := newFixture()
	f.configs.configs["u1"] = &core.UserConfig{UserID: "u1"}

	data, err := f.svc.CalculateAccountData(context.Background(), "u1", time.Now())
	require.Nil(t, err)

	assert.True(t, data.TotalCollateral.IsZero())
	assert.True(t, data.TotalDebt.IsZero())
	assert.Equal(t, core.MaxHealthFactor.Dec(), data.HealthFactor.Dec())
	assert.True(t, data.IsSolvent())
}

func TestCalculateAccountDataUnderwater(t *testing.T) {
	f := newFixture()
	f.listReserve("asset-a", 0, 8000, 8500)
	f.listReserve("asset-b", 1, 7500, 8000)

	// 1000 A as collateral, 700 B borrowed, then A falls to 0.8
	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetBorrowing(1, true)
	f.configs.configs["u1"] = config

	f.deposit("asset-a", "u1", units(1000))
	f.borrow("asset-b", "u1", units(700))
	f.oracle.prices["asset-a"] = new(uint256.Int).Div(wad(8), uint256.NewInt(10))
	f.oracle.prices["asset-b"] = wad(1)

	data, err := f.svc.CalculateAccountData(context.Background(), "u1", time.Now())
	require.Nil(t, err)

	assert.Equal(t, wad(800).Dec(), data.TotalCollateral.Dec())
	assert.Equal(t, wad(700).Dec(), data.TotalDebt.Dec())
	assert.Equal(t, uint64(8000), data.AvgLTV)
	assert.Equal(t, uint64(8500), data.AvgLiquidationThreshold)

	// 800 * 0.85 / 700 = 0.9714..., underwater
	assert.Equal(t, "971428571428571429000000000", data.HealthFactor.Dec())
	assert.False(t, data.IsSolvent())
}

func TestCalculateAccountDataWeightedAverages(t *testing.T) {
	f := newFixture()
	f.listReserve("asset-a", 0, 8000, 8500)
	f.listReserve("asset-b", 1, 6000, 7000)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetUsingAsCollateral(1, true)
	f.configs.configs["u1"] = config

	// 300 of A and 100 of B at price 1: ltv (300*8000+100*6000)/400
	f.deposit("asset-a", "u1", units(300))
	f.deposit("asset-b", "u1", units(100))
	f.oracle.prices["asset-a"] = wad(1)
	f.oracle.prices["asset-b"] = wad(1)

	data, err := f.svc.CalculateAccountData(context.Background(), "u1", time.Now())
	require.Nil(t, err)

	assert.Equal(t, wad(400).Dec(), data.TotalCollateral.Dec())
	assert.Equal(t, uint64(7500), data.AvgLTV)
	assert.Equal(t, uint64(8125), data.AvgLiquidationThreshold)
	assert.True(t, data.IsSolvent())
}

func TestHealthFactorBoundary(t *testing.T) {
	f := newFixture()
	f.listReserve("asset-a", 0, 8000, 8500)
	f.listReserve("asset-b", 1, 7500, 8000)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetBorrowing(1, true)
	f.configs.configs["u1"] = config

	// collateral * threshold exactly equals debt: hf = 1, still solvent
	f.deposit("asset-a", "u1", units(1000))
	f.borrow("asset-b", "u1", units(850))
	f.oracle.prices["asset-a"] = wad(1)
	f.oracle.prices["asset-b"] = wad(1)

	data, err := f.svc.CalculateAccountData(context.Background(), "u1", time.Now())
	require.Nil(t, err)

	assert.Equal(t, raymath.Ray.Dec(), data.HealthFactor.Dec())
	assert.True(t, data.IsSolvent())
}

func TestBalanceDecreaseAllowed(t *testing.T) {
	f := newFixture()
	f.listReserve("asset-a", 0, 8000, 8500)
	f.listReserve("asset-b", 1, 7500, 8000)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetBorrowing(1, true)
	f.configs.configs["u1"] = config

	f.deposit("asset-a", "u1", units(1000))
	f.borrow("asset-b", "u1", units(500))
	f.oracle.prices["asset-a"] = wad(1)
	f.oracle.prices["asset-b"] = wad(1)

	ctx := context.Background()
	now := time.Now()

	// removing 300 keeps 700*0.85 = 595 >= 500
	ok, err := f.svc.BalanceDecreaseAllowed(ctx, "asset-a", "u1", units(300), now)
	require.Nil(t, err)
	assert.True(t, ok)

	// removing 500 leaves 500*0.85 = 425 < 500
	ok, err = f.svc.BalanceDecreaseAllowed(ctx, "asset-a", "u1", units(500), now)
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestBalanceDecreaseAllowedWithoutDebt(t *testing.T) {
	f := newFixture()
	f.listReserve("asset-a", 0, 8000, 8500)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	f.configs.configs["u1"] = config
	f.deposit("asset-a", "u1", units(1000))
	f.oracle.prices["asset-a"] = wad(1)

	ok, err := f.svc.BalanceDecreaseAllowed(context.Background(), "asset-a", "u1", units(1000), time.Now())
	require.Nil(t, err)
	assert.True(t, ok)
}

func TestCollateralNeededFor(t *testing.T) {
	f := newFixture()
	f.listReserve("asset-a", 0, 8000, 8500)
	f.listReserve("asset-b", 1, 7500, 8000)

	config := &core.UserConfig{UserID: "u1"}
	config.SetUsingAsCollateral(0, true)
	config.SetBorrowing(1, true)
	f.configs.configs["u1"] = config

	f.deposit("asset-a", "u1", units(1000))
	f.borrow("asset-b", "u1", units(100))
	f.oracle.prices["asset-a"] = wad(1)
	f.oracle.prices["asset-b"] = wad(1)

	// (100 existing + 300 new) / 0.8 = 500 of collateral value
	needed, err := f.svc.CollateralNeededFor(context.Background(), "u1", "asset-b", units(300), time.Now())
	require.Nil(t, err)
	assert.Equal(t, wad(500).Dec(), needed.Dec())
}
