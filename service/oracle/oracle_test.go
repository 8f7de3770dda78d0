package oracle

import (
	"context"
	"testing"
	"time"

	"levee/core"
	"levee/pkg/number"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceStoreStub struct {
	prices map[string]*core.Price
	reads  int
}

func (s *priceStoreStub) Save(ctx context.Context, tx *db.DB, price *core.Price) error {
	s.prices[price.AssetID] = price
	return nil
}

func (s *priceStoreStub) Find(ctx context.Context, assetID string) (*core.Price, error) {
	s.reads++
	return s.prices[assetID], nil
}

func (s *priceStoreStub) All(ctx context.Context) ([]*core.Price, error) {
	return nil, nil
}

func TestGetAssetPrice(t *testing.T) {
	store := &priceStoreStub{prices: map[string]*core.Price{
		"asset-a": {AssetID: "asset-a", Price: number.Decimal("0.8")},
	}}
	oracle := New(store, time.Minute)
	ctx := context.Background()

	price, err := oracle.GetAssetPrice(ctx, "asset-a")
	require.Nil(t, err)
	assert.Equal(t, "800000000000000000", price.Dec())

	// second read served from cache
	_, err = oracle.GetAssetPrice(ctx, "asset-a")
	require.Nil(t, err)
	assert.Equal(t, 1, store.reads)

	_, err = oracle.GetAssetPrice(ctx, "asset-x")
	assert.Equal(t, core.ErrInvalidPrice, err)
}

func TestGetMarketBorrowRate(t *testing.T) {
	store := &priceStoreStub{prices: map[string]*core.Price{
		"asset-a": {AssetID: "asset-a", Price: number.Decimal("1"), MarketRate: number.Decimal("0.03")},
	}}

	oracle, err := NewLendingRateOracle(core.RateOracleConfig{
		Rates: map[string]decimal.Decimal{"asset-b": number.Decimal("0.05")},
	}, store)
	require.Nil(t, err)

	ctx := context.Background()

	// configured rate wins
	rate, err := oracle.GetMarketBorrowRate(ctx, "asset-b")
	require.Nil(t, err)
	assert.Equal(t, "50000000000000000000000000", rate.Dec())

	// feed rate as fallback
	rate, err = oracle.GetMarketBorrowRate(ctx, "asset-a")
	require.Nil(t, err)
	assert.Equal(t, "30000000000000000000000000", rate.Dec())

	// unknown assets default to zero
	rate, err = oracle.GetMarketBorrowRate(ctx, "asset-x")
	require.Nil(t, err)
	assert.True(t, rate.IsZero())
}
