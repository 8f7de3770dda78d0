package oracle

import (
	"context"
	"time"

	"levee/core"
	"levee/pkg/number"

	"github.com/bluele/gcache"
	"github.com/holiman/uint256"
	"golang.org/x/sync/singleflight"
)

type priceOracle struct {
	prices core.PriceStore
	cache  gcache.Cache
	sf     singleflight.Group
	ttl    time.Duration
}

// New new price oracle over the verified price store. Quotes are
// served from an expiring cache; concurrent misses collapse into one
// store read.
func New(prices core.PriceStore, cacheTTL time.Duration) core.PriceOracle {
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Second
	}

	return &priceOracle{
		prices: prices,
		cache:  gcache.New(256).LRU().Build(),
		ttl:    cacheTTL,
	}
}

func (s *priceOracle) GetAssetPrice(ctx context.Context, assetID string) (*uint256.Int, error) {
	if v, err := s.cache.Get(assetID); err == nil {
		if price, ok := v.(*uint256.Int); ok {
			return new(uint256.Int).Set(price), nil
		}
	}

	v, err, _ := s.sf.Do(assetID, func() (interface{}, error) {
		price, err := s.prices.Find(ctx, assetID)
		if err != nil {
			return nil, err
		}
		if price == nil || !price.Price.IsPositive() {
			return nil, core.ErrInvalidPrice
		}

		wad, err := number.DecimalToWad(price.Price)
		if err != nil {
			return nil, err
		}

		_ = s.cache.SetWithExpire(assetID, wad, s.ttl)
		return wad, nil
	})
	if err != nil {
		return nil, err
	}

	return new(uint256.Int).Set(v.(*uint256.Int)), nil
}

type lendingRateOracle struct {
	rates  map[string]*uint256.Int
	prices core.PriceStore
}

// NewLendingRateOracle new market borrow rate oracle. Configured per
// asset rates win; otherwise the rate shipped with the price feed is
// used, and a missing rate is simply zero.
func NewLendingRateOracle(cfg core.RateOracleConfig, prices core.PriceStore) (core.LendingRateOracle, error) {
	rates := make(map[string]*uint256.Int, len(cfg.Rates))
	for assetID, rate := range cfg.Rates {
		v, err := number.DecimalToRay(rate)
		if err != nil {
			return nil, err
		}
		rates[assetID] = v
	}

	return &lendingRateOracle{rates: rates, prices: prices}, nil
}

func (s *lendingRateOracle) GetMarketBorrowRate(ctx context.Context, assetID string) (*uint256.Int, error) {
	if rate, ok := s.rates[assetID]; ok {
		return new(uint256.Int).Set(rate), nil
	}

	price, err := s.prices.Find(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if price == nil || !price.MarketRate.IsPositive() {
		return uint256.NewInt(0), nil
	}

	return number.DecimalToRay(price.MarketRate)
}
