package core

import (
	"context"

	"github.com/holiman/uint256"
)

// PriceOracle quotes every listed asset in a common numeraire, wad
// scaled. A missing price is a fatal precondition failure for any
// solvency check.
type PriceOracle interface {
	GetAssetPrice(ctx context.Context, assetID string) (*uint256.Int, error)
}

// LendingRateOracle supplies the market base rate stable borrows are
// priced from.
type LendingRateOracle interface {
	GetMarketBorrowRate(ctx context.Context, assetID string) (*uint256.Int, error)
}
