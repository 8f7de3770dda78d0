package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// HealthFactorLiquidationThreshold health factor 1.0 in ray; below it
// a position is liquidatable, at or above it is not.
var HealthFactorLiquidationThreshold = func() *uint256.Int {
	v, _ := uint256.FromDecimal("1000000000000000000000000000")
	return v
}()

// MaxHealthFactor the sentinel for "no debt", standing in for +inf.
var MaxHealthFactor = new(uint256.Int).Not(uint256.NewInt(0))

// AccountData a user's aggregated position across all reserves.
// Values are wad amounts in oracle numeraire, percentages are basis
// points, the health factor is ray.
type AccountData struct {
	TotalCollateral         *uint256.Int
	TotalDebt               *uint256.Int
	AvgLTV                  uint64
	AvgLiquidationThreshold uint64
	HealthFactor            *uint256.Int
}

// IsSolvent reports health factor >= 1.0.
func (d *AccountData) IsSolvent() bool {
	return d.HealthFactor.Cmp(HealthFactorLiquidationThreshold) >= 0
}

// AccountService cross reserve solvency aggregation.
type AccountService interface {
	// CalculateAccountData walks every reserve the user has flagged
	CalculateAccountData(ctx context.Context, userID string, now time.Time) (*AccountData, error)
	// BalanceDecreaseAllowed simulates removing collateral and
	// re-checks the health factor against 1.0
	BalanceDecreaseAllowed(ctx context.Context, assetID, userID string, amount *uint256.Int, now time.Time) (bool, error)
	// CollateralNeededFor the collateral value required to carry the
	// current debt plus a prospective borrow, discounted by avg LTV
	CollateralNeededFor(ctx context.Context, userID, assetID string, amount *uint256.Int, now time.Time) (*uint256.Int, error)
}

// AccountSnapshot the sentinel's persisted view of an unhealthy
// account, refreshed on every scan. Collaterals lists the assets a
// liquidator could seize.
type AccountSnapshot struct {
	ID           uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID       string          `sql:"size:36;unique_index:idx_account_snapshots_user" json:"user_id"`
	HealthFactor decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"health_factor"`
	TotalDebt    decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"total_debt"`
	Collaterals  pq.StringArray  `sql:"type:varchar(1024)" json:"collaterals"`
	ScannedAt    time.Time       `json:"scanned_at"`
}

// AccountStore persistence for sentinel scans.
type AccountStore interface {
	SaveSnapshot(ctx context.Context, tx *db.DB, snapshot *AccountSnapshot) error
	ListUnhealthy(ctx context.Context) ([]*AccountSnapshot, error)
	DeleteSnapshot(ctx context.Context, tx *db.DB, userID string) error
}
