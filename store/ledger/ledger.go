// Package ledger persists the three token ledgers the pool collaborates
// with: the interest bearing receipt token, variable rate debt and
// stable rate debt. Receipt and variable balances are stored scaled,
// stable balances keep the principal with the position's fixed rate.
package ledger

import (
	"time"

	"levee/pkg/number"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Balance one user's position in a ledger token.
type Balance struct {
	ID      uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID string          `sql:"size:36;unique_index:idx_ledger_balances_asset_user" json:"asset_id"`
	UserID  string          `sql:"size:36;unique_index:idx_ledger_balances_asset_user" json:"user_id"`
	Balance decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"balance"`
	// Rate the position's fixed borrow rate, stable debt only
	Rate        decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"rate"`
	LastUpdated int64           `sql:"default:0" json:"last_updated"`
	Version     int64           `sql:"default:0" json:"version"`
	CreatedAt   time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Supply per token aggregates. Cash only carries meaning for receipt
// tokens, AvgRate and LastUpdated only for stable debt.
type Supply struct {
	ID          uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID     string          `sql:"size:36;unique_index:idx_ledger_supplies_asset" json:"asset_id"`
	Total       decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"total"`
	AvgRate     decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"avg_rate"`
	Cash        decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"cash"`
	LastUpdated int64           `sql:"default:0" json:"last_updated"`
	Version     int64           `sql:"default:0" json:"version"`
	CreatedAt   time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update()
		if err := tx.AutoMigrate(Balance{}).Error; err != nil {
			return err
		}
		if err := tx.AutoMigrate(Supply{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func units(d decimal.Decimal) *uint256.Int {
	v, err := number.FromDecimal(d)
	if err != nil {
		return uint256.NewInt(0)
	}
	return v
}

func loadBalance(tx *db.DB, assetID, userID string) (*Balance, error) {
	balance := Balance{AssetID: assetID, UserID: userID}
	if err := tx.Update().Where("asset_id = ? and user_id = ?", assetID, userID).FirstOrCreate(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func viewBalance(d *db.DB, assetID, userID string) (*Balance, error) {
	var balance Balance
	if err := d.View().Where("asset_id = ? and user_id = ?", assetID, userID).First(&balance).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &Balance{AssetID: assetID, UserID: userID}, nil
		}
		return nil, err
	}
	return &balance, nil
}

func saveBalance(tx *db.DB, balance *Balance) error {
	version := balance.Version
	balance.Version++

	updated := tx.Update().Model(Balance{}).
		Where("id = ? and version = ?", balance.ID, version).
		Update(map[string]interface{}{
			"balance":      balance.Balance,
			"rate":         balance.Rate,
			"last_updated": balance.LastUpdated,
			"version":      balance.Version,
		})
	if updated.Error != nil {
		return updated.Error
	}
	if updated.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}
	return nil
}

func loadSupply(tx *db.DB, assetID string) (*Supply, error) {
	supply := Supply{AssetID: assetID}
	if err := tx.Update().Where("asset_id = ?", assetID).FirstOrCreate(&supply).Error; err != nil {
		return nil, err
	}
	return &supply, nil
}

func viewSupply(d *db.DB, assetID string) (*Supply, error) {
	var supply Supply
	if err := d.View().Where("asset_id = ?", assetID).First(&supply).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &Supply{AssetID: assetID}, nil
		}
		return nil, err
	}
	return &supply, nil
}

func saveSupply(tx *db.DB, supply *Supply) error {
	version := supply.Version
	supply.Version++

	updated := tx.Update().Model(Supply{}).
		Where("id = ? and version = ?", supply.ID, version).
		Update(map[string]interface{}{
			"total":        supply.Total,
			"avg_rate":     supply.AvgRate,
			"cash":         supply.Cash,
			"last_updated": supply.LastUpdated,
			"version":      supply.Version,
		})
	if updated.Error != nil {
		return updated.Error
	}
	if updated.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}
	return nil
}
