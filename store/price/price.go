package price

import (
	"context"

	"levee/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type priceStore struct {
	db *db.DB
}

// New new price store
func New(db *db.DB) core.PriceStore {
	return &priceStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Price{})
		if err := tx.AutoMigrate(core.Price{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Save upserts the latest quote of an asset. Quotes whose timestamp
// is not newer than the stored one are dropped.
func (s *priceStore) Save(ctx context.Context, tx *db.DB, price *core.Price) error {
	var existing core.Price
	err := tx.Update().Where("asset_id = ?", price.AssetID).First(&existing).Error
	if gorm.IsRecordNotFoundError(err) {
		return tx.Update().Create(price).Error
	}
	if err != nil {
		return err
	}

	if price.Timestamp <= existing.Timestamp {
		return nil
	}

	price.ID = existing.ID
	price.Version = existing.Version + 1

	updated := tx.Update().Model(core.Price{}).
		Where("asset_id = ? and version = ?", price.AssetID, existing.Version).
		Update(price)
	if updated.Error != nil {
		return updated.Error
	}
	if updated.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}
	return nil
}

func (s *priceStore) Find(ctx context.Context, assetID string) (*core.Price, error) {
	var price core.Price
	if err := s.db.View().Where("asset_id = ?", assetID).First(&price).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}

func (s *priceStore) All(ctx context.Context) ([]*core.Price, error) {
	var prices []*core.Price
	if err := s.db.View().Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}
