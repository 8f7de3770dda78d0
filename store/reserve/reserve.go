package reserve

import (
	"context"

	"levee/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
)

type reserveStore struct {
	db *db.DB
}

// New new reserve store
func New(db *db.DB) core.ReserveStore {
	return &reserveStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Reserve{})
		if err := tx.AutoMigrate(core.Reserve{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *reserveStore) Create(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	return tx.Update().Where("asset_id = ?", reserve.AssetID).FirstOrCreate(reserve).Error
}

func (s *reserveStore) Find(ctx context.Context, assetID string) (*core.Reserve, error) {
	var reserve core.Reserve
	if err := s.db.View().Where("asset_id = ?", assetID).First(&reserve).Error; err != nil {
		if store.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &reserve, nil
}

func (s *reserveStore) FindByID(ctx context.Context, reserveID int64) (*core.Reserve, error) {
	var reserve core.Reserve
	if err := s.db.View().Where("reserve_id = ?", reserveID).First(&reserve).Error; err != nil {
		if store.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &reserve, nil
}

func (s *reserveStore) All(ctx context.Context) ([]*core.Reserve, error) {
	var reserves []*core.Reserve
	if err := s.db.View().Order("reserve_id").Find(&reserves).Error; err != nil {
		return nil, err
	}
	return reserves, nil
}

func (s *reserveStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.View().Model(core.Reserve{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *reserveStore) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	version := reserve.Version
	reserve.Version++

	updated := tx.Update().Model(core.Reserve{}).
		Where("asset_id = ? and version = ?", reserve.AssetID, version).
		Update(reserve)
	if updated.Error != nil {
		return updated.Error
	}
	if updated.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}
	return nil
}
