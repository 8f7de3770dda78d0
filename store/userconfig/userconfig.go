package userconfig

import (
	"context"

	"levee/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
)

type userConfigStore struct {
	db *db.DB
}

// New new user config store
func New(db *db.DB) core.UserConfigStore {
	return &userConfigStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.UserConfig{})
		if err := tx.AutoMigrate(core.UserConfig{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *userConfigStore) FindOrCreate(ctx context.Context, tx *db.DB, userID string) (*core.UserConfig, error) {
	config := core.UserConfig{UserID: userID}
	if err := tx.Update().Where("user_id = ?", userID).FirstOrCreate(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (s *userConfigStore) Find(ctx context.Context, userID string) (*core.UserConfig, error) {
	var config core.UserConfig
	if err := s.db.View().Where("user_id = ?", userID).First(&config).Error; err != nil {
		if store.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (s *userConfigStore) Update(ctx context.Context, tx *db.DB, config *core.UserConfig) error {
	version := config.Version
	config.Version++

	updated := tx.Update().Model(core.UserConfig{}).
		Where("user_id = ? and version = ?", config.UserID, version).
		Update(config)
	if updated.Error != nil {
		return updated.Error
	}
	if updated.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}
	return nil
}

// ListBorrowers loads every non empty bitset and filters the borrow
// bits in memory. The bitmask column is opaque to sql.
func (s *userConfigStore) ListBorrowers(ctx context.Context) ([]string, error) {
	var configs []*core.UserConfig
	if err := s.db.View().Where("bitmask > 0").Find(&configs).Error; err != nil {
		return nil, err
	}

	var users []string
	for _, config := range configs {
		if config.IsBorrowingAny() {
			users = append(users, config.UserID)
		}
	}
	return users, nil
}
