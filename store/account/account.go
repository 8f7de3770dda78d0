package account

import (
	"context"

	"levee/core"
	"levee/pkg/number"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
)

type accountStore struct {
	db *db.DB
}

// New new account snapshot store
func New(db *db.DB) core.AccountStore {
	return &accountStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.AccountSnapshot{})
		if err := tx.AutoMigrate(core.AccountSnapshot{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *accountStore) SaveSnapshot(ctx context.Context, tx *db.DB, snapshot *core.AccountSnapshot) error {
	var existing core.AccountSnapshot
	err := tx.Update().Where("user_id = ?", snapshot.UserID).First(&existing).Error
	if store.IsErrNotFound(err) {
		return tx.Update().Create(snapshot).Error
	}
	if err != nil {
		return err
	}

	snapshot.ID = existing.ID
	return tx.Update().Model(core.AccountSnapshot{}).
		Where("user_id = ?", snapshot.UserID).
		Updates(map[string]interface{}{
			"health_factor": snapshot.HealthFactor,
			"total_debt":    snapshot.TotalDebt,
			"collaterals":   snapshot.Collaterals,
			"scanned_at":    snapshot.ScannedAt,
		}).Error
}

func (s *accountStore) ListUnhealthy(ctx context.Context) ([]*core.AccountSnapshot, error) {
	threshold := number.ToDecimal(core.HealthFactorLiquidationThreshold)

	var snapshots []*core.AccountSnapshot
	if err := s.db.View().
		Where("health_factor < ? and total_debt > 0", threshold).
		Order("health_factor").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *accountStore) DeleteSnapshot(ctx context.Context, tx *db.DB, userID string) error {
	return tx.Update().Where("user_id = ?", userID).Delete(core.AccountSnapshot{}).Error
}
