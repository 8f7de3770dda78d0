package action

import (
	"context"

	"levee/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
)

type actionStore struct {
	db *db.DB
}

// New new action store
func New(db *db.DB) core.ActionStore {
	return &actionStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Action{})
		if err := tx.AutoMigrate(core.Action{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Create enqueues an action. Replays of the same trace id are dropped
// so clients can retry safely.
func (s *actionStore) Create(ctx context.Context, action *core.Action) error {
	return s.db.Update().Where("trace_id = ?", action.TraceID).FirstOrCreate(action).Error
}

func (s *actionStore) ListAfter(ctx context.Context, id uint64, limit int) ([]*core.Action, error) {
	var actions []*core.Action
	if err := s.db.View().Where("id > ?", id).Order("id").Limit(limit).Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *actionStore) FindByTrace(ctx context.Context, traceID string) (*core.Action, error) {
	var action core.Action
	if err := s.db.View().Where("trace_id = ?", traceID).First(&action).Error; err != nil {
		if store.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}
