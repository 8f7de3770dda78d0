package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
)

// TransactionStatus outcome of a processed action.
type TransactionStatus int

const (
	// TransactionStatusComplete applied in full
	TransactionStatusComplete TransactionStatus = iota + 1
	// TransactionStatusAborted rejected, no state change
	TransactionStatusAborted
)

// Transaction the immutable log of processed actions, one row per
// action, complete or aborted with its error code.
type Transaction struct {
	ID        uint64            `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID   string            `sql:"size:36;unique_index:idx_transactions_trace" json:"trace_id"`
	UserID    string            `sql:"size:36;index:idx_transactions_user" json:"user_id"`
	Action    ActionType        `json:"action"`
	AssetID   string            `sql:"size:36;index:idx_transactions_asset" json:"asset_id"`
	Status    TransactionStatus `sql:"default:1" json:"status"`
	ErrorCode ErrorCode         `sql:"default:0" json:"error_code,omitempty"`
	Data      types.JSONText    `sql:"type:TEXT" json:"data,omitempty"`
	CreatedAt time.Time         `sql:"default:CURRENT_TIMESTAMP;index:idx_transactions_created" json:"created_at"`
}

// TransactionExtra free form details attached to a transaction.
type TransactionExtra map[string]interface{}

// NewTransactionExtra new extra map
func NewTransactionExtra() TransactionExtra {
	return make(TransactionExtra)
}

// Put put data
func (t TransactionExtra) Put(key string, value interface{}) {
	t[key] = value
}

// SetExtra marshal extra onto the row
func (tx *Transaction) SetExtra(extra TransactionExtra) {
	data, err := json.Marshal(extra)
	if err != nil {
		data = []byte("{}")
	}
	tx.Data = data
}

// TransactionStore transaction log persistence
type TransactionStore interface {
	Create(ctx context.Context, tx *db.DB, transaction *Transaction) error
	FindByTrace(ctx context.Context, traceID string) (*Transaction, error)
	List(ctx context.Context, fromID uint64, limit int) ([]*Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}
