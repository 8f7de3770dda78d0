package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType user action kinds processed by the executor.
type ActionType int

const (
	// ActionTypeDeposit deposit underlying, receive receipt tokens
	ActionTypeDeposit ActionType = iota + 1
	// ActionTypeWithdraw burn receipt tokens, receive underlying
	ActionTypeWithdraw
	// ActionTypeBorrow open debt against collateral
	ActionTypeBorrow
	// ActionTypeRepay pay debt down
	ActionTypeRepay
	// ActionTypeSwapRateMode switch a debt between stable and variable
	ActionTypeSwapRateMode
	// ActionTypeRebalanceStableRate force a stale stable rate back to market
	ActionTypeRebalanceStableRate
	// ActionTypeSetCollateral toggle a reserve's collateral flag
	ActionTypeSetCollateral
	// ActionTypeLiquidate liquidation call by a third party
	ActionTypeLiquidate
)

func (t ActionType) String() string {
	switch t {
	case ActionTypeDeposit:
		return "deposit"
	case ActionTypeWithdraw:
		return "withdraw"
	case ActionTypeBorrow:
		return "borrow"
	case ActionTypeRepay:
		return "repay"
	case ActionTypeSwapRateMode:
		return "swap_rate_mode"
	case ActionTypeRebalanceStableRate:
		return "rebalance_stable_rate"
	case ActionTypeSetCollateral:
		return "set_collateral"
	case ActionTypeLiquidate:
		return "liquidate"
	default:
		return "unknown"
	}
}

// RateMode borrow rate modes. Mode none is only meaningful for
// flashloans that repay within the action.
type RateMode int

const (
	RateModeNone RateMode = iota
	RateModeStable
	RateModeVariable
)

// Valid reports whether the mode names an actual debt type.
func (m RateMode) Valid() bool {
	return m == RateModeStable || m == RateModeVariable
}

// Action one queued user action. Payload is msgpack, decoded by type.
type Action struct {
	ID        uint64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID   string     `sql:"size:36;unique_index:idx_actions_trace" json:"trace_id"`
	UserID    string     `sql:"size:36;index:idx_actions_user" json:"user_id"`
	Type      ActionType `json:"type"`
	Payload   []byte     `sql:"type:varbinary(512)" json:"-"`
	CreatedAt time.Time  `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// ActionStore the pending action queue. The executor walks it by id
// with a property store checkpoint, so rows are immutable.
type ActionStore interface {
	Create(ctx context.Context, action *Action) error
	ListAfter(ctx context.Context, id uint64, limit int) ([]*Action, error)
	FindByTrace(ctx context.Context, traceID string) (*Action, error)
}

// Typed payloads. Amounts are human decimals; the pool converts to
// integer units against the reserve's decimals.

type DepositPayload struct {
	AssetID    string          `json:"asset_id" msgpack:"a"`
	Amount     decimal.Decimal `json:"amount" msgpack:"m"`
	OnBehalfOf string          `json:"on_behalf_of,omitempty" msgpack:"b"`
}

type WithdrawPayload struct {
	AssetID string          `json:"asset_id" msgpack:"a"`
	Amount  decimal.Decimal `json:"amount" msgpack:"m"`
	All     bool            `json:"all,omitempty" msgpack:"x"`
	To      string          `json:"to,omitempty" msgpack:"t"`
}

type BorrowPayload struct {
	AssetID    string          `json:"asset_id" msgpack:"a"`
	Amount     decimal.Decimal `json:"amount" msgpack:"m"`
	RateMode   RateMode        `json:"rate_mode" msgpack:"r"`
	OnBehalfOf string          `json:"on_behalf_of,omitempty" msgpack:"b"`
}

type RepayPayload struct {
	AssetID    string          `json:"asset_id" msgpack:"a"`
	Amount     decimal.Decimal `json:"amount" msgpack:"m"`
	All        bool            `json:"all,omitempty" msgpack:"x"`
	RateMode   RateMode        `json:"rate_mode" msgpack:"r"`
	OnBehalfOf string          `json:"on_behalf_of,omitempty" msgpack:"b"`
}

type SwapRateModePayload struct {
	AssetID  string   `json:"asset_id" msgpack:"a"`
	RateMode RateMode `json:"rate_mode" msgpack:"r"`
}

type RebalancePayload struct {
	AssetID string `json:"asset_id" msgpack:"a"`
	UserID  string `json:"user_id" msgpack:"u"`
}

type SetCollateralPayload struct {
	AssetID         string `json:"asset_id" msgpack:"a"`
	UseAsCollateral bool   `json:"use_as_collateral" msgpack:"c"`
}

type LiquidatePayload struct {
	CollateralAssetID string          `json:"collateral_asset_id" msgpack:"c"`
	DebtAssetID       string          `json:"debt_asset_id" msgpack:"d"`
	UserID            string          `json:"user_id" msgpack:"u"`
	DebtToCover       decimal.Decimal `json:"debt_to_cover" msgpack:"m"`
	ReceiveReceipt    bool            `json:"receive_receipt_token" msgpack:"r"`
}
