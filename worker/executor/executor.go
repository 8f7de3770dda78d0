package executor

import (
	"context"
	"errors"
	"time"

	"levee/core"
	"levee/pkg/actioncodec"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
)

const (
	checkpointKey = "executor_checkpoint"
	limit         = 100
)

// Executor drains the action queue serially. Each action runs inside
// one database transaction so a rejection rolls the whole action back;
// the checkpoint only advances once the outcome is recorded.
type Executor struct {
	db           *db.DB
	properties   property.Store
	actions      core.ActionStore
	transactions core.TransactionStore
	pool         core.PoolService
}

// New new executor worker
func New(
	db *db.DB,
	properties property.Store,
	actions core.ActionStore,
	transactions core.TransactionStore,
	pool core.PoolService,
) *Executor {
	return &Executor{
		db:           db,
		properties:   properties,
		actions:      actions,
		transactions: transactions,
		pool:         pool,
	}
}

// Run run worker
func (w *Executor) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "executor")
	ctx = logger.WithContext(ctx, log)

	dur := time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			if err := w.run(ctx); err == nil {
				dur = 100 * time.Millisecond
			} else {
				dur = 500 * time.Millisecond
			}
		}
	}
}

func (w *Executor) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	v, err := w.properties.Get(ctx, checkpointKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get error")
		return err
	}

	actions, err := w.actions.ListAfter(ctx, uint64(v.Int64()), limit)
	if err != nil {
		log.WithError(err).Errorln("actions.ListAfter")
		return err
	}

	if len(actions) == 0 {
		return errors.New("no more actions")
	}

	for _, action := range actions {
		if err := w.handleAction(ctx, action); err != nil {
			return err
		}

		if err := w.properties.Save(ctx, checkpointKey, action.ID); err != nil {
			log.WithError(err).Errorln("property.Save:", action.ID)
			return err
		}
	}

	return nil
}

func (w *Executor) handleAction(ctx context.Context, action *core.Action) error {
	log := logger.FromContext(ctx).
		WithField("trace", action.TraceID).
		WithField("action", action.Type.String())
	ctx = logger.WithContext(ctx, log)

	// idempotent replay: the outcome was already recorded
	if existing, err := w.transactions.FindByTrace(ctx, action.TraceID); err != nil {
		return err
	} else if existing != nil {
		return nil
	}

	// accrual time is the action's enqueue time, replays stay deterministic
	now := action.CreatedAt

	var (
		assetID string
		extra   = core.NewTransactionExtra()
	)

	err := w.db.Tx(func(tx *db.DB) error {
		var applyErr error
		assetID, applyErr = w.applyAction(ctx, tx, action, now, extra)
		if applyErr != nil {
			return applyErr
		}

		return w.transactions.Create(ctx, tx, w.newTransaction(action, assetID, core.TransactionStatusComplete, 0, extra))
	})
	if err == nil {
		return nil
	}

	code, deterministic := rejectionCode(err)
	if !deterministic {
		log.WithError(err).Errorln("apply action")
		return err
	}

	log.Infof("action aborted with code %d", code)

	transaction := w.newTransaction(action, assetID, core.TransactionStatusAborted, code, extra)
	return w.db.Tx(func(tx *db.DB) error {
		return w.transactions.Create(ctx, tx, transaction)
	})
}

func (w *Executor) applyAction(ctx context.Context, tx *db.DB, action *core.Action, now time.Time, extra core.TransactionExtra) (string, error) {
	switch action.Type {
	case core.ActionTypeDeposit:
		var p core.DepositPayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.Deposit(ctx, tx, action.UserID, &p, now)

	case core.ActionTypeWithdraw:
		var p core.WithdrawPayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.Withdraw(ctx, tx, action.UserID, &p, now)

	case core.ActionTypeBorrow:
		var p core.BorrowPayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.Borrow(ctx, tx, action.UserID, &p, now)

	case core.ActionTypeRepay:
		var p core.RepayPayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.Repay(ctx, tx, action.UserID, &p, now)

	case core.ActionTypeSwapRateMode:
		var p core.SwapRateModePayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.SwapRateMode(ctx, tx, action.UserID, &p, now)

	case core.ActionTypeRebalanceStableRate:
		var p core.RebalancePayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.RebalanceStableRate(ctx, tx, &p, now)

	case core.ActionTypeSetCollateral:
		var p core.SetCollateralPayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		return p.AssetID, w.pool.SetUseAsCollateral(ctx, tx, action.UserID, &p, now)

	case core.ActionTypeLiquidate:
		var p core.LiquidatePayload
		if err := actioncodec.Unmarshal(action.Payload, &p); err != nil {
			return "", core.ErrInvalidArgument
		}
		result, err := w.pool.Liquidate(ctx, tx, action.UserID, &p, now)
		if err != nil {
			return p.DebtAssetID, err
		}
		extra.Put("debt_covered", result.DebtCovered.Dec())
		extra.Put("collateral_seized", result.CollateralSeized.Dec())
		extra.Put("received_receipt_token", result.ReceivedReceipt)
		return p.DebtAssetID, nil

	default:
		return "", core.ErrInvalidArgument
	}
}

func (w *Executor) newTransaction(action *core.Action, assetID string, status core.TransactionStatus, code core.ErrorCode, extra core.TransactionExtra) *core.Transaction {
	transaction := &core.Transaction{
		TraceID:   action.TraceID,
		UserID:    action.UserID,
		Action:    action.Type,
		AssetID:   assetID,
		Status:    status,
		ErrorCode: code,
	}
	transaction.SetExtra(extra)
	return transaction
}

// rejectionCode classifies an action failure. Deterministic failures
// abort the action with a recorded code, anything else is retried.
func rejectionCode(err error) (core.ErrorCode, bool) {
	var code core.ErrorCode
	if errors.As(err, &code) {
		return code, true
	}
	if errors.Is(err, raymath.ErrOverflow) || errors.Is(err, raymath.ErrDivByZero) {
		return core.ErrMathOverflow, true
	}
	return 0, false
}
