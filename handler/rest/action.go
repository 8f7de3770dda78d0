package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"levee/core"
	"levee/handler/param"
	"levee/handler/render"
	"levee/pkg/actioncodec"

	"github.com/asaskevich/govalidator"
	"github.com/fox-one/pkg/uuid"
	"github.com/go-chi/chi"
)

var actionTypes = map[string]core.ActionType{
	"deposit":               core.ActionTypeDeposit,
	"withdraw":              core.ActionTypeWithdraw,
	"borrow":                core.ActionTypeBorrow,
	"repay":                 core.ActionTypeRepay,
	"swap_rate_mode":        core.ActionTypeSwapRateMode,
	"rebalance_stable_rate": core.ActionTypeRebalanceStableRate,
	"set_collateral":        core.ActionTypeSetCollateral,
	"liquidate":             core.ActionTypeLiquidate,
}

func newPayload(typ core.ActionType) interface{} {
	switch typ {
	case core.ActionTypeDeposit:
		return &core.DepositPayload{}
	case core.ActionTypeWithdraw:
		return &core.WithdrawPayload{}
	case core.ActionTypeBorrow:
		return &core.BorrowPayload{}
	case core.ActionTypeRepay:
		return &core.RepayPayload{}
	case core.ActionTypeSwapRateMode:
		return &core.SwapRateModePayload{}
	case core.ActionTypeRebalanceStableRate:
		return &core.RebalancePayload{}
	case core.ActionTypeSetCollateral:
		return &core.SetCollateralPayload{}
	case core.ActionTypeLiquidate:
		return &core.LiquidatePayload{}
	default:
		return nil
	}
}

func createActionHandler(actions core.ActionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			TraceID string          `json:"trace_id"`
			UserID  string          `json:"user_id"`
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.TraceID == "" {
			params.TraceID = uuid.New()
		}
		if !govalidator.IsUUID(params.TraceID) || !govalidator.IsUUID(params.UserID) {
			render.Err(w, core.ErrInvalidArgument)
			return
		}

		typ, ok := actionTypes[params.Type]
		if !ok {
			render.Err(w, core.ErrInvalidArgument)
			return
		}

		payload := newPayload(typ)
		if err := json.Unmarshal(params.Payload, payload); err != nil {
			render.Err(w, core.ErrInvalidArgument)
			return
		}

		data, err := actioncodec.Marshal(payload)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		action := &core.Action{
			TraceID: params.TraceID,
			UserID:  params.UserID,
			Type:    typ,
			Payload: data,
		}
		if err := actions.Create(ctx, action); err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, action)
	}
}

func actionHandler(actions core.ActionStore, transactions core.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		trace := chi.URLParam(r, "trace")
		action, err := actions.FindByTrace(ctx, trace)
		if err != nil {
			render.BadRequest(w, err)
			return
		}
		if action == nil {
			render.NotFoundRequest(w, errors.New("action not found"))
			return
		}

		transaction, err := transactions.FindByTrace(ctx, trace)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, render.H{
			"action":      action,
			"transaction": transaction,
		})
	}
}
