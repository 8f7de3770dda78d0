package rest

import (
	"net/http"

	"levee/core"
	"levee/handler/param"
	"levee/handler/render"
)

func transactionsHandler(transactions core.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			User   string `json:"user"`
			FromID uint64 `json:"from_id"`
			Limit  int    `json:"limit"`
		}
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.Limit <= 0 || params.Limit > 500 {
			params.Limit = 100
		}

		var (
			list []*core.Transaction
			err  error
		)
		if params.User != "" {
			list, err = transactions.ListByUser(ctx, params.User, params.Limit)
		} else {
			list, err = transactions.List(ctx, params.FromID, params.Limit)
		}
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, list)
	}
}
