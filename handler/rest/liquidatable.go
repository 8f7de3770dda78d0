package rest

import (
	"net/http"

	"levee/core"
	"levee/handler/render"
	"levee/handler/views"
)

func liquidatableHandler(accounts core.AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		snapshots, err := accounts.ListUnhealthy(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		list := make([]*views.Liquidatable, 0, len(snapshots))
		for _, snapshot := range snapshots {
			list = append(list, &views.Liquidatable{
				AccountSnapshot:   *snapshot,
				HealthFactorValue: snapshot.HealthFactor.Shift(-27),
				TotalDebtValue:    snapshot.TotalDebt.Shift(-18),
			})
		}

		render.JSON(w, list)
	}
}
