package rest

import (
	"net/http"
	"time"

	"levee/core"
	"levee/handler/render"
	"levee/handler/views"
	"levee/pkg/number"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func accountHandler(accountSrv core.AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		data, err := accountSrv.CalculateAccountData(ctx, chi.URLParam(r, "user"), time.Now())
		if err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, views.Account{
			UserID:                  chi.URLParam(r, "user"),
			TotalCollateral:         number.WadToDecimal(data.TotalCollateral),
			TotalDebt:               number.WadToDecimal(data.TotalDebt),
			AvgLTV:                  bpsToDecimal(data.AvgLTV),
			AvgLiquidationThreshold: bpsToDecimal(data.AvgLiquidationThreshold),
			HealthFactor:            number.RayToDecimal(data.HealthFactor),
			Solvent:                 data.IsSolvent(),
		})
	}
}

func bpsToDecimal(bps uint64) decimal.Decimal {
	return decimal.New(int64(bps), -4)
}
