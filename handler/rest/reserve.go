package rest

import (
	"context"
	"net/http"
	"time"

	"levee/core"
	"levee/handler/render"
	"levee/handler/views"
	"levee/pkg/number"
	"levee/pkg/raymath"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func allReservesHandler(
	reserveStr core.ReserveStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	priceStr core.PriceStore,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reserves, err := reserveStr.All(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		reserveViews := make([]*views.Reserve, 0, len(reserves))
		for _, reserve := range reserves {
			view, err := getReserveView(ctx, reserve, receiptLedger, stableLedger, variableLedger, priceStr)
			if err != nil {
				render.BadRequest(w, err)
				return
			}
			reserveViews = append(reserveViews, view)
		}

		render.JSON(w, reserveViews)
	}
}

func reserveHandler(
	reserveStr core.ReserveStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	priceStr core.PriceStore,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reserve, err := reserveStr.Find(ctx, chi.URLParam(r, "asset"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}
		if reserve == nil {
			render.Err(w, core.ErrReserveNotFound)
			return
		}

		view, err := getReserveView(ctx, reserve, receiptLedger, stableLedger, variableLedger, priceStr)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, view)
	}
}

func getReserveView(
	ctx context.Context,
	reserve *core.Reserve,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	priceStr core.PriceStore,
) (*views.Reserve, error) {
	cash, err := receiptLedger.UnderlyingBalance(ctx, reserve.ReceiptTokenAssetID)
	if err != nil {
		return nil, err
	}

	scaledVariable, err := variableLedger.ScaledTotalSupply(ctx, reserve.VariableDebtAssetID)
	if err != nil {
		return nil, err
	}
	variableIndex, err := reserve.NormalizedVariableDebt(time.Now())
	if err != nil {
		return nil, err
	}
	variableDebt, err := raymath.MulRay(scaledVariable, variableIndex)
	if err != nil {
		return nil, err
	}

	stableSupply, err := stableLedger.GetSupplyData(ctx, reserve.StableDebtAssetID, time.Now())
	if err != nil {
		return nil, err
	}

	price := decimal.Zero
	if quote, err := priceStr.Find(ctx, reserve.AssetID); err != nil {
		return nil, err
	} else if quote != nil {
		price = quote.Price
	}

	return &views.Reserve{
		Reserve:            *reserve,
		LiquidityAPY:       number.RayToDecimal(reserve.GetLiquidityRate()),
		VariableBorrowAPY:  number.RayToDecimal(reserve.GetVariableBorrowRate()),
		StableBorrowAPY:    number.RayToDecimal(reserve.GetStableBorrowRate()),
		AvailableLiquidity: number.FromUnits(cash, reserve.Decimals),
		TotalVariableDebt:  number.FromUnits(variableDebt, reserve.Decimals),
		TotalStableDebt:    number.FromUnits(stableSupply.Total, reserve.Decimals),
		Price:              price,
	}, nil
}
