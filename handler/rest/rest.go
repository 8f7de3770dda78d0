package rest

import (
	"errors"
	"net/http"

	"levee/core"
	"levee/handler/render"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(
	reserves core.ReserveStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	prices core.PriceStore,
	accountSrv core.AccountService,
	accounts core.AccountStore,
	transactions core.TransactionStore,
	actions core.ActionStore,
) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/reserves", allReservesHandler(reserves, receiptLedger, stableLedger, variableLedger, prices))
	router.Get("/reserves/{asset}", reserveHandler(reserves, receiptLedger, stableLedger, variableLedger, prices))
	router.Get("/accounts/{user}", accountHandler(accountSrv))
	router.Get("/transactions", transactionsHandler(transactions))
	router.Get("/liquidatable", liquidatableHandler(accounts))
	router.Post("/actions", createActionHandler(actions))
	router.Get("/actions/{trace}", actionHandler(actions, transactions))

	return router
}
