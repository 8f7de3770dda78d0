package cmd

import (
	"sync"

	"levee/worker"
	"levee/worker/accruer"
	"levee/worker/executor"
	"levee/worker/pricefeed"
	"levee/worker/sentinel"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "levee job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		propertyStore := providePropertyStore(database)
		reserveStore := provideReserveStore(database)
		userConfigStore := provideUserConfigStore(database)
		actionStore := provideActionStore(database)
		transactionStore := provideTransactionStore(database)
		priceStore := providePriceStore(database)
		accountStore := provideAccountStore(database)
		receiptLedger := provideReceiptLedger(database)
		stableLedger := provideStableLedger(database)
		variableLedger := provideVariableLedger(database)

		priceOracle := providePriceOracle(priceStore)
		rateOracle := provideLendingRateOracle(priceStore)
		rateStrategy := provideInterestRateStrategy(rateOracle)
		reserveService := provideReserveService(reserveStore, receiptLedger, stableLedger, variableLedger, rateStrategy)
		accountService := provideAccountService(reserveStore, userConfigStore, receiptLedger, stableLedger, variableLedger, priceOracle)
		validationService := provideValidationService(accountService, userConfigStore, receiptLedger, stableLedger, variableLedger, rateStrategy)
		liquidationService := provideLiquidationService(reserveStore, userConfigStore, receiptLedger, stableLedger, variableLedger, reserveService, accountService, validationService, priceOracle)
		poolService := providePoolService(reserveStore, userConfigStore, receiptLedger, stableLedger, variableLedger, reserveService, accountService, validationService, liquidationService, propertyStore)

		feed, err := pricefeed.New(database, cfg.PriceFeed, reserveStore, priceStore)
		if err != nil {
			log.WithError(err).Fatal("init price feed")
		}

		workers := []worker.Worker{
			executor.New(database, propertyStore, actionStore, transactionStore, poolService),
			accruer.New(database, reserveStore, reserveService),
			feed,
			sentinel.New(database, reserveStore, userConfigStore, accountService, accountStore),
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(worker worker.Worker) {
				defer wg.Done()
				_ = worker.Run(ctx)
			}(w)
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
