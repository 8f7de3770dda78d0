package cmd

import (
	"time"

	"levee/core"
	accountservice "levee/service/account"
	liquidationservice "levee/service/liquidation"
	"levee/service/oracle"
	poolservice "levee/service/pool"
	reserveservice "levee/service/reserve"
	"levee/service/strategy"
	validatorservice "levee/service/validator"
	accountstore "levee/store/account"
	actionstore "levee/store/action"
	"levee/store/ledger"
	pricestore "levee/store/price"
	reservestore "levee/store/reserve"
	transactionstore "levee/store/transaction"
	userconfigstore "levee/store/userconfig"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideReserveStore(db *db.DB) core.ReserveStore {
	return reservestore.New(db)
}

func provideUserConfigStore(db *db.DB) core.UserConfigStore {
	return userconfigstore.New(db)
}

func provideActionStore(db *db.DB) core.ActionStore {
	return actionstore.New(db)
}

func provideTransactionStore(db *db.DB) core.TransactionStore {
	return transactionstore.New(db)
}

func providePriceStore(db *db.DB) core.PriceStore {
	return pricestore.New(db)
}

func provideAccountStore(db *db.DB) core.AccountStore {
	return accountstore.New(db)
}

func provideReceiptLedger(db *db.DB) core.ReceiptTokenLedger {
	return ledger.NewReceipt(db, cfg.App.Treasury)
}

func provideStableLedger(db *db.DB) core.StableDebtLedger {
	return ledger.NewStable(db)
}

func provideVariableLedger(db *db.DB) core.VariableDebtLedger {
	return ledger.NewVariable(db)
}

// ------------------service------------------------------------

func providePriceOracle(prices core.PriceStore) core.PriceOracle {
	return oracle.New(prices, time.Duration(cfg.PriceFeed.CacheTTLSeconds)*time.Second)
}

func provideLendingRateOracle(prices core.PriceStore) core.LendingRateOracle {
	rateOracle, err := oracle.NewLendingRateOracle(cfg.RateOracle, prices)
	if err != nil {
		panic(err)
	}

	return rateOracle
}

func provideInterestRateStrategy(rateOracle core.LendingRateOracle) core.InterestRateStrategy {
	return strategy.New(rateOracle)
}

func provideReserveService(
	reserves core.ReserveStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	rateStrategy core.InterestRateStrategy,
) core.ReserveService {
	return reserveservice.New(reserves, receiptLedger, stableLedger, variableLedger, rateStrategy)
}

func provideAccountService(
	reserves core.ReserveStore,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	priceOracle core.PriceOracle,
) core.AccountService {
	return accountservice.New(reserves, userConfigs, receiptLedger, stableLedger, variableLedger, priceOracle)
}

func provideValidationService(
	accountSrv core.AccountService,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	rateStrategy core.InterestRateStrategy,
) core.ValidationService {
	return validatorservice.New(accountSrv, userConfigs, receiptLedger, stableLedger, variableLedger, rateStrategy)
}

func provideLiquidationService(
	reserves core.ReserveStore,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	reserveSrv core.ReserveService,
	accountSrv core.AccountService,
	validator core.ValidationService,
	priceOracle core.PriceOracle,
) core.LiquidationService {
	return liquidationservice.New(reserves, userConfigs, receiptLedger, stableLedger, variableLedger, reserveSrv, accountSrv, validator, priceOracle)
}

func providePoolService(
	reserves core.ReserveStore,
	userConfigs core.UserConfigStore,
	receiptLedger core.ReceiptTokenLedger,
	stableLedger core.StableDebtLedger,
	variableLedger core.VariableDebtLedger,
	reserveSrv core.ReserveService,
	accountSrv core.AccountService,
	validator core.ValidationService,
	liquidationSrv core.LiquidationService,
	properties property.Store,
) core.PoolService {
	return poolservice.New(reserves, userConfigs, receiptLedger, stableLedger, variableLedger, reserveSrv, accountSrv, validator, liquidationSrv, properties)
}
