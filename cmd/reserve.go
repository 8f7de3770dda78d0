package cmd

import (
	"strings"

	"levee/core"
	"levee/pkg/id"
	"levee/pkg/number"

	"github.com/asaskevich/govalidator"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var listReservesCmd = &cobra.Command{
	Use:     "reserves",
	Aliases: []string{"lr"},
	Short:   "list reserves",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database := provideDatabase()
		defer database.Close()

		reserves, err := provideReserveStore(database).All(ctx)
		if err != nil {
			panic(err)
		}

		for _, r := range reserves {
			cmd.Printf("%d\t%s\t%s\tltv=%d\tthreshold=%d\tactive=%v\n",
				r.ReserveID, r.Symbol, r.AssetID, r.LTV, r.LiquidationThreshold, r.Active)
		}
	},
}

var addReserveCmd = &cobra.Command{
	Use:     "add-reserve",
	Aliases: []string{"ar"},
	Short:   "list a new reserve",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database := provideDatabase()
		defer database.Close()

		reserveStore := provideReserveStore(database)
		receiptLedger := provideReceiptLedger(database)
		stableLedger := provideStableLedger(database)
		variableLedger := provideVariableLedger(database)
		userConfigStore := provideUserConfigStore(database)
		priceStore := providePriceStore(database)
		propertyStore := providePropertyStore(database)

		priceOracle := providePriceOracle(priceStore)
		rateOracle := provideLendingRateOracle(priceStore)
		rateStrategy := provideInterestRateStrategy(rateOracle)
		reserveService := provideReserveService(reserveStore, receiptLedger, stableLedger, variableLedger, rateStrategy)
		accountService := provideAccountService(reserveStore, userConfigStore, receiptLedger, stableLedger, variableLedger, priceOracle)
		validationService := provideValidationService(accountService, userConfigStore, receiptLedger, stableLedger, variableLedger, rateStrategy)
		liquidationService := provideLiquidationService(reserveStore, userConfigStore, receiptLedger, stableLedger, variableLedger, reserveService, accountService, validationService, priceOracle)
		poolService := providePoolService(reserveStore, userConfigStore, receiptLedger, stableLedger, variableLedger, reserveService, accountService, validationService, liquidationService, propertyStore)

		symbol, _ := cmd.Flags().GetString("symbol")
		assetID, _ := cmd.Flags().GetString("asset")
		if symbol == "" || !govalidator.IsUUID(assetID) {
			panic("invalid symbol or asset id")
		}

		reserve := &core.Reserve{
			AssetID:             assetID,
			Symbol:              strings.ToUpper(symbol),
			ReceiptTokenAssetID: id.Modify(assetID, "receipt"),
			StableDebtAssetID:   id.Modify(assetID, "stable_debt"),
			VariableDebtAssetID: id.Modify(assetID, "variable_debt"),
		}

		if err := applyReserveFlags(cmd, reserve); err != nil {
			panic(err)
		}

		if err := database.Tx(func(tx *db.DB) error {
			return poolService.InitReserve(ctx, tx, reserve)
		}); err != nil {
			panic(err)
		}

		cmd.Println("reserve listed:", reserve.AssetID, "id", reserve.ReserveID)
	},
}

var updateReserveCmd = &cobra.Command{
	Use:     "update-reserve",
	Aliases: []string{"ur"},
	Short:   "update reserve configuration",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		database := provideDatabase()
		defer database.Close()

		reserveStore := provideReserveStore(database)

		assetID, _ := cmd.Flags().GetString("asset")
		reserve, err := reserveStore.Find(ctx, assetID)
		if err != nil {
			panic(err)
		}
		if reserve == nil {
			panic("reserve not found")
		}

		if err := applyReserveFlags(cmd, reserve); err != nil {
			panic(err)
		}

		if err := database.Tx(func(tx *db.DB) error {
			return reserveStore.Update(ctx, tx, reserve)
		}); err != nil {
			panic(err)
		}

		cmd.Println("reserve updated:", reserve.AssetID)
	},
}

// applyReserveFlags copies every flag the caller set onto the row and
// validates the resulting configuration.
func applyReserveFlags(cmd *cobra.Command, reserve *core.Reserve) error {
	flags := map[string]*int64{
		"ltv":            &reserve.LTV,
		"threshold":      &reserve.LiquidationThreshold,
		"bonus":          &reserve.LiquidationBonus,
		"reserve-factor": &reserve.ReserveFactor,
	}
	for name, target := range flags {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			*target = cast.ToInt64(v)
		}
	}

	if cmd.Flags().Changed("decimals") {
		v, _ := cmd.Flags().GetString("decimals")
		reserve.Decimals = cast.ToInt32(v)
	}

	bools := map[string]*bool{
		"active":           &reserve.Active,
		"frozen":           &reserve.Frozen,
		"borrowing":        &reserve.BorrowingEnabled,
		"stable-borrowing": &reserve.StableBorrowingEnabled,
	}
	for name, target := range bools {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			*target = cast.ToBool(v)
		}
	}

	rays := map[string]*decimal.Decimal{
		"optimal-utilization": &reserve.OptimalUtilization,
		"base-rate":           &reserve.BaseVariableRate,
		"slope1":              &reserve.VariableSlope1,
		"slope2":              &reserve.VariableSlope2,
		"stable-slope1":       &reserve.StableSlope1,
		"stable-slope2":       &reserve.StableSlope2,
	}
	for name, target := range rays {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			d, err := decimal.NewFromString(v)
			if err != nil {
				return err
			}
			ray, err := number.DecimalToRay(d)
			if err != nil {
				return err
			}
			*target = number.ToDecimal(ray)
		}
	}

	return reserve.Config().Validate()
}

func reserveFlags(cmd *cobra.Command) {
	cmd.Flags().String("asset", "", "asset id")
	cmd.Flags().String("symbol", "", "reserve symbol")
	cmd.Flags().String("ltv", "", "loan to value, basis points")
	cmd.Flags().String("threshold", "", "liquidation threshold, basis points")
	cmd.Flags().String("bonus", "", "liquidation bonus, basis points over 10000")
	cmd.Flags().String("decimals", "", "asset decimals")
	cmd.Flags().String("reserve-factor", "", "reserve factor, basis points")
	cmd.Flags().String("active", "", "reserve active")
	cmd.Flags().String("frozen", "", "reserve frozen")
	cmd.Flags().String("borrowing", "", "borrowing enabled")
	cmd.Flags().String("stable-borrowing", "", "stable borrowing enabled")
	cmd.Flags().String("optimal-utilization", "", "kink point, human rate")
	cmd.Flags().String("base-rate", "", "base variable rate, human rate")
	cmd.Flags().String("slope1", "", "variable slope below the kink")
	cmd.Flags().String("slope2", "", "variable slope above the kink")
	cmd.Flags().String("stable-slope1", "", "stable slope below the kink")
	cmd.Flags().String("stable-slope2", "", "stable slope above the kink")
}

func init() {
	rootCmd.AddCommand(listReservesCmd)
	rootCmd.AddCommand(addReserveCmd)
	rootCmd.AddCommand(updateReserveCmd)

	reserveFlags(addReserveCmd)
	reserveFlags(updateReserveCmd)
}
