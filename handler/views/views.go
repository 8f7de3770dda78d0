package views

import (
	"levee/core"

	"github.com/shopspring/decimal"
)

// Reserve reserve view, raw ray columns translated to human rates
type Reserve struct {
	core.Reserve
	LiquidityAPY       decimal.Decimal `json:"liquidity_apy"`
	VariableBorrowAPY  decimal.Decimal `json:"variable_borrow_apy"`
	StableBorrowAPY    decimal.Decimal `json:"stable_borrow_apy"`
	AvailableLiquidity decimal.Decimal `json:"available_liquidity"`
	TotalVariableDebt  decimal.Decimal `json:"total_variable_debt"`
	TotalStableDebt    decimal.Decimal `json:"total_stable_debt"`
	Price              decimal.Decimal `json:"price"`
}

// Account a user's aggregated position
type Account struct {
	UserID                  string          `json:"user_id"`
	TotalCollateral         decimal.Decimal `json:"total_collateral"`
	TotalDebt               decimal.Decimal `json:"total_debt"`
	AvgLTV                  decimal.Decimal `json:"avg_ltv"`
	AvgLiquidationThreshold decimal.Decimal `json:"avg_liquidation_threshold"`
	HealthFactor            decimal.Decimal `json:"health_factor"`
	Solvent                 bool            `json:"solvent"`
}

// Liquidatable one unhealthy account from the sentinel's scan
type Liquidatable struct {
	core.AccountSnapshot
	HealthFactorValue decimal.Decimal `json:"health_factor_value"`
	TotalDebtValue    decimal.Decimal `json:"total_debt_value"`
}
