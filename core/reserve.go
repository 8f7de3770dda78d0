package core

import (
	"context"
	"time"

	"levee/internal/interest"
	"levee/pkg/number"
	"levee/pkg/raymath"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxReserves the user bitset packs 2 bits per reserve into 256 bits
const MaxReserves = 128

// Reserve one listed asset. Index and rate columns are ray scaled
// integers; unit columns are integer token units with Decimals.
type Reserve struct {
	ID      uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID string `sql:"size:36;unique_index:idx_reserves_asset" json:"asset_id"`
	Symbol  string `sql:"size:20" json:"symbol"`
	// ReserveID stable numeric id, 0..127, assigned once at init
	ReserveID int64 `sql:"unique_index:idx_reserves_rid" json:"reserve_id"`

	// configuration, the unpacked form of ReserveConfig
	LTV                    int64 `sql:"default:0" json:"ltv"`
	LiquidationThreshold   int64 `sql:"default:0" json:"liquidation_threshold"`
	LiquidationBonus       int64 `sql:"default:0" json:"liquidation_bonus"`
	Decimals               int32 `sql:"default:8" json:"decimals"`
	Active                 bool  `sql:"default:false" json:"active"`
	Frozen                 bool  `sql:"default:false" json:"frozen"`
	BorrowingEnabled       bool  `sql:"default:false" json:"borrowing_enabled"`
	StableBorrowingEnabled bool  `sql:"default:false" json:"stable_borrowing_enabled"`
	ReserveFactor          int64 `sql:"default:0" json:"reserve_factor"`

	// accrual state
	LiquidityIndex            decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"liquidity_index"`
	VariableBorrowIndex       decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"variable_borrow_index"`
	CurrentLiquidityRate      decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"current_liquidity_rate"`
	CurrentStableBorrowRate   decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"current_stable_borrow_rate"`
	CurrentVariableBorrowRate decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"current_variable_borrow_rate"`
	LastUpdateTimestamp       int64           `sql:"default:0" json:"last_update_timestamp"`

	// interest rate strategy parameters, ray scaled
	OptimalUtilization decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"optimal_utilization"`
	BaseVariableRate   decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"base_variable_rate"`
	VariableSlope1     decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"variable_slope1"`
	VariableSlope2     decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"variable_slope2"`
	StableSlope1       decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"stable_slope1"`
	StableSlope2       decimal.Decimal `sql:"type:decimal(48,0);default:0" json:"stable_slope2"`

	// collaborator bindings
	ReceiptTokenAssetID string `sql:"size:36" json:"receipt_token_asset_id"`
	StableDebtAssetID   string `sql:"size:36" json:"stable_debt_asset_id"`
	VariableDebtAssetID string `sql:"size:36" json:"variable_debt_asset_id"`

	Version   int64     `sql:"default:0" json:"version"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsInitialized reports whether Init already ran for this reserve.
func (r *Reserve) IsInitialized() bool {
	return r.ReceiptTokenAssetID != ""
}

// Config view of the packed configuration fields.
func (r *Reserve) Config() ReserveConfig {
	return ReserveConfig{
		LTV:                    uint64(r.LTV),
		LiquidationThreshold:   uint64(r.LiquidationThreshold),
		LiquidationBonus:       uint64(r.LiquidationBonus),
		Decimals:               uint8(r.Decimals),
		Active:                 r.Active,
		Frozen:                 r.Frozen,
		BorrowingEnabled:       r.BorrowingEnabled,
		StableBorrowingEnabled: r.StableBorrowingEnabled,
		ReserveFactor:          uint64(r.ReserveFactor),
	}
}

// ApplyConfig writes a validated configuration back onto the row.
func (r *Reserve) ApplyConfig(c ReserveConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}

	r.LTV = int64(c.LTV)
	r.LiquidationThreshold = int64(c.LiquidationThreshold)
	r.LiquidationBonus = int64(c.LiquidationBonus)
	r.Decimals = int32(c.Decimals)
	r.Active = c.Active
	r.Frozen = c.Frozen
	r.BorrowingEnabled = c.BorrowingEnabled
	r.StableBorrowingEnabled = c.StableBorrowingEnabled
	r.ReserveFactor = int64(c.ReserveFactor)
	return nil
}

// GetLiquidityIndex decodes the stored index, treating an unset row as 1 ray.
func (r *Reserve) GetLiquidityIndex() *uint256.Int {
	return rayColumn(r.LiquidityIndex)
}

// GetVariableBorrowIndex decodes the stored index.
func (r *Reserve) GetVariableBorrowIndex() *uint256.Int {
	return rayColumn(r.VariableBorrowIndex)
}

// GetLiquidityRate decodes the stored rate.
func (r *Reserve) GetLiquidityRate() *uint256.Int {
	return rateColumn(r.CurrentLiquidityRate)
}

// GetStableBorrowRate decodes the stored rate.
func (r *Reserve) GetStableBorrowRate() *uint256.Int {
	return rateColumn(r.CurrentStableBorrowRate)
}

// GetVariableBorrowRate decodes the stored rate.
func (r *Reserve) GetVariableBorrowRate() *uint256.Int {
	return rateColumn(r.CurrentVariableBorrowRate)
}

// SetLiquidityIndex persists an index, failing once it no longer fits
// the 128 bit storage width. The overflow is fatal for the action.
func (r *Reserve) SetLiquidityIndex(v *uint256.Int) error {
	if !raymath.Fits128(v) {
		return ErrIndexOverflow
	}
	r.LiquidityIndex = number.ToDecimal(v)
	return nil
}

// SetVariableBorrowIndex persists an index with the 128 bit guard.
func (r *Reserve) SetVariableBorrowIndex(v *uint256.Int) error {
	if !raymath.Fits128(v) {
		return ErrIndexOverflow
	}
	r.VariableBorrowIndex = number.ToDecimal(v)
	return nil
}

// SetRates persists the three current rates with the 128 bit guard.
func (r *Reserve) SetRates(liquidityRate, stableRate, variableRate *uint256.Int) error {
	for _, v := range []*uint256.Int{liquidityRate, stableRate, variableRate} {
		if !raymath.Fits128(v) {
			return ErrIndexOverflow
		}
	}

	r.CurrentLiquidityRate = number.ToDecimal(liquidityRate)
	r.CurrentStableBorrowRate = number.ToDecimal(stableRate)
	r.CurrentVariableBorrowRate = number.ToDecimal(variableRate)
	return nil
}

// NormalizedIncome the cumulated liquidity index as of now, with
// linear interest projected since the last on-action update.
func (r *Reserve) NormalizedIncome(now time.Time) (*uint256.Int, error) {
	index := r.GetLiquidityIndex()
	ts := now.Unix()
	if ts == r.LastUpdateTimestamp {
		return index, nil
	}

	cum, err := interest.Linear(r.GetLiquidityRate(), r.LastUpdateTimestamp, ts)
	if err != nil {
		return nil, err
	}

	return raymath.MulRay(cum, index)
}

// NormalizedVariableDebt the cumulated variable borrow index as of now,
// with compounded interest projected since the last update.
func (r *Reserve) NormalizedVariableDebt(now time.Time) (*uint256.Int, error) {
	index := r.GetVariableBorrowIndex()
	ts := now.Unix()
	if ts == r.LastUpdateTimestamp {
		return index, nil
	}

	cum, err := interest.Compounded(r.GetVariableBorrowRate(), r.LastUpdateTimestamp, ts)
	if err != nil {
		return nil, err
	}

	return raymath.MulRay(cum, index)
}

func rayColumn(d decimal.Decimal) *uint256.Int {
	if !d.IsPositive() {
		return new(uint256.Int).Set(raymath.Ray)
	}
	v, err := number.FromDecimal(d)
	if err != nil {
		return new(uint256.Int).Set(raymath.Ray)
	}
	return v
}

func rateColumn(d decimal.Decimal) *uint256.Int {
	v, err := number.FromDecimal(d)
	if err != nil {
		return uint256.NewInt(0)
	}
	return v
}

// ReserveStore reserve persistence
type ReserveStore interface {
	Create(ctx context.Context, tx *db.DB, reserve *Reserve) error
	Find(ctx context.Context, assetID string) (*Reserve, error)
	FindByID(ctx context.Context, reserveID int64) (*Reserve, error)
	All(ctx context.Context) ([]*Reserve, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, tx *db.DB, reserve *Reserve) error
}

// ReserveService the accrual engine, one reserve per call
type ReserveService interface {
	// UpdateState accrues indexes since the last update and skims the
	// reserve factor share of new debt interest to the treasury.
	UpdateState(ctx context.Context, tx *db.DB, reserve *Reserve, now time.Time) error
	// UpdateInterestRates refreshes the three rates after liquidity moved.
	UpdateInterestRates(ctx context.Context, tx *db.DB, reserve *Reserve, liquidityAdded, liquidityTaken *uint256.Int) error
	// CumulateToLiquidityIndex spreads a one shot amount (flashloan
	// premium) over all depositors through the liquidity index.
	CumulateToLiquidityIndex(ctx context.Context, reserve *Reserve, totalLiquidity, amount *uint256.Int) error
	// Init performs the one time setup of a freshly listed reserve.
	Init(ctx context.Context, tx *db.DB, reserve *Reserve) error
}
