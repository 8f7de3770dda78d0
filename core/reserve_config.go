package core

import (
	"github.com/holiman/uint256"
)

// ReserveConfig is the unpacked reserve configuration. The packed wire
// form keeps the historical single word layout:
//
//	bits  0-15  LTV                      (basis points)
//	bits 16-31  liquidation threshold    (basis points)
//	bits 32-47  liquidation bonus        (basis points, >= 10000 when set)
//	bits 48-55  decimals
//	bit  56     active
//	bit  57     frozen
//	bit  58     borrowing enabled
//	bit  59     stable borrowing enabled
//	bits 64-79  reserve factor           (basis points)
//
// Invariants are checked once here instead of at every masked access.
type ReserveConfig struct {
	LTV                    uint64 `json:"ltv"`
	LiquidationThreshold   uint64 `json:"liquidation_threshold"`
	LiquidationBonus       uint64 `json:"liquidation_bonus"`
	Decimals               uint8  `json:"decimals"`
	Active                 bool   `json:"active"`
	Frozen                 bool   `json:"frozen"`
	BorrowingEnabled       bool   `json:"borrowing_enabled"`
	StableBorrowingEnabled bool   `json:"stable_borrowing_enabled"`
	ReserveFactor          uint64 `json:"reserve_factor"`
}

const (
	maskU16 = 0xffff

	shiftLiquidationThreshold = 16
	shiftLiquidationBonus     = 32
	shiftDecimals             = 48
	bitActive                 = 56
	bitFrozen                 = 57
	bitBorrowing              = 58
	bitStableBorrowing        = 59
	shiftReserveFactor        = 64
)

// Pack serializes into the single word form.
func (c ReserveConfig) Pack() *uint256.Int {
	lo := c.LTV & maskU16
	lo |= (c.LiquidationThreshold & maskU16) << shiftLiquidationThreshold
	lo |= (c.LiquidationBonus & maskU16) << shiftLiquidationBonus
	lo |= uint64(c.Decimals) << shiftDecimals
	if c.Active {
		lo |= 1 << bitActive
	}
	if c.Frozen {
		lo |= 1 << bitFrozen
	}
	if c.BorrowingEnabled {
		lo |= 1 << bitBorrowing
	}
	if c.StableBorrowingEnabled {
		lo |= 1 << bitStableBorrowing
	}

	v := uint256.NewInt(c.ReserveFactor & maskU16)
	v.Lsh(v, shiftReserveFactor)
	return v.Or(v, uint256.NewInt(lo))
}

// UnpackReserveConfig deserializes the single word form.
func UnpackReserveConfig(v *uint256.Int) ReserveConfig {
	lo := v.Uint64()
	hi := new(uint256.Int).Rsh(v, shiftReserveFactor).Uint64()

	return ReserveConfig{
		LTV:                    lo & maskU16,
		LiquidationThreshold:   (lo >> shiftLiquidationThreshold) & maskU16,
		LiquidationBonus:       (lo >> shiftLiquidationBonus) & maskU16,
		Decimals:               uint8(lo >> shiftDecimals),
		Active:                 lo&(1<<bitActive) != 0,
		Frozen:                 lo&(1<<bitFrozen) != 0,
		BorrowingEnabled:       lo&(1<<bitBorrowing) != 0,
		StableBorrowingEnabled: lo&(1<<bitStableBorrowing) != 0,
		ReserveFactor:          hi & maskU16,
	}
}

// Validate enforces the cross field invariants:
// ltv <= liquidation threshold, threshold * bonus <= 100%, and a
// usable threshold requires a bonus above 100%.
func (c ReserveConfig) Validate() error {
	if c.LTV > c.LiquidationThreshold {
		return ErrInvalidReserveConfig
	}

	if c.LiquidationThreshold > 0 {
		if c.LiquidationBonus <= 10000 {
			return ErrInvalidReserveConfig
		}
		// a liquidation must never seize more value than the
		// collateral is worth
		if c.LiquidationThreshold*c.LiquidationBonus > 10000*10000 {
			return ErrInvalidReserveConfig
		}
	}

	if c.ReserveFactor > 10000 || c.LTV > 10000 {
		return ErrInvalidReserveConfig
	}

	return nil
}
