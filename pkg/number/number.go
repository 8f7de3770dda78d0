package number

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegative negative amounts never cross the boundary into the core
	ErrNegative = errors.New("number: negative value")
	// ErrTooLarge value exceeds 256 bits
	ErrTooLarge = errors.New("number: value out of range")
)

// Decimal parse, ignoring errors. For constants only.
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// ToUnits converts a human amount into integer token units with the
// reserve's decimals, truncating sub-unit dust.
func ToUnits(amount decimal.Decimal, decimals int32) (*uint256.Int, error) {
	return FromDecimal(amount.Shift(decimals).Truncate(0))
}

// FromUnits converts integer token units back into a human amount.
func FromUnits(units *uint256.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units.ToBig(), -decimals)
}

// FromDecimal converts a non-negative integer decimal into uint256.
func FromDecimal(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegative
	}

	v, overflow := uint256.FromBig(d.Truncate(0).BigInt())
	if overflow {
		return nil, ErrTooLarge
	}

	return v, nil
}

// ToDecimal renders a uint256 as an integer decimal, the database and
// view representation of ray/unit values.
func ToDecimal(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// RayToDecimal renders a ray value as a human rate, e.g. 0.05 for 5% APY.
func RayToDecimal(v *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), -27)
}

// DecimalToRay converts a human rate into ray.
func DecimalToRay(d decimal.Decimal) (*uint256.Int, error) {
	return FromDecimal(d.Shift(27).Truncate(0))
}

// WadToDecimal renders a wad value as a human number.
func WadToDecimal(v *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), -18)
}

// DecimalToWad converts a human number into wad.
func DecimalToWad(d decimal.Decimal) (*uint256.Int, error) {
	return FromDecimal(d.Shift(18).Truncate(0))
}
