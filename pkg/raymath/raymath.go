package raymath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow an intermediate product exceeded 256 bits
	ErrOverflow = errors.New("raymath: arithmetic overflow")
	// ErrDivByZero division by zero
	ErrDivByZero = errors.New("raymath: division by zero")
)

var (
	// Wad 1e18, token amounts
	Wad = mustParse("1000000000000000000")
	// HalfWad wad / 2
	HalfWad = mustParse("500000000000000000")
	// Ray 1e27, rates and indexes
	Ray = mustParse("1000000000000000000000000000")
	// HalfRay ray / 2
	HalfRay = mustParse("500000000000000000000000000")
	// WadRayRatio ray / wad
	WadRayRatio = mustParse("1000000000")
	// PercentageFactor percentage denominated in basis points
	PercentageFactor = uint256.NewInt(10000)
	// HalfPercent half of a percentage factor
	HalfPercent = uint256.NewInt(5000)
	// Max128 2^128 - 1, the storage width of indexes and rates
	Max128 = mustParse("340282366920938463463374607431768211455")
)

func mustParse(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

// mulDivRound computes (a*b + denom/2) / denom with round half up,
// failing if a*b overflows 256 bits.
func mulDivRound(a, b, denom *uint256.Int) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, ErrDivByZero
	}
	if a.IsZero() || b.IsZero() {
		return uint256.NewInt(0), nil
	}

	p, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}

	half := new(uint256.Int).Rsh(denom, 1)
	sum, overflow := new(uint256.Int).AddOverflow(p, half)
	if overflow {
		return nil, ErrOverflow
	}

	return sum.Div(sum, denom), nil
}

// MulDiv a*b/denom, round half up. For unit conversions with an
// arbitrary denominator, e.g. pricing token units into the numeraire.
func MulDiv(a, b, denom *uint256.Int) (*uint256.Int, error) {
	return mulDivRound(a, b, denom)
}

// MulWad a*b/wad, round half up
func MulWad(a, b *uint256.Int) (*uint256.Int, error) {
	return mulDivRound(a, b, Wad)
}

// DivWad a*wad/b, round half up
func DivWad(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	return mulDivRound(a, Wad, b)
}

// MulRay a*b/ray, round half up
func MulRay(a, b *uint256.Int) (*uint256.Int, error) {
	return mulDivRound(a, b, Ray)
}

// DivRay a*ray/b, round half up
func DivRay(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivByZero
	}
	return mulDivRound(a, Ray, b)
}

// PercentMul a*bps/10000, round half up
func PercentMul(a *uint256.Int, bps uint64) (*uint256.Int, error) {
	return mulDivRound(a, uint256.NewInt(bps), PercentageFactor)
}

// PercentDiv a*10000/bps, round half up
func PercentDiv(a *uint256.Int, bps uint64) (*uint256.Int, error) {
	if bps == 0 {
		return nil, ErrDivByZero
	}
	return mulDivRound(a, PercentageFactor, uint256.NewInt(bps))
}

// WadToRay scales a wad up to ray; overflow is impossible for any
// value that fits 128 bits
func WadToRay(a *uint256.Int) (*uint256.Int, error) {
	v, overflow := new(uint256.Int).MulOverflow(a, WadRayRatio)
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}

// RayToWad scales a ray down to wad, round half up
func RayToWad(a *uint256.Int) *uint256.Int {
	half := new(uint256.Int).Rsh(WadRayRatio, 1)
	v := new(uint256.Int).Add(a, half)
	return v.Div(v, WadRayRatio)
}

// Fits128 reports whether v fits the 128 bit storage width
func Fits128(v *uint256.Int) bool {
	return v.Cmp(Max128) <= 0
}
