// Package interest holds the pure time/rate math behind index accrual.
// Rates are ray scaled per year, timestamps are unix seconds.
package interest

import (
	"levee/pkg/raymath"

	"github.com/holiman/uint256"
)

// SecondsPerYear seconds per year
const SecondsPerYear = 365 * 24 * 3600

var secondsPerYear = uint256.NewInt(SecondsPerYear)

// Linear computes 1 + rate*dt/secondsPerYear in ray.
func Linear(rate *uint256.Int, fromTimestamp, toTimestamp int64) (*uint256.Int, error) {
	dt := deltaT(fromTimestamp, toTimestamp)
	if dt.IsZero() || rate.IsZero() {
		return new(uint256.Int).Set(raymath.Ray), nil
	}

	p, overflow := new(uint256.Int).MulOverflow(rate, dt)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	p.Div(p, secondsPerYear)

	v, overflow := new(uint256.Int).AddOverflow(p, raymath.Ray)
	if overflow {
		return nil, raymath.ErrOverflow
	}

	return v, nil
}

// Compounded approximates (1 + rate/secondsPerYear)^dt with the first
// three terms of the binomial expansion:
//
//	1 + n*x + n*(n-1)*x^2/2 + n*(n-1)*(n-2)*x^3/6
//
// where x is the per second rate. The error is negligible for the rate
// magnitudes a pool ever reaches and the approximation always
// undershoots, which favors the protocol.
func Compounded(rate *uint256.Int, fromTimestamp, toTimestamp int64) (*uint256.Int, error) {
	dt := deltaT(fromTimestamp, toTimestamp)
	if dt.IsZero() || rate.IsZero() {
		return new(uint256.Int).Set(raymath.Ray), nil
	}

	em1 := new(uint256.Int).Sub(dt, uint256.NewInt(1))
	em2 := uint256.NewInt(0)
	if dt.Uint64() > 2 {
		em2 = new(uint256.Int).Sub(dt, uint256.NewInt(2))
	}

	rps := new(uint256.Int).Div(rate, secondsPerYear)

	rps2, err := raymath.MulRay(rps, rps)
	if err != nil {
		return nil, err
	}
	rps3, err := raymath.MulRay(rps2, rps)
	if err != nil {
		return nil, err
	}

	t1, overflow := new(uint256.Int).MulOverflow(dt, rps)
	if overflow {
		return nil, raymath.ErrOverflow
	}

	t2, overflow := new(uint256.Int).MulOverflow(dt, em1)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	t2, overflow = t2.MulOverflow(t2, rps2)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	t2.Div(t2, uint256.NewInt(2))

	t3, overflow := new(uint256.Int).MulOverflow(dt, em1)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	t3, overflow = t3.MulOverflow(t3, em2)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	t3, overflow = t3.MulOverflow(t3, rps3)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	t3.Div(t3, uint256.NewInt(6))

	v, overflow := new(uint256.Int).AddOverflow(raymath.Ray, t1)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	v, overflow = v.AddOverflow(v, t2)
	if overflow {
		return nil, raymath.ErrOverflow
	}
	v, overflow = v.AddOverflow(v, t3)
	if overflow {
		return nil, raymath.ErrOverflow
	}

	return v, nil
}

func deltaT(from, to int64) *uint256.Int {
	if to <= from {
		return uint256.NewInt(0)
	}
	return uint256.NewInt(uint64(to - from))
}
