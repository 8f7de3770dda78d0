package interest

import (
	"testing"

	"levee/pkg/raymath"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rayPercent(n uint64) *uint256.Int {
	// n% per year in ray
	v := new(uint256.Int).Mul(raymath.Ray, uint256.NewInt(n))
	return v.Div(v, uint256.NewInt(100))
}

func TestLinearZeroDelta(t *testing.T) {
	v, err := Linear(rayPercent(10), 1000, 1000)
	require.Nil(t, err)
	assert.Equal(t, 0, v.Cmp(raymath.Ray))
}

func TestLinearOneYear(t *testing.T) {
	// 10% over exactly one year accrues the full rate
	v, err := Linear(rayPercent(10), 0, SecondsPerYear)
	require.Nil(t, err)

	want := new(uint256.Int).Add(raymath.Ray, rayPercent(10))
	assert.Equal(t, 0, v.Cmp(want))
}

func TestCompoundedExceedsLinear(t *testing.T) {
	rate := rayPercent(20)
	const dt = 30 * 24 * 3600

	lin, err := Linear(rate, 0, dt)
	require.Nil(t, err)
	comp, err := Compounded(rate, 0, dt)
	require.Nil(t, err)

	assert.True(t, comp.Cmp(lin) > 0, "compounding must beat linear: %s <= %s", comp.Dec(), lin.Dec())

	// but not by much over a month at 20%
	diff := new(uint256.Int).Sub(comp, lin)
	assert.True(t, diff.Cmp(rayPercent(1)) < 0)
}

func TestCompoundedZeroRate(t *testing.T) {
	v, err := Compounded(uint256.NewInt(0), 0, 3600)
	require.Nil(t, err)
	assert.Equal(t, 0, v.Cmp(raymath.Ray))
}

func TestCompoundedSingleSecond(t *testing.T) {
	// one second accrues exactly the per second rate, higher terms vanish
	rate := rayPercent(50)
	v, err := Compounded(rate, 10, 11)
	require.Nil(t, err)

	rps := new(uint256.Int).Div(rate, uint256.NewInt(SecondsPerYear))
	want := new(uint256.Int).Add(raymath.Ray, rps)
	assert.Equal(t, 0, v.Cmp(want))
}
