package raymath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ray(s string) *uint256.Int {
	return mustParse(s)
}

func TestMulRay(t *testing.T) {
	// 2.0 ray * 1.5 ray = 3.0 ray
	v, err := MulRay(ray("2000000000000000000000000000"), ray("1500000000000000000000000000"))
	require.Nil(t, err)
	assert.Equal(t, "3000000000000000000000000000", v.Dec())

	// identity
	v, err = MulRay(ray("123456789"), Ray)
	require.Nil(t, err)
	assert.Equal(t, "123456789", v.Dec())
}

func TestMulRayRoundsHalfUp(t *testing.T) {
	// 1 * 0.5 ray rounds to 1, 1 * (0.5 ray - 1) rounds to 0
	v, err := MulRay(uint256.NewInt(1), HalfRay)
	require.Nil(t, err)
	assert.Equal(t, uint64(1), v.Uint64())

	almostHalf := new(uint256.Int).Sub(HalfRay, uint256.NewInt(1))
	v, err = MulRay(uint256.NewInt(1), almostHalf)
	require.Nil(t, err)
	assert.Equal(t, uint64(0), v.Uint64())
}

func TestMulRayOverflow(t *testing.T) {
	max := new(uint256.Int).Not(uint256.NewInt(0))
	_, err := MulRay(max, uint256.NewInt(2))
	assert.Equal(t, ErrOverflow, err)
}

func TestDivRay(t *testing.T) {
	v, err := DivRay(ray("3000000000000000000000000000"), ray("2000000000000000000000000000"))
	require.Nil(t, err)
	assert.Equal(t, "1500000000000000000000000000", v.Dec())

	_, err = DivRay(Ray, uint256.NewInt(0))
	assert.Equal(t, ErrDivByZero, err)
}

func TestPercentMath(t *testing.T) {
	v, err := PercentMul(uint256.NewInt(1000), 8000)
	require.Nil(t, err)
	assert.Equal(t, uint64(800), v.Uint64())

	v, err = PercentDiv(uint256.NewInt(800), 8000)
	require.Nil(t, err)
	assert.Equal(t, uint64(1000), v.Uint64())

	// 105% liquidation bonus
	v, err = PercentMul(uint256.NewInt(350), 10500)
	require.Nil(t, err)
	assert.Equal(t, uint64(368), v.Uint64()) // 367.5 rounds up
}

func TestWadRayConversion(t *testing.T) {
	v, err := WadToRay(Wad)
	require.Nil(t, err)
	assert.Equal(t, 0, v.Cmp(Ray))

	assert.Equal(t, 0, RayToWad(Ray).Cmp(Wad))

	// half a unit of the dropped precision rounds up
	in := new(uint256.Int).Add(Ray, uint256.NewInt(500000000))
	out := RayToWad(in)
	assert.Equal(t, 0, out.Cmp(new(uint256.Int).Add(Wad, uint256.NewInt(1))))
}

func TestFits128(t *testing.T) {
	assert.True(t, Fits128(Max128))
	over := new(uint256.Int).Add(Max128, uint256.NewInt(1))
	assert.False(t, Fits128(over))
}
