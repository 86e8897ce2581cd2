package mathx_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/construct/internal/mathx"
)

func recoverOverflow(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected overflow panic")
		e, ok := r.(error)
		require.True(t, ok)
		err = e
	}()
	fn()
	return nil
}

func TestMul_Overflow(t *testing.T) {
	err := recoverOverflow(t, func() { mathx.Mul(math.MaxInt64, 2) })
	assert.True(t, errors.Is(err, mathx.ErrOverflow))
}

func TestMul_MinInt64TimesMinusOne(t *testing.T) {
	err := recoverOverflow(t, func() { mathx.Mul(math.MinInt64, -1) })
	assert.True(t, errors.Is(err, mathx.ErrOverflow))
}

func TestAdd_Overflow(t *testing.T) {
	err := recoverOverflow(t, func() { mathx.Add(math.MaxInt64, 1) })
	var oe *mathx.OverflowError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "add", oe.Op)
}

func TestMulDiv_LargeIntermediate(t *testing.T) {
	// 9e18 * 100 would overflow int64 before the division.
	got := mathx.MulDiv(9_000_000_000_000_000_000, 100, 1_000)
	assert.Equal(t, int64(900_000_000_000_000_000), got)
}

func TestMulDiv_ResultOverflow(t *testing.T) {
	err := recoverOverflow(t, func() { mathx.MulDiv(math.MaxInt64, 10, 1) })
	assert.True(t, errors.Is(err, mathx.ErrOverflow))
}

func TestMulMulDiv_Floors(t *testing.T) {
	// 7 * 150 * 3 / 200 = 15.75
	assert.Equal(t, int64(15), mathx.MulMulDiv(7, 150, 3, 200))
}

func TestPow10(t *testing.T) {
	assert.Equal(t, int64(1), mathx.Pow10(0))
	assert.Equal(t, int64(1_000_000), mathx.Pow10(6))
	assert.Equal(t, int64(1), mathx.Pow10(7))
	assert.Equal(t, int64(1), mathx.Pow10(-1))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, int64(0), mathx.Clamp(-5, 0, 10))
	assert.Equal(t, int64(10), mathx.Clamp(50, 0, 10))
	assert.Equal(t, int64(4), mathx.Clamp(4, 0, 10))
}

func TestPropertyMulDiv_MatchesNativeWhenSmall(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Int64Range(0, 1_000_000).Draw(rt, "a")
		b := rapid.Int64Range(0, 1_000_000).Draw(rt, "b")
		d := rapid.Int64Range(1, 1_000_000).Draw(rt, "d")
		assert.Equal(rt, a*b/d, mathx.MulDiv(a, b, d))
	})
}

func TestPropertySub_InverseOfAdd(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Int64Range(-1<<40, 1<<40).Draw(rt, "a")
		b := rapid.Int64Range(-1<<40, 1<<40).Draw(rt, "b")
		assert.Equal(rt, a, mathx.Sub(mathx.Add(a, b), b))
	})
}
