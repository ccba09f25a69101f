package fp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFloat(t *testing.T) {
	// GIVEN
	f := 20.5

	// WHEN
	v := FromFloat(f)

	// THEN
	assert.Equal(t, int64(20.5*4096), v.Raw())
	assert.Equal(t, 20.5, v.Float())
}

func TestAdd_Saturates(t *testing.T) {
	// GIVEN
	a := MaxVal

	// WHEN
	result := a.Add(One)

	// THEN
	assert.Equal(t, MaxVal, result)
	assert.Equal(t, MinVal, MinVal.Sub(One))
}

func TestMul(t *testing.T) {
	// GIVEN
	a := FromFloat(1.5)
	b := FromInt(-4)

	// WHEN
	result := a.Mul(b)

	// THEN
	assert.Equal(t, FromInt(-6), result)
}

func TestMul_Saturates(t *testing.T) {
	// GIVEN
	a := FromInt(100000)

	// WHEN
	result := a.Mul(a)

	// THEN
	assert.Equal(t, MaxVal, result)
	assert.Equal(t, MinVal, a.Neg().Mul(a))
}

func TestDiv(t *testing.T) {
	assert.Equal(t, FromFloat(2.5), FromInt(5).Div(FromInt(2)))
	assert.Equal(t, FromFloat(-2.5), FromInt(-5).Div(FromInt(2)))
	assert.InDelta(t, 1.0/3.0, One.Div(FromInt(3)).Float(), 0.0003)
}

func TestDiv_ByZero(t *testing.T) {
	assert.Equal(t, MaxVal, One.Div(Zero))
	assert.Equal(t, MinVal, One.Neg().Div(Zero))
	assert.Equal(t, Zero, Zero.Div(Zero))
}

func TestRound(t *testing.T) {
	assert.Equal(t, int64(3), FromFloat(2.5).Round())
	assert.Equal(t, int64(2), FromFloat(2.49).Round())
	assert.Equal(t, int64(-2), FromFloat(-2.4).Round())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, FromInt(10), Clamp(FromInt(20), Zero, FromInt(10)))
	assert.Equal(t, Zero, Clamp(FromInt(-20), Zero, FromInt(10)))
	assert.Equal(t, FromInt(5), Clamp(FromInt(5), Zero, FromInt(10)))
}

func TestWide_DoesNotSaturate(t *testing.T) {
	// GIVEN
	w := Wide(0)

	// WHEN
	w = w.Add(MaxVal).Add(MaxVal)

	// THEN
	assert.Equal(t, MaxVal, w.Value())
	assert.InDelta(t, 2*MaxVal.Float(), w.Float(), 0.001)
}

func TestWide_MulDiv(t *testing.T) {
	// GIVEN
	w := WideFromFloat(600)

	// WHEN
	result := w.MulDiv(FromInt(10), FromInt(2000))

	// THEN
	assert.Equal(t, FromInt(3), result)
}
