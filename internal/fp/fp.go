// Package fp implements the saturating fixed point arithmetic used by the
// control core for temperatures, PID terms and duty settings.
//
// A Value has 12 fractional bits and is stored in a fixed.Int52_12, but every
// result is clamped to the 32 bit raw range, so the numeric behaviour matches
// a 32 bit embedded representation.
package fp

import (
	"math"
	"strconv"

	"golang.org/x/image/math/fixed"
)

const (
	FractionBits = 12
	rawOne       = int64(1) << FractionBits
	maxRaw       = int64(math.MaxInt32)
	minRaw       = int64(math.MinInt32)
)

// Value is a saturating fixed point number.
type Value fixed.Int52_12

var (
	Zero    = Value(0)
	One     = Value(rawOne)
	MaxVal  = Value(maxRaw)
	MinVal  = Value(minRaw)
	Hundred = FromInt(100)
)

func saturate(raw int64) Value {
	if raw > maxRaw {
		return MaxVal
	}
	if raw < minRaw {
		return MinVal
	}
	return Value(raw)
}

// FromRaw creates a Value from its raw representation.
func FromRaw(raw int64) Value {
	return saturate(raw)
}

func FromInt(i int64) Value {
	if i > maxRaw>>FractionBits {
		return MaxVal
	}
	if i < minRaw>>FractionBits {
		return MinVal
	}
	return Value(i << FractionBits)
}

// FromFloat rounds f to the nearest representable Value.
func FromFloat(f float64) Value {
	if math.IsNaN(f) {
		return Zero
	}
	scaled := math.Round(f * float64(rawOne))
	if scaled >= float64(maxRaw) {
		return MaxVal
	}
	if scaled <= float64(minRaw) {
		return MinVal
	}
	return Value(int64(scaled))
}

func (v Value) Raw() int64 {
	return int64(v)
}

func (v Value) Float() float64 {
	return float64(v) / float64(rawOne)
}

func (v Value) Add(o Value) Value {
	return saturate(int64(v) + int64(o))
}

func (v Value) Sub(o Value) Value {
	return saturate(int64(v) - int64(o))
}

func (v Value) Mul(o Value) Value {
	return saturate(int64(fixed.Int52_12(v).Mul(fixed.Int52_12(o))))
}

// MulInt multiplies by a plain integer.
func (v Value) MulInt(i int64) Value {
	return v.Mul(FromInt(i))
}

// Div divides v by o, rounding to nearest. Division by zero saturates
// towards the sign of v.
func (v Value) Div(o Value) Value {
	if o == 0 {
		switch {
		case v > 0:
			return MaxVal
		case v < 0:
			return MinVal
		default:
			return Zero
		}
	}
	num := int64(v) << FractionBits
	den := int64(o)
	q := num / den
	r := num % den
	if r != 0 && abs64(r)*2 >= abs64(den) {
		if (num < 0) != (den < 0) {
			q--
		} else {
			q++
		}
	}
	return saturate(q)
}

func (v Value) DivInt(i int64) Value {
	return v.Div(FromInt(i))
}

func (v Value) Neg() Value {
	return saturate(-int64(v))
}

func (v Value) Abs() Value {
	if v < 0 {
		return v.Neg()
	}
	return v
}

// Round returns the nearest integer.
func (v Value) Round() int64 {
	return (int64(v) + rawOne/2) >> FractionBits
}

func (v Value) String() string {
	return strconv.FormatFloat(v.Float(), 'f', -1, 64)
}

func Min(a, b Value) Value {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Value) Value {
	if a > b {
		return a
	}
	return b
}

func Clamp(v, low, high Value) Value {
	return Max(low, Min(v, high))
}

func abs64(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
