package fp

import "math"

// Wide is an unsaturated accumulator with the same fractional resolution as
// Value. It is used where intermediate sums must not clip at the Value range,
// like the integral of a PID controller.
type Wide int64

func (w Wide) Add(v Value) Wide {
	return w + Wide(v)
}

func (w Wide) AddWide(o Wide) Wide {
	return w + o
}

func (w Wide) Sub(v Value) Wide {
	return w - Wide(v)
}

// Value returns the accumulator saturated to the Value range.
func (w Wide) Value() Value {
	return saturate(int64(w))
}

func (w Wide) Float() float64 {
	return float64(w) / float64(rawOne)
}

// MulDiv computes w * mul / div and saturates the result to a Value.
func (w Wide) MulDiv(mul, div Value) Value {
	if div == 0 {
		return Zero
	}
	return FromFloat(w.Float() * mul.Float() / div.Float())
}

// WideFromFloat converts f without saturation at the Value range.
func WideFromFloat(f float64) Wide {
	if math.IsNaN(f) {
		return 0
	}
	return Wide(math.Round(f * float64(rawOne)))
}

// Scale multiplies a Value by a float factor, rounding to nearest.
func (v Value) Scale(f float64) Value {
	return FromFloat(v.Float() * f)
}
