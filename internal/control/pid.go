package control

import (
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/fp"
)

const PidInterval Ticks = 1000

// PidAntiWindupGain scales the difference between the calculated and the
// achieved output before it is taken out of the integral.
var PidAntiWindupGain = fp.FromInt(3)

// PidValueTolerance is how far the achieved value of an unclipped output may
// trail its setting before the integral is reduced. Outputs that estimate
// their value, like a PWM, lag a setting that is still ramping.
var PidValueTolerance = fp.FromInt(1)

// BoilingPoint is the setting at which boil mode starts, before adjustment.
var BoilingPoint = fp.FromInt(100)

// PidInput is the process value a Pid controls.
type PidInput interface {
	Setting() fp.Value
	SettingValid() bool
	Value() fp.Value
	ValueValid() bool
	Derivative() fp.Value
}

// Pid calculates an actuator setting from the error of a setpoint and its
// sensor value. Ti and Td are in seconds, Ti = 0 disables the integral.
type Pid struct {
	input  Lookup[PidInput]
	output Lookup[ProcessValue]

	Kp              fp.Value
	Ti              int64
	Td              int64
	BoilPointAdjust fp.Value
	BoilMinOutput   fp.Value

	enabled  bool
	active   bool
	boilMode bool

	inputSetting fp.Value
	inputValue   fp.Value
	err          fp.Value
	derivative   fp.Value
	integral     fp.Wide
	p            fp.Value
	i            fp.Value
	d            fp.Value
	outputValue  fp.Value

	interval cbox.IntervalHelper
}

func NewPid(input Lookup[PidInput], output Lookup[ProcessValue]) *Pid {
	return &Pid{
		input:    input,
		output:   output,
		enabled:  true,
		interval: cbox.NewIntervalHelper(PidInterval),
	}
}

func (c *Pid) SetInput(input Lookup[PidInput]) {
	c.input = input
}

func (c *Pid) SetOutput(output Lookup[ProcessValue]) {
	c.output = output
}

func (c *Pid) Enabled() bool {
	return c.enabled
}

func (c *Pid) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Active reports whether the pid is enabled and has valid input and output.
func (c *Pid) Active() bool {
	return c.active
}

func (c *Pid) BoilModeActive() bool {
	return c.boilMode
}

func (c *Pid) InputSetting() fp.Value {
	return c.inputSetting
}

func (c *Pid) InputValue() fp.Value {
	return c.inputValue
}

func (c *Pid) Error() fp.Value {
	return c.err
}

func (c *Pid) Derivative() fp.Value {
	return c.derivative
}

// Integral returns the accumulated error in degree seconds.
func (c *Pid) Integral() fp.Wide {
	return c.integral
}

func (c *Pid) P() fp.Value {
	return c.p
}

func (c *Pid) I() fp.Value {
	return c.i
}

func (c *Pid) D() fp.Value {
	return c.d
}

// OutputValue returns the output setting the pid requested last.
func (c *Pid) OutputValue() fp.Value {
	return c.outputValue
}

// SetIntegral sets the integral so that the integral part equals iPart.
func (c *Pid) SetIntegral(iPart fp.Value) {
	if c.Ti == 0 || c.Kp == 0 {
		c.integral = 0
		c.i = fp.Zero
		return
	}
	c.integral = fp.WideFromFloat(iPart.Float() * float64(c.Ti) / c.Kp.Float())
	c.i = iPart
}

func (c *Pid) Update(now Ticks) Ticks {
	return c.interval.Update(now, c.step)
}

func (c *Pid) reset() {
	c.err = fp.Zero
	c.derivative = fp.Zero
	c.integral = 0
	c.p = fp.Zero
	c.i = fp.Zero
	c.d = fp.Zero
	c.outputValue = fp.Zero
	c.boilMode = false
}

func (c *Pid) step() {
	input, inputOk := c.input.get()
	output, outputOk := c.output.get()
	inputValid := inputOk && input != nil && input.SettingValid() && input.ValueValid()
	outputOk = outputOk && output != nil

	active := c.enabled && inputValid && outputOk
	if active != c.active {
		c.active = active
		if outputOk {
			// do not leave a stale setting behind
			output.SetSetting(fp.Zero)
			output.SetSettingValid(false)
		}
		c.reset()
	}
	if !active {
		return
	}

	c.inputSetting = input.Setting()
	c.inputValue = input.Value()
	c.err = c.inputSetting.Sub(c.inputValue)
	c.derivative = input.Derivative()

	dt := float64(PidInterval) / float64(cbox.Second)
	if c.Ti != 0 {
		c.integral = c.integral.AddWide(fp.WideFromFloat(c.err.Float() * dt))
	} else {
		c.integral = 0
	}

	c.p = c.Kp.Mul(c.err)
	c.i = c.integralPart()
	c.d = c.Kp.Mul(c.derivative).MulInt(c.Td).Neg()

	result := c.p.Add(c.i).Add(c.d)

	c.boilMode = c.inputSetting >= BoilingPoint.Add(c.BoilPointAdjust)
	if c.boilMode {
		result = fp.Max(result, c.BoilMinOutput)
	}

	output.SetSetting(result)
	output.SetSettingValid(true)
	c.outputValue = output.Setting()

	if c.Ti != 0 && c.Kp != 0 {
		c.antiWindup(result, output)
	}
}

func (c *Pid) integralPart() fp.Value {
	if c.Ti == 0 || c.Kp == 0 {
		return fp.Zero
	}
	return c.integral.MulDiv(c.Kp, fp.FromInt(c.Ti))
}

// antiWindup takes the part of the integral out that the output could not
// deliver, because it was clipped or did not reach its setting.
func (c *Pid) antiWindup(result fp.Value, output ProcessValue) {
	var excess fp.Value
	if setting := output.Setting(); setting != result || !output.ValueValid() {
		excess = result.Sub(setting)
	} else {
		excess = result.Sub(output.Value())
		switch {
		case excess > PidValueTolerance:
			excess = excess.Sub(PidValueTolerance)
		case excess < PidValueTolerance.Neg():
			excess = excess.Add(PidValueTolerance)
		default:
			excess = fp.Zero
		}
	}
	excess = excess.Mul(PidAntiWindupGain)

	// the integral already works against p, leave it alone
	if (c.i > 0 && c.p < 0 && c.i.Abs() > c.p.Abs()) || (c.i < 0 && c.p > 0 && c.i.Abs() > c.p.Abs()) {
		return
	}

	// only shrink the integral, never flip its sign
	if c.i >= 0 {
		excess = fp.Clamp(excess, fp.Zero, c.i)
	} else {
		excess = fp.Clamp(excess, c.i, fp.Zero)
	}
	if excess == 0 {
		return
	}
	c.integral = c.integral.AddWide(-fp.WideFromFloat(excess.Float() * float64(c.Ti) / c.Kp.Float()))
	c.i = c.integralPart()
}
