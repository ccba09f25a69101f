package control

import (
	"math"

	"github.com/markusressel/controlbox/internal/fp"
)

const (
	DefaultPwmPeriod Ticks = 4000
	MinPwmPeriod     Ticks = 100
	// MinDutyTime is the shortest high or low time. Settings that would need
	// a shorter one are treated as 0 or 100.
	MinDutyTime Ticks = 10
	// pwmMaxWait bounds the time between two updates.
	pwmMaxWait Ticks = 1000
)

// PwmStretchLimit bounds how far a half period may be stretched to make up
// for errors in previous periods, as a factor of its nominal duration.
var PwmStretchLimit = 1.5

// ActuatorPwm toggles a digital actuator so that its average duty cycle
// matches the setting (0 to 100). Deviations caused by constraints or late
// updates are accumulated and compensated in the following periods.
type ActuatorPwm struct {
	target Lookup[*ActuatorDigitalConstrained]

	period       Ticks
	setting      fp.Value
	settingValid bool
	value        fp.Value
	valueValid   bool
	enabled      bool

	cumulativeError Ticks
	periodStart     Ticks
	periodKnown     bool
	periodDuty      float64
	skipError       bool
}

func NewActuatorPwm(target Lookup[*ActuatorDigitalConstrained], period Ticks) *ActuatorPwm {
	p := &ActuatorPwm{
		target:  target,
		enabled: true,
	}
	p.SetPeriod(period)
	return p
}

func (p *ActuatorPwm) SetTarget(target Lookup[*ActuatorDigitalConstrained]) {
	p.target = target
}

func (p *ActuatorPwm) Period() Ticks {
	return p.period
}

func (p *ActuatorPwm) SetPeriod(period Ticks) {
	if period < MinPwmPeriod {
		period = MinPwmPeriod
	}
	if period != p.period {
		p.skipError = true
	}
	p.period = period
}

func (p *ActuatorPwm) Enabled() bool {
	return p.enabled
}

func (p *ActuatorPwm) SetEnabled(enabled bool) {
	p.enabled = enabled
}

func (p *ActuatorPwm) Setting() fp.Value {
	return p.setting
}

// SetSetting clamps the duty setting to 0..100. A running period is not
// restarted, the new setting moves its next toggle.
func (p *ActuatorPwm) SetSetting(setting fp.Value) {
	p.setting = fp.Clamp(setting, fp.Zero, fp.Hundred)
}

func (p *ActuatorPwm) SettingValid() bool {
	return p.settingValid
}

func (p *ActuatorPwm) SetSettingValid(valid bool) {
	p.settingValid = valid
}

// Value returns the achieved duty cycle.
func (p *ActuatorPwm) Value() fp.Value {
	return p.value
}

func (p *ActuatorPwm) ValueValid() bool {
	return p.valueValid
}

// CumulativeError returns the active time that still has to be compensated,
// positive when the actuator was active for too long.
func (p *ActuatorPwm) CumulativeError() Ticks {
	return p.cumulativeError
}

func (p *ActuatorPwm) dutyTime() Ticks {
	return Ticks(math.Round(p.setting.Float() * float64(p.period) / 100))
}

func stretch(d Ticks) Ticks {
	return Ticks(math.Round(float64(d) * PwmStretchLimit))
}

func clampTicks(v, low, high Ticks) Ticks {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func (p *ActuatorPwm) resetError() {
	p.cumulativeError = 0
	p.skipError = true
}

// trackPeriod detects the start of a new period and accumulates the error
// of the period that just ended.
func (p *ActuatorPwm) trackPeriod(act *ActuatorDigitalConstrained, now Ticks, duty float64) {
	start, _, ok := act.Logged().LastStartEndTime(Active, now)
	if !ok || (p.periodKnown && start == p.periodStart) {
		return
	}
	if p.periodKnown && !p.skipError {
		d := act.Logged().ActiveDurations(now)
		r := d.PreviousActive - Ticks(math.Round(p.periodDuty*float64(d.PreviousPeriod)))
		limit := p.period / 2
		p.cumulativeError = clampTicks(p.cumulativeError+r, -limit, limit)
	}
	p.skipError = false
	p.periodKnown = true
	p.periodStart = start
	p.periodDuty = duty
}

func (p *ActuatorPwm) Update(now Ticks) Ticks {
	act, ok := p.target.get()
	if !ok || act == nil {
		p.valueValid = false
		return now + pwmMaxWait
	}
	defer p.updateValue(act, now)

	if !p.enabled || !p.settingValid {
		act.SetDesiredState(Inactive, now)
		p.resetError()
		return now + pwmMaxWait
	}

	dutyTime := p.dutyTime()
	if dutyTime < MinDutyTime {
		act.SetDesiredState(Inactive, now)
		p.resetError()
		return now + pwmMaxWait
	}
	if dutyTime > p.period-MinDutyTime {
		act.SetDesiredState(Active, now)
		p.resetError()
		return now + pwmMaxWait
	}

	duty := float64(dutyTime) / float64(p.period)
	p.trackPeriod(act, now, duty)
	durations := act.Logged().ActiveDurations(now)

	var wait Ticks
	if act.State() == Active {
		highTarget := clampTicks(dutyTime-p.cumulativeError, 0, stretch(dutyTime))
		if durations.CurrentActive >= highTarget {
			act.SetDesiredState(Inactive, now)
		} else {
			act.SetDesiredState(Active, now)
			wait = highTarget - durations.CurrentActive
		}
	} else {
		if !p.periodKnown {
			act.SetDesiredState(Active, now)
			return now + 1
		}
		active := durations.CurrentActive
		inactive := durations.CurrentPeriod - durations.CurrentActive
		lowTarget := Ticks(math.Round(float64(active+p.cumulativeError)/duty)) - active
		lowTarget = clampTicks(lowTarget, 0, stretch(p.period-dutyTime))
		if inactive >= lowTarget {
			act.SetDesiredState(Active, now)
		} else {
			act.SetDesiredState(Inactive, now)
			wait = lowTarget - inactive
		}
	}
	return now + clampTicks(wait, 1, pwmMaxWait)
}

// updateValue estimates the achieved duty over the previous and the current
// period. The current period is completed with the remaining part of the
// phase the actuator is in, so a period in progress does not count as lost
// or extra duty.
func (p *ActuatorPwm) updateValue(act *ActuatorDigitalConstrained, now Ticks) {
	state := act.State()
	if state == Unknown {
		p.valueValid = false
		return
	}
	p.valueValid = true

	var dutyTime Ticks
	if p.enabled && p.settingValid {
		dutyTime = clampTicks(p.dutyTime(), 0, p.period)
	}

	d := act.Logged().ActiveDurations(now)
	currentActive := d.CurrentActive
	currentPeriod := d.CurrentPeriod
	if state == Active {
		if currentActive < dutyTime {
			currentActive = dutyTime
		}
		if currentPeriod < p.period {
			currentPeriod = p.period
		}
		if currentPeriod < currentActive {
			currentPeriod = currentActive
		}
	} else if expected := currentActive + p.period - dutyTime; currentPeriod < expected {
		currentPeriod = expected
	}

	total := d.PreviousPeriod + currentPeriod
	if total <= 0 {
		p.value = fp.Zero
		return
	}
	achieved := float64(d.PreviousActive+currentActive) * 100 / float64(total)
	p.value = fp.Clamp(fp.FromFloat(achieved), fp.Zero, fp.Hundred)
}
