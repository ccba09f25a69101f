package control

import "github.com/markusressel/controlbox/internal/fp"

const OffsetInterval Ticks = 1000

type OffsetReference uint8

const (
	ReferenceSetting OffsetReference = iota
	ReferenceValue
)

// ActuatorOffset drives a target setpoint to the setting or value of a
// reference setpoint plus an offset. Its value is the achieved offset.
type ActuatorOffset struct {
	target    Lookup[ProcessValue]
	reference Lookup[ProcessValue]

	ReferenceSettingOrValue OffsetReference

	setting      fp.Value
	settingValid bool
	value        fp.Value
	valueValid   bool
	enabled      bool
}

func NewActuatorOffset(target Lookup[ProcessValue], reference Lookup[ProcessValue]) *ActuatorOffset {
	return &ActuatorOffset{
		target:    target,
		reference: reference,
		enabled:   true,
	}
}

func (a *ActuatorOffset) SetTarget(target Lookup[ProcessValue]) {
	a.target = target
}

func (a *ActuatorOffset) SetReference(reference Lookup[ProcessValue]) {
	a.reference = reference
}

func (a *ActuatorOffset) Enabled() bool {
	return a.enabled
}

func (a *ActuatorOffset) SetEnabled(enabled bool) {
	a.enabled = enabled
}

func (a *ActuatorOffset) Setting() fp.Value {
	return a.setting
}

func (a *ActuatorOffset) SetSetting(setting fp.Value) {
	a.setting = setting
}

func (a *ActuatorOffset) SettingValid() bool {
	return a.settingValid
}

func (a *ActuatorOffset) SetSettingValid(valid bool) {
	a.settingValid = valid
}

func (a *ActuatorOffset) Value() fp.Value {
	return a.value
}

func (a *ActuatorOffset) ValueValid() bool {
	return a.valueValid
}

func (a *ActuatorOffset) referenceValue() (fp.Value, bool) {
	ref, ok := a.reference.get()
	if !ok || ref == nil {
		return fp.Zero, false
	}
	if a.ReferenceSettingOrValue == ReferenceValue {
		return ref.Value(), ref.ValueValid()
	}
	return ref.Setting(), ref.SettingValid()
}

func (a *ActuatorOffset) Update(now Ticks) Ticks {
	target, targetOk := a.target.get()
	refValue, refValid := a.referenceValue()
	if !targetOk || target == nil {
		a.valueValid = false
		return now + OffsetInterval
	}

	if a.enabled {
		if a.settingValid && refValid {
			target.SetSetting(refValue.Add(a.setting))
			target.SetSettingValid(true)
		} else {
			target.SetSettingValid(false)
		}
	}

	a.valueValid = refValid && target.ValueValid()
	if a.valueValid {
		a.value = target.Value().Sub(refValue)
	}
	return now + OffsetInterval
}
