package control

import "github.com/markusressel/controlbox/internal/fp"

// ActuatorAnalogMock is an analog actuator without hardware. Its value
// follows the setting, clipped to its own value range.
type ActuatorAnalogMock struct {
	setting      fp.Value
	settingValid bool
	value        fp.Value

	MinSetting fp.Value
	MaxSetting fp.Value
	MinValue   fp.Value
	MaxValue   fp.Value
}

func NewActuatorAnalogMock() *ActuatorAnalogMock {
	return &ActuatorAnalogMock{
		MinSetting: fp.Zero,
		MaxSetting: fp.Hundred,
		MinValue:   fp.Zero,
		MaxValue:   fp.Hundred,
	}
}

func (a *ActuatorAnalogMock) Setting() fp.Value {
	return a.setting
}

func (a *ActuatorAnalogMock) SetSetting(setting fp.Value) {
	a.setting = fp.Clamp(setting, a.MinSetting, a.MaxSetting)
	a.value = fp.Clamp(a.setting, a.MinValue, a.MaxValue)
}

func (a *ActuatorAnalogMock) SettingValid() bool {
	return a.settingValid
}

func (a *ActuatorAnalogMock) SetSettingValid(valid bool) {
	a.settingValid = valid
}

func (a *ActuatorAnalogMock) Value() fp.Value {
	return a.value
}

func (a *ActuatorAnalogMock) ValueValid() bool {
	return true
}
