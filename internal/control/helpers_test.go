package control

import (
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/fp"
)

type mockIoArray struct {
	IoArrayBase
	connected bool
}

func newMockIoArray(size int) *mockIoArray {
	return &mockIoArray{IoArrayBase: NewIoArrayBase(size), connected: true}
}

func (m *mockIoArray) SenseChannel(channel uint8) (State, bool) {
	if !m.connected || !m.ValidChannel(channel) {
		return Unknown, false
	}
	if m.ChannelConfig(channel) == ChannelActiveHigh {
		return Active, true
	}
	return Inactive, true
}

func (m *mockIoArray) WriteChannelConfig(channel uint8, config ChannelConfig) bool {
	if !m.connected {
		return false
	}
	return m.SetChannelConfig(channel, config)
}

func (m *mockIoArray) SupportsFastIo() bool {
	return false
}

func newConstrained(array IoArray, channel uint8, owner cbox.ObjectID) *ActuatorDigitalConstrained {
	digital := NewActuatorDigital(Fixed(array), owner)
	digital.SetChannel(channel)
	return NewActuatorDigitalConstrained(NewActuatorDigitalChangeLogged(digital))
}

type fakeInput struct {
	setting    fp.Value
	value      fp.Value
	valid      bool
	derivative fp.Value
}

func (f *fakeInput) Setting() fp.Value      { return f.setting }
func (f *fakeInput) SettingValid() bool     { return f.valid }
func (f *fakeInput) Value() fp.Value        { return f.value }
func (f *fakeInput) ValueValid() bool       { return f.valid }
func (f *fakeInput) Derivative() fp.Value   { return f.derivative }
func (f *fakeInput) SetSetting(v fp.Value)  { f.setting = v }
func (f *fakeInput) SetSettingValid(v bool) { f.valid = v }

type fakeUtc struct {
	seconds int64
}

func (f *fakeUtc) UtcSeconds() int64 {
	return f.seconds
}

// laggingOutput reports a value that trails its setting by a fixed amount.
type laggingOutput struct {
	setting      fp.Value
	settingValid bool
	lag          fp.Value
}

func (o *laggingOutput) Setting() fp.Value      { return o.setting }
func (o *laggingOutput) SetSetting(v fp.Value)  { o.setting = v }
func (o *laggingOutput) SettingValid() bool     { return o.settingValid }
func (o *laggingOutput) SetSettingValid(v bool) { o.settingValid = v }
func (o *laggingOutput) Value() fp.Value        { return o.setting.Sub(o.lag) }
func (o *laggingOutput) ValueValid() bool       { return true }
