package blocks

import (
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
	"github.com/markusressel/controlbox/internal/fp"
)

const analogMockInterval cbox.Ticks = 1000

// analogActuator holds the constraint handling shared by all analog
// actuator blocks.
type analogActuator struct {
	env *Env
	act *control.ActuatorAnalogConstrained
}

func (a *analogActuator) read(m *codec.Message) {
	readAnalogConstraints(a.env, m, a.act)
	if v, ok := m.Value("desiredSetting"); ok {
		a.act.SetSettingValid(true)
		a.act.SetSetting(v)
	}
}

func (a *analogActuator) write(m *codec.Message, runtime bool) {
	if a.act.SettingValid() {
		m.SetValue("desiredSetting", a.act.DesiredSetting())
	} else if runtime {
		m.Strip("desiredSetting")
	}
	writeAnalogConstraints(m, a.act, runtime)
	if runtime {
		m.SetValidValue("setting", a.act.Setting(), a.act.SettingValid())
		m.SetValidValue("value", a.act.Value(), a.act.ValueValid())
	}
}

func (a *analogActuator) implements(iface cbox.InterfaceID) any {
	switch iface {
	case IfaceActuatorAnalogConstrained:
		return a.act
	case IfaceProcessValue:
		return control.ProcessValue(a.act)
	}
	return nil
}

// Release unregisters the actuator from balancers.
func (a *analogActuator) Release() {
	a.act.ClearConstraints()
}

// ActuatorAnalogMock is an analog actuator without hardware.
type ActuatorAnalogMock struct {
	analogActuator
	mock *control.ActuatorAnalogMock
}

func NewActuatorAnalogMock(env *Env) *ActuatorAnalogMock {
	mock := control.NewActuatorAnalogMock()
	return &ActuatorAnalogMock{
		analogActuator: analogActuator{env: env, act: control.NewActuatorAnalogConstrained(mock)},
		mock:           mock,
	}
}

func (b *ActuatorAnalogMock) TypeID() cbox.TypeID {
	return ActuatorAnalogMockType
}

func (b *ActuatorAnalogMock) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	readRange(m, "minSetting", &b.mock.MinSetting)
	readRange(m, "maxSetting", &b.mock.MaxSetting)
	readRange(m, "minValue", &b.mock.MinValue)
	readRange(m, "maxValue", &b.mock.MaxValue)
	b.read(m)
	return nil
}

func readRange(m *codec.Message, name string, target *fp.Value) {
	if v, ok := m.Value(name); ok {
		*target = v
	}
}

func (b *ActuatorAnalogMock) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetValue("minSetting", b.mock.MinSetting)
	m.SetValue("maxSetting", b.mock.MaxSetting)
	m.SetValue("minValue", b.mock.MinValue)
	m.SetValue("maxValue", b.mock.MaxValue)
	b.write(m, runtime)
	return m
}

func (b *ActuatorAnalogMock) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *ActuatorAnalogMock) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *ActuatorAnalogMock) Update(now cbox.Ticks) cbox.Ticks {
	b.act.Update()
	return now + analogMockInterval
}

func (b *ActuatorAnalogMock) Implements(iface cbox.InterfaceID) any {
	return b.implements(iface)
}

// ActuatorPwm drives a digital actuator with a duty cycle.
type ActuatorPwm struct {
	analogActuator
	target *cbox.Ptr[*control.ActuatorDigitalConstrained]
	pwm    *control.ActuatorPwm
}

func NewActuatorPwm(env *Env) *ActuatorPwm {
	target := lookup[*control.ActuatorDigitalConstrained](env, IfaceActuatorDigitalConstrained)
	pwm := control.NewActuatorPwm(asLookup(target), control.DefaultPwmPeriod)
	return &ActuatorPwm{
		analogActuator: analogActuator{env: env, act: control.NewActuatorAnalogConstrained(pwm)},
		target:         target,
		pwm:            pwm,
	}
}

func (b *ActuatorPwm) TypeID() cbox.TypeID {
	return ActuatorPwmType
}

func (b *ActuatorPwm) Enabled() bool {
	return b.pwm.Enabled()
}

func (b *ActuatorPwm) SetEnabled(enabled bool) {
	b.pwm.SetEnabled(enabled)
}

func (b *ActuatorPwm) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "actuatorId"); ok {
		b.target.SetID(id)
	}
	if period, ok := readTicks(m, "period"); ok {
		b.pwm.SetPeriod(period)
	}
	readEnabled(m, b)
	b.read(m)
	return nil
}

func (b *ActuatorPwm) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("actuatorId", int64(b.target.ID()))
	m.SetInt("period", int64(b.pwm.Period()))
	m.SetBool("enabled", b.pwm.Enabled())
	b.write(m, runtime)
	return m
}

func (b *ActuatorPwm) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *ActuatorPwm) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *ActuatorPwm) Update(now cbox.Ticks) cbox.Ticks {
	b.act.Update()
	return b.pwm.Update(now)
}

func (b *ActuatorPwm) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceEnabler {
		return Enabler(b)
	}
	return b.implements(iface)
}

var offsetReferenceNames = []string{"setting", "value"}

// ActuatorOffset keeps a target setpoint at an offset from a reference
// setpoint.
type ActuatorOffset struct {
	analogActuator
	target    *cbox.Ptr[control.ProcessValue]
	reference *cbox.Ptr[control.ProcessValue]
	offset    *control.ActuatorOffset
}

func NewActuatorOffset(env *Env) *ActuatorOffset {
	target := lookup[control.ProcessValue](env, IfaceProcessValue)
	reference := lookup[control.ProcessValue](env, IfaceProcessValue)
	offset := control.NewActuatorOffset(asLookup(target), asLookup(reference))
	return &ActuatorOffset{
		analogActuator: analogActuator{env: env, act: control.NewActuatorAnalogConstrained(offset)},
		target:         target,
		reference:      reference,
		offset:         offset,
	}
}

func (b *ActuatorOffset) TypeID() cbox.TypeID {
	return ActuatorOffsetType
}

func (b *ActuatorOffset) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "targetId"); ok {
		b.target.SetID(id)
	}
	if id, ok := readID(m, "referenceId"); ok {
		b.reference.SetID(id)
	}
	if ref, ok := readEnum(m, "referenceSettingOrValue", offsetReferenceNames); ok {
		b.offset.ReferenceSettingOrValue = control.OffsetReference(ref)
	}
	readEnabled(m, b.offset)
	b.read(m)
	return nil
}

func (b *ActuatorOffset) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("targetId", int64(b.target.ID()))
	m.SetInt("referenceId", int64(b.reference.ID()))
	m.SetString("referenceSettingOrValue", offsetReferenceNames[b.offset.ReferenceSettingOrValue])
	m.SetBool("enabled", b.offset.Enabled())
	b.write(m, runtime)
	return m
}

func (b *ActuatorOffset) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *ActuatorOffset) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *ActuatorOffset) Update(now cbox.Ticks) cbox.Ticks {
	b.act.Update()
	return b.offset.Update(now)
}

func (b *ActuatorOffset) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceEnabler {
		return Enabler(b.offset)
	}
	return b.implements(iface)
}
