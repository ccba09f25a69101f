package blocks

import (
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
	"github.com/markusressel/controlbox/internal/fp"
)

// SetpointSensorPair combines a sensor with a setting. storedSetting is
// what was written by the user, setting can be overridden by a profile.
type SetpointSensorPair struct {
	sensor        *cbox.Ptr[control.TempSensor]
	pair          *control.SetpointSensorPair
	storedSetting fp.Value
}

func NewSetpointSensorPair(env *Env) *SetpointSensorPair {
	sensor := lookup[control.TempSensor](env, IfaceTempSensor)
	return &SetpointSensorPair{
		sensor: sensor,
		pair:   control.NewSetpointSensorPair(asLookup(sensor)),
	}
}

func (b *SetpointSensorPair) TypeID() cbox.TypeID {
	return SetpointSensorPairType
}

func (b *SetpointSensorPair) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "sensorId"); ok {
		b.sensor.SetID(id)
	}
	if setting, ok := m.Value("storedSetting"); ok {
		b.storedSetting = setting
		b.pair.SetSetting(setting)
	}
	if enabled, ok := m.Bool("enabled"); ok {
		b.pair.SetSettingValid(enabled)
	}
	choice := b.pair.FilterChoice()
	threshold := b.pair.FilterThreshold()
	filterChanged := false
	if n, ok := m.Int("filter"); ok && n >= 0 {
		choice = uint8(n)
		filterChanged = true
	}
	if v, ok := m.Value("filterThreshold"); ok {
		threshold = v
		filterChanged = true
	}
	if filterChanged {
		b.pair.SetFilter(choice, threshold)
	}
	return nil
}

func (b *SetpointSensorPair) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("sensorId", int64(b.sensor.ID()))
	m.SetValue("storedSetting", b.storedSetting)
	m.SetBool("enabled", b.pair.SettingValid())
	m.SetInt("filter", int64(b.pair.FilterChoice()))
	m.SetValue("filterThreshold", b.pair.FilterThreshold())
	if runtime {
		m.SetValidValue("setting", b.pair.Setting(), b.pair.SettingValid())
		m.SetValidValue("value", b.pair.Value(), b.pair.ValueValid())
		m.SetValidValue("valueUnfiltered", b.pair.ValueUnfiltered(), b.pair.ValueValid())
		m.SetValidValue("derivative", b.pair.Derivative(), b.pair.ValueValid())
	}
	return m
}

func (b *SetpointSensorPair) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *SetpointSensorPair) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *SetpointSensorPair) Update(now cbox.Ticks) cbox.Ticks {
	return b.pair.Update(now)
}

func (b *SetpointSensorPair) Enabled() bool {
	return b.pair.SettingValid()
}

func (b *SetpointSensorPair) SetEnabled(enabled bool) {
	b.pair.SetSettingValid(enabled)
}

func (b *SetpointSensorPair) Implements(iface cbox.InterfaceID) any {
	switch iface {
	case IfaceSetpointSensorPair:
		return b.pair
	case IfaceProcessValue:
		return control.ProcessValue(b.pair)
	case IfacePidInput:
		return control.PidInput(b.pair)
	case IfaceEnabler:
		return Enabler(b)
	}
	return nil
}

// SetpointProfile drives the setting of a setpoint along a list of points,
// using the device time of the Ticks system object.
type SetpointProfile struct {
	target  *cbox.Ptr[control.ProcessValue]
	profile *control.SetpointProfile
}

func NewSetpointProfile(env *Env) *SetpointProfile {
	target := lookup[control.ProcessValue](env, IfaceProcessValue)
	utc := lookup[control.UtcSource](env, IfaceUtcSource)
	utc.SetID(TicksID)
	return &SetpointProfile{
		target:  target,
		profile: control.NewSetpointProfile(asLookup(target), asLookup(utc)),
	}
}

func (b *SetpointProfile) TypeID() cbox.TypeID {
	return SetpointProfileType
}

func (b *SetpointProfile) Profile() *control.SetpointProfile {
	return b.profile
}

func (b *SetpointProfile) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if id, ok := readID(m, "targetId"); ok {
		b.target.SetID(id)
	}
	if start, ok := m.Int("start"); ok {
		b.profile.SetStart(start)
	}
	readEnabled(m, b.profile)
	if items, ok := m.List("points"); ok {
		points := make([]control.ProfilePoint, 0, len(items))
		for _, item := range items {
			t, _ := item.Int("time")
			temperature, _ := item.Value("temperature")
			points = append(points, control.ProfilePoint{Time: t, Temperature: temperature})
		}
		b.profile.SetPoints(points)
	}
	return nil
}

func (b *SetpointProfile) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetInt("targetId", int64(b.target.ID()))
	m.SetInt("start", b.profile.Start())
	m.SetBool("enabled", b.profile.Enabled())
	items := make([]*codec.Message, 0, len(b.profile.Points()))
	for _, point := range b.profile.Points() {
		item := codec.NewMessage()
		item.SetInt("time", point.Time)
		item.SetValue("temperature", point.Temperature)
		items = append(items, item)
	}
	m.SetList("points", items)
	if runtime {
		m.SetBool("drivingTarget", b.profile.IsDriving())
	}
	return m
}

func (b *SetpointProfile) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *SetpointProfile) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *SetpointProfile) Update(now cbox.Ticks) cbox.Ticks {
	return b.profile.Update(now)
}

func (b *SetpointProfile) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceEnabler {
		return Enabler(b.profile)
	}
	return nil
}
