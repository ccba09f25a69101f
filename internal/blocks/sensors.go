package blocks

import (
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
	"github.com/markusressel/controlbox/internal/fp"
	"github.com/markusressel/controlbox/internal/util"
)

const (
	tempSensorMockInterval cbox.Ticks = 100
	tempSensorInterval     cbox.Ticks = 1000
)

// TempSensorMock is a sensor whose value is written through the protocol,
// optionally with triangle wave fluctuations on top.
type TempSensorMock struct {
	sensor *control.TempSensorMock
}

func NewTempSensorMock() *TempSensorMock {
	return &TempSensorMock{sensor: control.NewTempSensorMock(fp.FromInt(20))}
}

func (b *TempSensorMock) TypeID() cbox.TypeID {
	return TempSensorMockType
}

func (b *TempSensorMock) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if setting, ok := m.Value("setting"); ok {
		b.sensor.SetSetting(setting)
	}
	if connected, ok := m.Bool("connected"); ok {
		b.sensor.SetConnected(connected)
	}
	if items, ok := m.List("fluctuations"); ok {
		fluctuations := make([]control.Fluctuation, 0, len(items))
		for _, item := range items {
			amplitude, _ := item.Value("amplitude")
			period, _ := readTicks(item, "period")
			fluctuations = append(fluctuations, control.Fluctuation{Amplitude: amplitude, Period: period})
		}
		b.sensor.SetFluctuations(fluctuations)
	}
	return nil
}

func (b *TempSensorMock) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetValue("setting", b.sensor.Setting())
	m.SetBool("connected", b.sensor.Connected())
	items := make([]*codec.Message, 0, len(b.sensor.Fluctuations()))
	for _, f := range b.sensor.Fluctuations() {
		item := codec.NewMessage()
		item.SetValue("amplitude", f.Amplitude)
		item.SetInt("period", int64(f.Period))
		items = append(items, item)
	}
	m.SetList("fluctuations", items)
	if runtime {
		m.SetValidValue("value", b.sensor.Value(), b.sensor.Valid())
	}
	return m
}

func (b *TempSensorMock) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *TempSensorMock) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *TempSensorMock) Update(now cbox.Ticks) cbox.Ticks {
	b.sensor.Update(now)
	return now + tempSensorMockInterval
}

func (b *TempSensorMock) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceTempSensor {
		return b.sensor
	}
	return nil
}

var combineFuncNames = []string{"AVG", "MIN", "MAX"}

// TempSensorCombi combines the values of several other sensors.
type TempSensorCombi struct {
	env     *Env
	sensors []*cbox.Ptr[control.TempSensor]
	combi   *control.TempSensorCombi
}

func NewTempSensorCombi(env *Env) *TempSensorCombi {
	return &TempSensorCombi{
		env:   env,
		combi: control.NewTempSensorCombi(control.CombineAvg),
	}
}

func (b *TempSensorCombi) TypeID() cbox.TypeID {
	return TempSensorCombiType
}

func (b *TempSensorCombi) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if fn, ok := readEnum(m, "combineFunc", combineFuncNames); ok {
		b.combi.Func = control.CombineFunc(fn)
	}
	if ids, ok := m.IntList("sensors"); ok {
		b.sensors = b.sensors[:0]
		lookups := make([]control.Lookup[control.TempSensor], 0, len(ids))
		for _, id := range ids {
			ptr := lookup[control.TempSensor](b.env, IfaceTempSensor)
			ptr.SetID(cbox.ObjectID(id))
			b.sensors = append(b.sensors, ptr)
			lookups = append(lookups, asLookup(ptr))
		}
		b.combi.SetSensors(lookups)
	}
	return nil
}

func (b *TempSensorCombi) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetString("combineFunc", combineFuncNames[b.combi.Func])
	ids := make([]int64, 0, len(b.sensors))
	for _, ptr := range b.sensors {
		ids = append(ids, int64(ptr.ID()))
	}
	m.SetIntList("sensors", ids)
	if runtime {
		m.SetValidValue("value", b.combi.Value(), b.combi.Valid())
	}
	return m
}

func (b *TempSensorCombi) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *TempSensorCombi) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *TempSensorCombi) Update(now cbox.Ticks) cbox.Ticks {
	b.combi.Update()
	return now + tempSensorInterval
}

func (b *TempSensorCombi) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceTempSensor {
		return b.combi
	}
	return nil
}

// TempSensorFile reads a temperature from a file containing an integer,
// like the temp*_input files of the hwmon sysfs interface.
type TempSensorFile struct {
	path    string
	divider int64
	offset  fp.Value

	value fp.Value
	valid bool
}

func NewTempSensorFile() *TempSensorFile {
	return &TempSensorFile{divider: 1000}
}

func (b *TempSensorFile) TypeID() cbox.TypeID {
	return TempSensorFileType
}

func (b *TempSensorFile) Value() fp.Value {
	return b.value
}

func (b *TempSensorFile) Valid() bool {
	return b.valid
}

func (b *TempSensorFile) StreamFrom(in io.Reader) error {
	m, err := decode(in)
	if err != nil {
		return err
	}
	if path, ok := m.String("path"); ok {
		b.path = path
		b.valid = false
	}
	if divider, ok := m.Int("divider"); ok && divider > 0 {
		b.divider = divider
	}
	if offset, ok := m.Value("offset"); ok {
		b.offset = offset
	}
	return nil
}

func (b *TempSensorFile) message(runtime bool) *codec.Message {
	m := codec.NewMessage()
	m.SetString("path", b.path)
	m.SetInt("divider", b.divider)
	m.SetValue("offset", b.offset)
	if runtime {
		m.SetValidValue("value", b.value, b.valid)
	}
	return m
}

func (b *TempSensorFile) StreamTo(out io.Writer) error {
	return encode(b.message(true), out)
}

func (b *TempSensorFile) StreamPersistedTo(out io.Writer) error {
	return encode(b.message(false), out)
}

func (b *TempSensorFile) Update(now cbox.Ticks) cbox.Ticks {
	b.valid = false
	if b.path != "" {
		raw, err := util.ReadIntFromFile(b.path)
		if err == nil {
			b.value = fp.FromFloat(float64(raw) / float64(b.divider)).Add(b.offset)
			b.valid = true
		}
	}
	return now + tempSensorInterval
}

func (b *TempSensorFile) Implements(iface cbox.InterfaceID) any {
	if iface == IfaceTempSensor {
		return b
	}
	return nil
}
