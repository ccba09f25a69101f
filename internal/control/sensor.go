package control

import "github.com/markusressel/controlbox/internal/fp"

// TempSensor is a temperature input.
type TempSensor interface {
	Value() fp.Value
	Valid() bool
}

// TempSensorMock is a sensor with a settable value, optionally fluctuating
// around it.
type TempSensorMock struct {
	setting      fp.Value
	connected    bool
	fluctuations []Fluctuation
	value        fp.Value
}

// Fluctuation adds a triangle wave with the given amplitude and period.
type Fluctuation struct {
	Amplitude fp.Value
	Period    Ticks
}

func NewTempSensorMock(setting fp.Value) *TempSensorMock {
	return &TempSensorMock{
		setting:   setting,
		connected: true,
		value:     setting,
	}
}

func (s *TempSensorMock) Setting() fp.Value {
	return s.setting
}

func (s *TempSensorMock) SetSetting(setting fp.Value) {
	s.setting = setting
	s.value = setting
}

func (s *TempSensorMock) Connected() bool {
	return s.connected
}

func (s *TempSensorMock) SetConnected(connected bool) {
	s.connected = connected
}

func (s *TempSensorMock) Fluctuations() []Fluctuation {
	return s.fluctuations
}

func (s *TempSensorMock) SetFluctuations(fluctuations []Fluctuation) {
	s.fluctuations = fluctuations
}

func (s *TempSensorMock) Value() fp.Value {
	return s.value
}

func (s *TempSensorMock) Valid() bool {
	return s.connected
}

func (s *TempSensorMock) Update(now Ticks) {
	value := s.setting
	for _, f := range s.fluctuations {
		if f.Period <= 0 {
			continue
		}
		// triangle wave between -amplitude and +amplitude
		phase := float64(now%f.Period) / float64(f.Period)
		var wave float64
		if phase < 0.5 {
			wave = 4*phase - 1
		} else {
			wave = 3 - 4*phase
		}
		value = value.Add(f.Amplitude.Scale(wave))
	}
	s.value = value
}

type CombineFunc uint8

const (
	CombineAvg CombineFunc = iota
	CombineMin
	CombineMax
)

// TempSensorCombi combines several sensors. Invalid sensors are ignored, the
// result is invalid when none of them is valid.
type TempSensorCombi struct {
	Func    CombineFunc
	sensors []Lookup[TempSensor]
	value   fp.Value
	valid   bool
}

func NewTempSensorCombi(fn CombineFunc) *TempSensorCombi {
	return &TempSensorCombi{Func: fn}
}

func (s *TempSensorCombi) SetSensors(sensors []Lookup[TempSensor]) {
	s.sensors = sensors
}

func (s *TempSensorCombi) Value() fp.Value {
	return s.value
}

func (s *TempSensorCombi) Valid() bool {
	return s.valid
}

func (s *TempSensorCombi) Update() {
	var result fp.Wide
	count := 0
	for _, lookup := range s.sensors {
		sensor, ok := lookup.get()
		if !ok || sensor == nil || !sensor.Valid() {
			continue
		}
		v := sensor.Value()
		switch {
		case count == 0:
			result = fp.Wide(v)
		case s.Func == CombineMin:
			result = fp.Wide(fp.Min(result.Value(), v))
		case s.Func == CombineMax:
			result = fp.Wide(fp.Max(result.Value(), v))
		default:
			result = result.Add(v)
		}
		count++
	}
	s.valid = count > 0
	if !s.valid {
		return
	}
	if s.Func == CombineAvg {
		s.value = fp.FromRaw(int64(result) / int64(count))
	} else {
		s.value = result.Value()
	}
}
