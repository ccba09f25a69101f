package control

import (
	"math"

	"github.com/asecurityteam/rolling"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/fp"
	"github.com/markusressel/controlbox/internal/util"
)

// FilterSizes maps a filter choice to the number of samples in the moving
// average.
var FilterSizes = []int{1, 5, 10, 20, 40, 80}

const SetpointSensorPairInterval Ticks = 1000

// SetpointSensorPair pairs a setting with a filtered sensor value.
type SetpointSensorPair struct {
	sensor Lookup[TempSensor]

	setting         fp.Value
	enabled         bool
	value           fp.Value
	valueUnfiltered fp.Value
	valueValid      bool
	derivative      fp.Value

	filterChoice    uint8
	filterThreshold fp.Value
	window          *rolling.PointPolicy
	interval        cbox.IntervalHelper
}

// NewSetpointSensorPair creates a pair that samples its sensor once per
// second.
func NewSetpointSensorPair(sensor Lookup[TempSensor]) *SetpointSensorPair {
	return &SetpointSensorPair{
		sensor:          sensor,
		filterThreshold: fp.FromInt(5),
		interval:        cbox.NewIntervalHelper(SetpointSensorPairInterval),
	}
}

func (s *SetpointSensorPair) SetSensor(sensor Lookup[TempSensor]) {
	s.sensor = sensor
}

func (s *SetpointSensorPair) Setting() fp.Value {
	return s.setting
}

func (s *SetpointSensorPair) SetSetting(setting fp.Value) {
	s.setting = setting
}

// SettingValid reports whether the setpoint is enabled.
func (s *SetpointSensorPair) SettingValid() bool {
	return s.enabled
}

func (s *SetpointSensorPair) SetSettingValid(valid bool) {
	s.enabled = valid
}

func (s *SetpointSensorPair) Value() fp.Value {
	return s.value
}

func (s *SetpointSensorPair) ValueUnfiltered() fp.Value {
	return s.valueUnfiltered
}

func (s *SetpointSensorPair) ValueValid() bool {
	return s.valueValid
}

// Derivative returns the change of the filtered value per sample, which is
// per second.
func (s *SetpointSensorPair) Derivative() fp.Value {
	return s.derivative
}

func (s *SetpointSensorPair) FilterChoice() uint8 {
	return s.filterChoice
}

// SetFilter selects the moving average size and the step size at which the
// filter is reset to follow a sudden change.
func (s *SetpointSensorPair) SetFilter(choice uint8, threshold fp.Value) {
	if int(choice) >= len(FilterSizes) {
		choice = uint8(len(FilterSizes) - 1)
	}
	if choice != s.filterChoice {
		s.window = nil
	}
	s.filterChoice = choice
	s.filterThreshold = threshold
}

func (s *SetpointSensorPair) FilterThreshold() fp.Value {
	return s.filterThreshold
}

// ResetFilter fills the filter with value.
func (s *SetpointSensorPair) ResetFilter(value fp.Value) {
	size := FilterSizes[s.filterChoice]
	s.window = util.CreateRollingWindow(size)
	for i := 0; i < size; i++ {
		s.window.Append(value.Float())
	}
}

func (s *SetpointSensorPair) Update(now Ticks) Ticks {
	return s.interval.Update(now, s.sample)
}

func (s *SetpointSensorPair) sample() {
	sensor, ok := s.sensor.get()
	if !ok || sensor == nil || !sensor.Valid() {
		s.valueValid = false
		s.window = nil
		s.derivative = fp.Zero
		return
	}

	raw := sensor.Value()
	wasValid := s.valueValid && s.window != nil
	if !wasValid || raw.Sub(s.value).Abs() > s.filterThreshold {
		s.ResetFilter(raw)
		wasValid = false
	}
	s.window.Append(raw.Float())
	filtered := s.window.Reduce(rolling.Avg)
	if math.IsNaN(filtered) {
		filtered = raw.Float()
	}

	value := fp.FromFloat(filtered)
	if wasValid {
		s.derivative = value.Sub(s.value)
	} else {
		s.derivative = fp.Zero
	}
	s.value = value
	s.valueUnfiltered = raw
	s.valueValid = true
}
