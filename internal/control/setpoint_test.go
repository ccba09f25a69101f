package control

import (
	"testing"

	"github.com/markusressel/controlbox/internal/fp"
	"github.com/stretchr/testify/assert"
)

func TestSetpointSensorPair_Filter(t *testing.T) {
	// GIVEN
	sensor := NewTempSensorMock(fp.FromInt(20))
	pair := NewSetpointSensorPair(Fixed[TempSensor](sensor))
	pair.SetFilter(1, fp.FromInt(5))
	pair.Update(0)

	// WHEN
	sensor.SetSetting(fp.FromInt(21))
	pair.Update(1000)

	// THEN
	assert.True(t, pair.ValueValid())
	assert.Equal(t, fp.FromInt(21), pair.ValueUnfiltered())
	assert.InDelta(t, 20.2, pair.Value().Float(), 0.001)
	assert.InDelta(t, 0.2, pair.Derivative().Float(), 0.001)
}

func TestSetpointSensorPair_StepResetsFilter(t *testing.T) {
	// GIVEN
	sensor := NewTempSensorMock(fp.FromInt(20))
	pair := NewSetpointSensorPair(Fixed[TempSensor](sensor))
	pair.SetFilter(3, fp.FromInt(2))
	pair.Update(0)

	// WHEN
	sensor.SetSetting(fp.FromInt(30))
	pair.Update(1000)

	// THEN
	assert.Equal(t, fp.FromInt(30), pair.Value())
	assert.Equal(t, fp.Zero, pair.Derivative())
}

func TestSetpointSensorPair_InvalidSensor(t *testing.T) {
	// GIVEN
	sensor := NewTempSensorMock(fp.FromInt(20))
	pair := NewSetpointSensorPair(Fixed[TempSensor](sensor))
	pair.Update(0)

	// WHEN
	sensor.SetConnected(false)
	pair.Update(1000)

	// THEN
	assert.False(t, pair.ValueValid())
}

func TestSetpointSensorPair_MissingSensor(t *testing.T) {
	// GIVEN
	pair := NewSetpointSensorPair(Missing[TempSensor]())

	// WHEN
	pair.Update(0)

	// THEN
	assert.False(t, pair.ValueValid())
}

func TestTempSensorCombi(t *testing.T) {
	// GIVEN
	first := NewTempSensorMock(fp.FromInt(20))
	second := NewTempSensorMock(fp.FromInt(25))
	third := NewTempSensorMock(fp.FromInt(99))
	third.SetConnected(false)
	combi := NewTempSensorCombi(CombineAvg)
	combi.SetSensors([]Lookup[TempSensor]{
		Fixed[TempSensor](first),
		Fixed[TempSensor](second),
		Fixed[TempSensor](third),
		Missing[TempSensor](),
	})

	// WHEN
	combi.Update()
	avg := combi.Value()
	combi.Func = CombineMin
	combi.Update()
	min := combi.Value()
	combi.Func = CombineMax
	combi.Update()
	max := combi.Value()

	// THEN
	assert.True(t, combi.Valid())
	assert.Equal(t, fp.FromFloat(22.5), avg)
	assert.Equal(t, fp.FromInt(20), min)
	assert.Equal(t, fp.FromInt(25), max)
}

func TestTempSensorCombi_NoValidSensors(t *testing.T) {
	// GIVEN
	combi := NewTempSensorCombi(CombineMax)
	combi.SetSensors([]Lookup[TempSensor]{Missing[TempSensor]()})

	// WHEN
	combi.Update()

	// THEN
	assert.False(t, combi.Valid())
}

func TestTempSensorMock_Fluctuations(t *testing.T) {
	// GIVEN
	sensor := NewTempSensorMock(fp.FromInt(20))
	sensor.SetFluctuations([]Fluctuation{{Amplitude: fp.FromInt(2), Period: 1000}})

	// WHEN
	sensor.Update(0)
	low := sensor.Value()
	sensor.Update(500)
	high := sensor.Value()

	// THEN
	assert.Equal(t, fp.FromInt(18), low)
	assert.Equal(t, fp.FromInt(22), high)
}
