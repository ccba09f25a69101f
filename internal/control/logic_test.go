package control

import (
	"testing"

	"github.com/markusressel/controlbox/internal/fp"
	"github.com/stretchr/testify/assert"
)

func TestLogicOp(t *testing.T) {
	values := []bool{true, false, true}
	assert.True(t, LogicOr.apply(values))
	assert.False(t, LogicAnd.apply(values))
	assert.False(t, LogicNor.apply(values))
	assert.True(t, LogicNand.apply(values))
	assert.False(t, LogicXor.apply(values))
	assert.True(t, LogicXor.apply([]bool{true, false}))
}

func TestActuatorLogic_Update(t *testing.T) {
	// GIVEN
	array := newMockIoArray(4)
	first := newConstrained(array, 1, 100)
	second := newConstrained(array, 2, 101)
	target := newConstrained(array, 3, 102)
	first.SetDesiredState(Active, 0)
	second.SetDesiredState(Inactive, 0)
	pv := &fakeInput{value: fp.FromInt(30), valid: true}

	logic := NewActuatorLogic(Fixed(target))
	logic.CombineOp = LogicAnd
	logic.Sections = []LogicSection{
		{Op: LogicOr, Digitals: []Lookup[*ActuatorDigitalConstrained]{Fixed(first), Fixed(second)}},
		{Analog: Fixed[ProcessValue](pv), Compare: CompareGreaterThan, Threshold: fp.FromInt(25)},
	}

	// WHEN
	logic.Update(0)

	// THEN
	result, valid := logic.Result()
	assert.True(t, valid)
	assert.True(t, result)
	assert.Equal(t, Active, target.State())

	// WHEN
	pv.value = fp.FromInt(20)
	logic.Update(100)

	// THEN
	assert.Equal(t, Inactive, target.State())
}

func TestActuatorLogic_InvalidAnalogIsFalse(t *testing.T) {
	// GIVEN
	pv := &fakeInput{value: fp.FromInt(30), valid: false}
	logic := NewActuatorLogic(Missing[*ActuatorDigitalConstrained]())
	logic.Sections = []LogicSection{
		{Analog: Fixed[ProcessValue](pv), Compare: CompareGreaterThan, Threshold: fp.FromInt(25)},
	}

	// WHEN
	logic.Update(0)

	// THEN
	result, valid := logic.Result()
	assert.False(t, result)
	assert.False(t, valid)
}

func TestActuatorOffset(t *testing.T) {
	// GIVEN
	reference := &fakeInput{setting: fp.FromInt(20), value: fp.FromInt(19), valid: true}
	target := &fakeInput{value: fp.FromInt(24), valid: true}
	offset := NewActuatorOffset(Fixed[ProcessValue](target), Fixed[ProcessValue](reference))
	offset.SetSetting(fp.FromInt(5))
	offset.SetSettingValid(true)

	// WHEN
	offset.Update(0)

	// THEN
	assert.Equal(t, fp.FromInt(25), target.setting)
	assert.True(t, offset.ValueValid())
	assert.Equal(t, fp.FromInt(4), offset.Value())

	// WHEN
	offset.ReferenceSettingOrValue = ReferenceValue
	offset.Update(1000)

	// THEN
	assert.Equal(t, fp.FromInt(24), target.setting)
	assert.Equal(t, fp.FromInt(5), offset.Value())
}

func TestActuatorOffset_InvalidReference(t *testing.T) {
	// GIVEN
	reference := &fakeInput{setting: fp.FromInt(20), valid: false}
	target := &fakeInput{valid: true}
	offset := NewActuatorOffset(Fixed[ProcessValue](target), Fixed[ProcessValue](reference))
	offset.SetSettingValid(true)

	// WHEN
	offset.Update(0)

	// THEN
	assert.False(t, target.valid)
	assert.False(t, offset.ValueValid())
}
