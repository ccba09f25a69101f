package control

import (
	"testing"

	"github.com/markusressel/controlbox/internal/fp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActuatorAnalogConstrained_MinMax(t *testing.T) {
	// GIVEN
	mock := NewActuatorAnalogMock()
	act := NewActuatorAnalogConstrained(mock)
	act.AddConstraint(&Maximum{Max: fp.FromInt(80)})
	act.AddConstraint(&Minimum{Min: fp.FromInt(10)})

	// WHEN
	act.SetSetting(fp.FromInt(90))

	// THEN
	assert.Equal(t, fp.FromInt(80), act.Setting())
	assert.Equal(t, fp.FromInt(90), act.DesiredSetting())
	assert.Equal(t, uint8(0b10), act.Limiting())

	// WHEN
	act.SetSetting(fp.FromInt(5))

	// THEN
	assert.Equal(t, fp.FromInt(10), act.Setting())
	assert.Equal(t, uint8(0b01), act.Limiting())
}

func TestActuatorAnalogConstrained_ActuatorClipsFirst(t *testing.T) {
	// GIVEN
	mock := NewActuatorAnalogMock()
	mock.MaxSetting = fp.FromInt(50)
	act := NewActuatorAnalogConstrained(mock)
	act.AddConstraint(&Maximum{Max: fp.FromInt(60)})

	// WHEN
	act.SetSetting(fp.FromInt(70))

	// THEN
	assert.Equal(t, fp.FromInt(50), act.DesiredSetting())
	assert.Equal(t, fp.FromInt(50), act.Setting())
	assert.Equal(t, uint8(0), act.Limiting())
}

func TestBalancer_UnderBudget(t *testing.T) {
	// GIVEN
	b := NewBalancer()
	first := b.Register()
	second := b.Register()
	b.Constrain(first, fp.FromInt(20), fp.FromInt(20))
	b.Constrain(second, fp.FromInt(40), fp.FromInt(40))

	// WHEN
	b.Update()

	// THEN
	assert.Equal(t, fp.FromInt(40), b.Granted(first))
	assert.Equal(t, fp.FromInt(60), b.Granted(second))
}

func TestBalancer_OverBudget(t *testing.T) {
	// GIVEN
	b := NewBalancer()
	first := b.Register()
	second := b.Register()
	b.Constrain(first, fp.FromInt(100), fp.FromInt(100))
	b.Constrain(second, fp.FromInt(50), fp.FromInt(50))

	// WHEN
	b.Update()

	// THEN
	assert.InDelta(t, 66.67, b.Granted(first).Float(), 0.01)
	assert.InDelta(t, 33.33, b.Granted(second).Float(), 0.01)
	assert.LessOrEqual(t, b.Granted(first).Add(b.Granted(second)).Raw(), fp.FromInt(100).Raw())
}

func TestBalancer_Conservation(t *testing.T) {
	requests := [][]float64{
		{10, 20, 30},
		{33.3, 33.3, 33.3},
		{100, 100, 100},
		{0, 0, 99.9},
		{70.1, 12.7, 45.3, 8.9},
	}
	for _, set := range requests {
		// GIVEN
		b := NewBalancer()
		var ids []uint8
		total := 0.0
		for _, r := range set {
			id := b.Register()
			b.Constrain(id, fp.FromFloat(r), fp.FromFloat(r))
			ids = append(ids, id)
			total += r
		}

		// WHEN
		b.Update()

		// THEN
		sum := int64(0)
		for i, id := range ids {
			sum += b.Granted(id).Raw()
			if total <= 100 {
				assert.GreaterOrEqual(t, b.Granted(id).Raw(), fp.FromFloat(set[i]).Raw())
			}
		}
		assert.LessOrEqual(t, sum, fp.FromInt(100).Raw(), "requests %v", set)
	}
}

func TestBalancer_ReusesIds(t *testing.T) {
	// GIVEN
	b := NewBalancer()
	first := b.Register()
	b.Register()

	// WHEN
	b.Unregister(first)
	reused := b.Register()

	// THEN
	assert.Equal(t, uint8(1), reused)
	assert.Len(t, b.Clients(), 2)
}

func TestBalanced_Constraint(t *testing.T) {
	// GIVEN
	balancer := NewBalancer()
	first := NewActuatorAnalogConstrained(NewActuatorAnalogMock())
	second := NewActuatorAnalogConstrained(NewActuatorAnalogMock())
	firstConstraint := NewBalanced(Fixed(balancer))
	first.AddConstraint(firstConstraint)
	second.AddConstraint(NewBalanced(Fixed(balancer)))
	first.SetSettingValid(true)
	second.SetSettingValid(true)

	// WHEN
	first.SetSetting(fp.FromInt(80))
	second.SetSetting(fp.FromInt(80))
	balancer.Update()
	first.Update()
	second.Update()

	// THEN
	assert.Equal(t, fp.FromInt(50), first.Setting())
	assert.Equal(t, fp.FromInt(50), second.Setting())
	assert.Equal(t, uint8(1), first.Limiting())
	assert.Equal(t, uint8(1), firstConstraint.BalancerID())

	// WHEN
	first.ClearConstraints()

	// THEN
	require.Len(t, balancer.Clients(), 1)
}

func TestBalanced_InvalidSettingRequestsNothing(t *testing.T) {
	// GIVEN
	balancer := NewBalancer()
	first := NewActuatorAnalogConstrained(NewActuatorAnalogMock())
	second := NewActuatorAnalogConstrained(NewActuatorAnalogMock())
	firstConstraint := NewBalanced(Fixed(balancer))
	first.AddConstraint(firstConstraint)
	second.AddConstraint(NewBalanced(Fixed(balancer)))
	second.SetSettingValid(true)

	// WHEN
	first.SetSetting(fp.FromInt(80))
	second.SetSetting(fp.FromInt(80))
	balancer.Update()
	second.Update()

	// THEN
	for _, client := range balancer.Clients() {
		if client.ID == firstConstraint.BalancerID() {
			assert.Equal(t, fp.Zero, client.Requested)
		} else {
			assert.Equal(t, fp.FromInt(80), client.Requested)
		}
	}
	assert.Equal(t, fp.FromInt(80), second.Setting())
}
