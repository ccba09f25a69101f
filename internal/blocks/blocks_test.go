package blocks

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_PersistedRoundTrip(t *testing.T) {
	env, _ := newTestContainer()
	for _, entry := range Factory(env).Entries() {
		t.Run(entry.Name, func(t *testing.T) {
			// GIVEN
			obj := entry.New()
			var persisted bytes.Buffer
			require.NoError(t, obj.StreamPersistedTo(&persisted))

			// WHEN
			restored := entry.New()
			err := restored.StreamFrom(bytes.NewReader(persisted.Bytes()))

			// THEN
			assert.NoError(t, err)
			assert.Equal(t, entry.Type, restored.TypeID())
			var again bytes.Buffer
			require.NoError(t, restored.StreamPersistedTo(&again))
			assert.Equal(t, persisted.Bytes(), again.Bytes())
		})
	}
}

func TestFactory_UnknownType(t *testing.T) {
	// GIVEN
	env, _ := newTestContainer()

	// WHEN
	_, err := Factory(env).Make(9999)

	// THEN
	assert.Equal(t, cbox.ErrObjectNotCreatable, err)
}

func TestTypeNames(t *testing.T) {
	// GIVEN
	env, _ := newTestContainer()

	// WHEN
	names := TypeNames(env)

	// THEN
	assert.Equal(t, PidType, names["Pid"])
	assert.Equal(t, TicksType, names["Ticks"])
	assert.Len(t, names, 18)
}

func TestBlocks_PidControlsActuator(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, TempSensorMockType, 100, 0x01, map[string]interface{}{"setting": 20})
	create(t, c, SetpointSensorPairType, 101, 0x01, map[string]interface{}{
		"sensorId": 100, "storedSetting": 21, "enabled": true,
	})
	create(t, c, ActuatorAnalogMockType, 102, 0x01, map[string]interface{}{})
	create(t, c, PidType, 103, 0x01, map[string]interface{}{
		"inputId": 101, "outputId": 102, "kp": 10, "ti": 0, "td": 0, "enabled": true,
	})

	// WHEN
	c.Update(0)

	// THEN
	pid := readObject(t, c, 103)
	active, _ := pid.Bool("active")
	assert.True(t, active)
	p, _ := pid.Float("p")
	assert.InDelta(t, 10, p, 0.01)

	actuator := readObject(t, c, 102)
	setting, ok := actuator.Float("setting")
	assert.True(t, ok)
	assert.InDelta(t, 10, setting, 0.01)
	value, _ := actuator.Float("value")
	assert.InDelta(t, 10, value, 0.01)
}

func TestBlocks_InvalidValuesAreStripped(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, TempSensorMockType, 100, 0x01, map[string]interface{}{"setting": 20, "connected": false})
	create(t, c, SetpointSensorPairType, 101, 0x01, map[string]interface{}{"sensorId": 100, "enabled": true})

	// WHEN
	c.Update(0)

	// THEN
	sensor := readObject(t, c, 100)
	assert.False(t, sensor.Has("value"))
	assert.Contains(t, sensor.Stripped(), "value")
	pair := readObject(t, c, 101)
	assert.Contains(t, pair.Stripped(), "value")
	assert.Contains(t, pair.Stripped(), "derivative")
}

func TestDigitalActuator_ClaimsChannelWithObjectID(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, MockPinsType, 100, 0x01, map[string]interface{}{})
	create(t, c, DigitalActuatorType, 101, 0x01, map[string]interface{}{
		"hwDevice": 100, "channel": 1, "desiredState": "Active",
	})

	// WHEN
	c.ForcedUpdate(0)

	// THEN
	actuator := readObject(t, c, 101)
	state, _ := actuator.String("state")
	assert.Equal(t, "Active", state)

	channels, _ := readObject(t, c, 100).List("channels")
	require.Len(t, channels, DefaultMockPinsChannels)
	owner, _ := channels[0].Int("owner")
	assert.Equal(t, int64(101), owner)
	config, _ := channels[0].String("config")
	assert.Equal(t, "ActiveHigh", config)
}

func TestDigitalActuator_ReleasesChannelOnRemove(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, MockPinsType, 100, 0x01, map[string]interface{}{})
	create(t, c, DigitalActuatorType, 101, 0x01, map[string]interface{}{
		"hwDevice": 100, "channel": 1, "desiredState": "Active",
	})
	c.ForcedUpdate(0)

	// WHEN
	err := c.Remove(101)

	// THEN
	assert.NoError(t, err)
	channels, _ := readObject(t, c, 100).List("channels")
	owner, _ := channels[0].Int("owner")
	assert.Equal(t, int64(0), owner)
	config, _ := channels[0].String("config")
	assert.Equal(t, "Unused", config)
}

func TestDigitalActuator_MinOnConstraint(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, MockPinsType, 100, 0x01, map[string]interface{}{})
	actuator := create(t, c, DigitalActuatorType, 101, 0x01, map[string]interface{}{
		"hwDevice": 100, "channel": 1, "desiredState": "Active",
		"constraints": []interface{}{
			map[string]interface{}{"type": "minOn", "value": 5000},
		},
	})
	c.ForcedUpdate(0)

	// WHEN
	write(t, actuator, map[string]interface{}{"desiredState": "Inactive"})
	c.ForcedUpdate(1000)

	// THEN
	m := readObject(t, c, 101)
	state, _ := m.String("state")
	assert.Equal(t, "Active", state)
	wait, _ := m.Int("waitRemaining")
	assert.Equal(t, int64(4000), wait)
	constraints, _ := m.List("constraints")
	require.Len(t, constraints, 1)
	limiting, _ := constraints[0].Bool("limiting")
	assert.True(t, limiting)
}

func TestDigitalActuator_PersistedWithoutRuntimeFields(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, MockPinsType, 100, 0x01, map[string]interface{}{})
	create(t, c, MutexType, 102, 0x01, map[string]interface{}{"differentActuatorWait": 1000})
	actuator := create(t, c, DigitalActuatorType, 101, 0x01, map[string]interface{}{
		"hwDevice": 100, "channel": 2,
		"constraints": []interface{}{
			map[string]interface{}{"type": "mutex", "mutexId": 102, "holdTime": 500},
		},
	})

	// WHEN
	var buf bytes.Buffer
	err := actuator.StreamPersistedTo(&buf)

	// THEN
	assert.NoError(t, err)
	restored := NewDigitalActuator(&Env{})
	require.NoError(t, restored.StreamFrom(&buf))
	m := read(t, restored)
	constraints, _ := m.List("constraints")
	require.Len(t, constraints, 1)
	mutexID, _ := constraints[0].Int("mutexId")
	assert.Equal(t, int64(102), mutexID)
	holdTime, _ := constraints[0].Int("holdTime")
	assert.Equal(t, int64(500), holdTime)
	channel, _ := m.Int("channel")
	assert.Equal(t, int64(2), channel)
}

func TestActuatorPwm_DrivesDigitalActuator(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, MockPinsType, 100, 0x01, map[string]interface{}{})
	create(t, c, DigitalActuatorType, 101, 0x01, map[string]interface{}{"hwDevice": 100, "channel": 1})
	create(t, c, ActuatorPwmType, 102, 0x01, map[string]interface{}{
		"actuatorId": 101, "period": 1000, "desiredSetting": 50, "enabled": true,
	})

	// WHEN
	seen := map[string]bool{}
	for now := cbox.Ticks(0); now < 20*cbox.Second; now += 10 {
		c.Update(now)
		state, _ := readObject(t, c, 101).String("state")
		seen[state] = true
	}

	// THEN
	assert.True(t, seen["Active"])
	assert.True(t, seen["Inactive"])
	value, ok := readObject(t, c, 102).Float("value")
	assert.True(t, ok)
	assert.InDelta(t, 50, value, 5)
}

func TestBalancer_LimitsActuators(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, BalancerType, 100, 0x01, map[string]interface{}{})
	for _, id := range []cbox.ObjectID{101, 102} {
		create(t, c, ActuatorAnalogMockType, id, 0x01, map[string]interface{}{
			"desiredSetting": 80,
			"constraints": []interface{}{
				map[string]interface{}{"type": "balanced", "balancerId": 100},
			},
		})
	}

	// WHEN
	c.Update(0)
	c.Update(cbox.Second)

	// THEN
	for _, id := range []cbox.ObjectID{101, 102} {
		m := readObject(t, c, id)
		setting, _ := m.Float("setting")
		assert.InDelta(t, 50, setting, 0.01)
		desired, _ := m.Float("desiredSetting")
		assert.InDelta(t, 80, desired, 0.01)
		constraints, _ := m.List("constraints")
		require.Len(t, constraints, 1)
		limiting, _ := constraints[0].Bool("limiting")
		assert.True(t, limiting)
	}
	clients, _ := readObject(t, c, 100).List("clients")
	assert.Len(t, clients, 2)
}

func TestBalancer_ReleasedOnRemove(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, BalancerType, 100, 0x01, map[string]interface{}{})
	create(t, c, ActuatorAnalogMockType, 101, 0x01, map[string]interface{}{
		"desiredSetting": 80,
		"constraints": []interface{}{
			map[string]interface{}{"type": "balanced", "balancerId": 100},
		},
	})
	c.Update(0)

	// WHEN
	require.NoError(t, c.Remove(101))

	// THEN
	clients, _ := readObject(t, c, 100).List("clients")
	assert.Len(t, clients, 0)
}

func TestSetpointProfile_DrivesPairFromDeviceTime(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	write(t, c.Fetch(TicksID), map[string]interface{}{"secondsSinceEpoch": 1000})
	create(t, c, SetpointSensorPairType, 101, 0x01, map[string]interface{}{"storedSetting": 20, "enabled": true})
	create(t, c, SetpointProfileType, 102, 0x01, map[string]interface{}{
		"targetId": 101, "start": 1000, "enabled": true,
		"points": []interface{}{
			map[string]interface{}{"time": 0, "temperature": 20},
			map[string]interface{}{"time": 100, "temperature": 30},
		},
	})

	// WHEN
	c.Update(50 * cbox.Second)

	// THEN
	pair := readObject(t, c, 101)
	setting, _ := pair.Float("setting")
	assert.InDelta(t, 25, setting, 0.01)
	stored, _ := pair.Float("storedSetting")
	assert.InDelta(t, 20, stored, 0.01)
	driving, _ := readObject(t, c, 102).Bool("drivingTarget")
	assert.True(t, driving)
}

func TestActuatorLogic_SetsTarget(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, MockPinsType, 100, 0x01, map[string]interface{}{})
	create(t, c, DigitalActuatorType, 101, 0x01, map[string]interface{}{"hwDevice": 100, "channel": 1, "desiredState": "Active"})
	create(t, c, DigitalActuatorType, 102, 0x01, map[string]interface{}{"hwDevice": 100, "channel": 2})
	create(t, c, ActuatorLogicType, 103, 0x01, map[string]interface{}{
		"targetId": 102, "enabled": true,
		"sections": []interface{}{
			map[string]interface{}{"op": "OR", "digitals": []interface{}{101}},
		},
	})

	// WHEN
	c.Update(0)

	// THEN
	state, _ := readObject(t, c, 102).String("state")
	assert.Equal(t, "Active", state)
	result, _ := readObject(t, c, 103).Bool("result")
	assert.True(t, result)
}

func TestActuatorOffset_Block(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, SetpointSensorPairType, 100, 0x01, map[string]interface{}{"storedSetting": 20, "enabled": true})
	create(t, c, SetpointSensorPairType, 101, 0x01, map[string]interface{}{"storedSetting": 0, "enabled": true})
	create(t, c, ActuatorOffsetType, 102, 0x01, map[string]interface{}{
		"targetId": 101, "referenceId": 100, "referenceSettingOrValue": "setting",
		"desiredSetting": 5, "enabled": true,
	})

	// WHEN
	c.Update(0)

	// THEN
	setting, _ := readObject(t, c, 101).Float("setting")
	assert.InDelta(t, 25, setting, 0.01)
}

func TestTempSensorCombi_Block(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, TempSensorMockType, 100, 0x01, map[string]interface{}{"setting": 20})
	create(t, c, TempSensorMockType, 101, 0x01, map[string]interface{}{"setting": 30})
	create(t, c, TempSensorCombiType, 102, 0x01, map[string]interface{}{
		"combineFunc": "MAX", "sensors": []interface{}{100, 101},
	})

	// WHEN
	c.Update(0)

	// THEN
	value, _ := readObject(t, c, 102).Float("value")
	assert.InDelta(t, 30, value, 0.01)
}

func TestTempSensorFile_ReadsFile(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "temp1_input")
	require.NoError(t, os.WriteFile(path, []byte("21500\n"), 0644))
	sensor := NewTempSensorFile()
	write(t, sensor, map[string]interface{}{"path": path, "offset": 0.5})

	// WHEN
	sensor.Update(0)

	// THEN
	assert.True(t, sensor.Valid())
	assert.InDelta(t, 22, sensor.Value().Float(), 0.01)
}

func TestTempSensorFile_MissingFile(t *testing.T) {
	// GIVEN
	sensor := NewTempSensorFile()
	write(t, sensor, map[string]interface{}{"path": filepath.Join(t.TempDir(), "missing")})

	// WHEN
	sensor.Update(0)

	// THEN
	assert.False(t, sensor.Valid())
	assert.Contains(t, read(t, sensor).Stripped(), "value")
}

func TestGroups_ActivatesObjects(t *testing.T) {
	// GIVEN
	_, c := newTestContainer()
	create(t, c, TempSensorMockType, 100, 0x02, map[string]interface{}{"setting": 20})
	require.Equal(t, cbox.InactiveObjectTypeID, c.Fetch(100).TypeID())

	// WHEN
	write(t, c.Fetch(GroupsID), map[string]interface{}{"activeGroups": []interface{}{0, 1}})

	// THEN
	assert.Equal(t, TempSensorMockType, c.Fetch(100).TypeID())
	groups, _ := readObject(t, c, GroupsID).IntList("activeGroups")
	assert.Equal(t, []int64{0, 1}, groups)
}

func TestGroupsList(t *testing.T) {
	assert.Equal(t, cbox.Groups(0x05), GroupsFromList([]int64{0, 2, 9}))
	assert.Equal(t, []int64{0, 2}, GroupsToList(0x85))
}

func TestTicks_UtcSeconds(t *testing.T) {
	// GIVEN
	ticks := NewTicks()
	assert.Contains(t, read(t, ticks).Stripped(), "secondsSinceEpoch")

	// WHEN
	write(t, ticks, map[string]interface{}{"secondsSinceEpoch": 1000})
	ticks.Update(5500)

	// THEN
	assert.Equal(t, int64(1005), ticks.UtcSeconds())
	m := read(t, ticks)
	millis, _ := m.Int("millisSinceBoot")
	assert.Equal(t, int64(5500), millis)
	assert.Equal(t, cbox.ErrPersistingNotNeeded, ticks.StreamPersistedTo(&bytes.Buffer{}))
}

func TestSysInfo(t *testing.T) {
	// GIVEN
	env, _ := newTestContainer()
	info := NewSysInfo(env)

	// WHEN
	m := read(t, info)

	// THEN
	version, _ := m.String("version")
	assert.Equal(t, "test", version)
	deviceID, _ := m.String("deviceId")
	assert.Equal(t, "c0ffee", deviceID)
	assert.Equal(t, cbox.ErrPersistingNotNeeded, info.StreamPersistedTo(&bytes.Buffer{}))
}

func TestMockPins_Resize(t *testing.T) {
	// GIVEN
	pins := NewMockPins()
	require.True(t, pins.ClaimChannel(1, 100))

	// WHEN
	write(t, pins, map[string]interface{}{"channelCount": 4})

	// THEN
	assert.Equal(t, 4, pins.Size())
	assert.Equal(t, cbox.ObjectID(100), pins.ChannelOwner(1))
}

func TestGpioPins_UnknownPinIsUnavailable(t *testing.T) {
	// GIVEN
	pins := NewGpioPins()

	// WHEN
	_, ok := pins.SenseChannel(1)

	// THEN
	assert.False(t, ok)
	assert.False(t, pins.WriteChannelConfig(1, 1))
}
