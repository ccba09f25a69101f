package configuration

import (
	"bytes"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYaml(t *testing.T, yaml string) Configuration {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range map[string]interface{}{
		"storage.type":   StorageBolt,
		"dbPath":         "/tmp/controlbox.db",
		"updateInterval": 10 * time.Millisecond,
		"startId":        100,
		"maxObjects":     255,
		"activeGroups":   []int{0},
	} {
		v.SetDefault(key, value)
	}
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yaml)))
	config, err := Decode(v)
	require.NoError(t, err)
	return config
}

func TestDecode_Defaults(t *testing.T) {
	// WHEN
	config := loadYaml(t, "")

	// THEN
	assert.Equal(t, StorageBolt, config.Storage.Type)
	assert.Equal(t, 10*time.Millisecond, config.UpdateInterval)
	assert.Equal(t, GroupMask(0x01), config.ActiveGroups)
	assert.True(t, config.SyncDeviceTime.Get())
	assert.Empty(t, config.Objects)
}

func TestDecode_Full(t *testing.T) {
	// GIVEN
	yaml := `
dbPath: /var/lib/controlbox/db
updateInterval: 50ms
activeGroups: [0, 2]
syncDeviceTime: false
connections:
  serial:
    enabled: true
    port: /dev/ttyUSB0
    baudRate: 57600
mqtt:
  enabled: true
  topic: brewery/box
  publishInterval: 2s
objects:
  - id: 100
    type: TempSensorMock
    groups: [0]
    data:
      setting: 20
  - id: 101
    type: SetpointSensorPair
    groups: 3
    data:
      sensorId: 100
      storedSetting: 65
`

	// WHEN
	config := loadYaml(t, yaml)

	// THEN
	assert.Equal(t, "/var/lib/controlbox/db", config.DbPath)
	assert.Equal(t, 50*time.Millisecond, config.UpdateInterval)
	assert.Equal(t, GroupMask(0x05), config.ActiveGroups)
	assert.False(t, config.SyncDeviceTime.Get())
	assert.True(t, config.Connections.Serial.Enabled)
	assert.Equal(t, "/dev/ttyUSB0", config.Connections.Serial.Port)
	assert.Equal(t, 57600, config.Connections.Serial.BaudRate)
	assert.Equal(t, 2*time.Second, config.Mqtt.PublishInterval)
	require.Len(t, config.Objects, 2)
	assert.Equal(t, 100, config.Objects[0].Id)
	assert.Equal(t, GroupMask(0x01), config.Objects[0].Groups)
	assert.Equal(t, GroupMask(0x03), config.Objects[1].Groups)
	assert.Equal(t, "SetpointSensorPair", config.Objects[1].Type)
	assert.Equal(t, []int{100}, References(config.Objects[1].Data))
}

func TestGroupMaskHookFunc(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected GroupMask
		err      bool
	}{
		{name: "list of groups", input: []interface{}{0, 1, 7}, expected: 0x83},
		{name: "int list", input: []int{2}, expected: 0x04},
		{name: "mask", input: 6, expected: 0x06},
		{name: "hex string", input: "0x81", expected: 0x81},
		{name: "comma separated", input: "0, 3", expected: 0x09},
		{name: "group out of range", input: []interface{}{8}, err: true},
		{name: "mask out of range", input: 300, err: true},
		{name: "garbage", input: "abc", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			var result struct {
				Groups GroupMask `mapstructure:"groups"`
			}
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				DecodeHook: GroupMaskHookFunc(),
				Result:     &result,
			})
			require.NoError(t, err)

			// WHEN
			err = decoder.Decode(map[string]interface{}{"groups": tt.input})

			// THEN
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result.Groups)
		})
	}
}

func TestGroupMask_Groups(t *testing.T) {
	assert.Equal(t, []int{0, 7}, GroupMask(0x81).Groups())
	assert.Empty(t, GroupMask(0).Groups())
}

func TestDefaultTrueBool_Get(t *testing.T) {
	tests := []struct {
		name     string
		input    DefaultTrueBool
		expected bool
	}{
		{
			name: "Present and False returns False",
			input: DefaultTrueBool{
				Optional: Optional[bool]{Value: false, Present: true},
			},
			expected: false,
		},
		{
			name:     "Not Present returns True (Default)",
			input:    DefaultTrueBool{},
			expected: true,
		},
		{
			name: "Runtime Override wins over Missing",
			input: func() DefaultTrueBool {
				b := DefaultTrueBool{}
				b.SetOverride(false)
				return b
			}(),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.Get())
		})
	}
}

func TestDefaultTrueBoolHookFunc(t *testing.T) {
	// GIVEN
	var result struct {
		Enabled DefaultTrueBool `mapstructure:"enabled"`
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: DefaultTrueBoolHookFunc(),
		Result:     &result,
	})
	require.NoError(t, err)

	// WHEN
	err = decoder.Decode(map[string]interface{}{"enabled": "false"})

	// THEN
	assert.NoError(t, err)
	assert.True(t, result.Enabled.Present)
	assert.False(t, result.Enabled.Get())
}
