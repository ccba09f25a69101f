package statistics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/persistence"
)

func TestBoxCollector(t *testing.T) {
	// GIVEN
	b := box.New(persistence.NewMemoryStorage(), box.DefaultOptions())
	_, err := b.CreateObjectFromMap(100, 0x01, "TempSensorMock", map[string]interface{}{"setting": 21.5})
	require.NoError(t, err)
	_, err = b.CreateObjectFromMap(101, 0x02, "TempSensorMock", map[string]interface{}{"setting": 30})
	require.NoError(t, err)
	b.Update(0)
	b.Update(10)
	registry := prometheus.NewRegistry()
	Register(registry, NewBoxCollector(b))

	// WHEN
	expected := `
# HELP controlbox_block_value Current value of a numeric block field
# TYPE controlbox_block_value gauge
controlbox_block_value{field="setting",id="100",type="TempSensorMock"} 21.5
controlbox_block_value{field="value",id="100",type="TempSensorMock"} 21.5
# HELP controlbox_object_count Number of objects in the container, including inactive and system objects
# TYPE controlbox_object_count gauge
controlbox_object_count 5
# HELP controlbox_update_cycles_total Number of update cycles run by the control loop
# TYPE controlbox_update_cycles_total counter
controlbox_update_cycles_total 2
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expected))

	// THEN
	assert.NoError(t, err)
}

func TestNumeric(t *testing.T) {
	value, ok := numeric("Active")
	assert.True(t, ok)
	assert.Equal(t, 1.0, value)

	_, ok = numeric("Unknown")
	assert.False(t, ok)

	value, ok = numeric(true)
	assert.True(t, ok)
	assert.Equal(t, 1.0, value)

	_, ok = numeric([]interface{}{})
	assert.False(t, ok)
}

func TestNewRegistry(t *testing.T) {
	// WHEN
	registry := NewRegistry()

	// THEN
	families, err := registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
