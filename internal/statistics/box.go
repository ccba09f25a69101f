package statistics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/markusressel/controlbox/internal/box"
)

// Source is read by the collector from the prometheus goroutine, so both
// methods must be safe for concurrent use.
type Source interface {
	Snapshots() *box.SnapshotCache
	Cycles() uint64
}

// exported payload fields
var valueFields = []string{"value", "setting", "state"}

var stateValues = map[string]float64{
	"Inactive": 0,
	"Active":   1,
}

type BoxCollector struct {
	source Source

	objectCount  *prometheus.Desc
	blockValue   *prometheus.Desc
	updateCycles *prometheus.Desc
}

func NewBoxCollector(source Source) *BoxCollector {
	return &BoxCollector{
		source: source,
		objectCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "object_count"),
			"Number of objects in the container, including inactive and system objects",
			nil, nil,
		),
		blockValue: prometheus.NewDesc(prometheus.BuildFQName(namespace, "block", "value"),
			"Current value of a numeric block field",
			[]string{"id", "type", "field"}, nil,
		),
		updateCycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "update_cycles_total"),
			"Number of update cycles run by the control loop",
			nil, nil,
		),
	}
}

func (collector *BoxCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.objectCount
	ch <- collector.blockValue
	ch <- collector.updateCycles
}

// Collect implements required collect function for all prometheus collectors
func (collector *BoxCollector) Collect(ch chan<- prometheus.Metric) {
	snapshots := collector.source.Snapshots().All()
	ch <- prometheus.MustNewConstMetric(collector.objectCount, prometheus.GaugeValue, float64(len(snapshots)))
	ch <- prometheus.MustNewConstMetric(collector.updateCycles, prometheus.CounterValue, float64(collector.source.Cycles()))

	for _, snapshot := range snapshots {
		if snapshot.Inactive {
			continue
		}
		id := strconv.Itoa(int(snapshot.ID))
		for _, field := range valueFields {
			value, ok := numeric(snapshot.Data[field])
			if !ok {
				continue
			}
			ch <- prometheus.MustNewConstMetric(collector.blockValue, prometheus.GaugeValue, value, id, snapshot.TypeName, field)
		}
	}
}

func numeric(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		result, ok := stateValues[v]
		return result, ok
	default:
		return 0, false
	}
}
