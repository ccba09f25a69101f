package statistics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "controlbox"
)

// NewRegistry creates the registry all controlbox metrics are served from,
// including the go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func Register(registerer prometheus.Registerer, collector prometheus.Collector) {
	registerer.MustRegister(collector)
}
