package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayRegistry is the dedicated Prometheus registry for gateway metrics.
// Using a dedicated registry (instead of the global default) keeps the
// /metrics output limited to what this process actually emits and lets tests
// register metrics without collisions.
var GatewayRegistry = prometheus.NewRegistry()

// GatewayFactory creates metrics registered on GatewayRegistry.
// All package-level metric vars in this repository are built with it.
var GatewayFactory = promauto.With(GatewayRegistry)

func init() {
	GatewayRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Gatherer returns the gatherer serving both the gateway registry and the
// default registry (which carries metrics registered by shared packages,
// e.g. the panic-recovery counter).
func Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{GatewayRegistry, prometheus.DefaultGatherer}
}
