package ws

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devEdexa/blockchain-api/observability"
)

const (
	metricsNamespace = "gw"
	metricsSubsystem = "ws"
)

var (
	connectionsActive = observability.GatewayFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "connections_active",
			Help:      "Currently active bridged WebSocket sessions",
		},
		[]string{"provider"},
	)

	connectionsTotal = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "connections_total",
			Help:      "Total bridged WebSocket sessions",
		},
		[]string{"provider"},
	)

	framesForwarded = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "frames_forwarded_total",
			Help:      "Frames relayed across bridges by direction",
		},
		[]string{"provider", "direction"},
	)
)
