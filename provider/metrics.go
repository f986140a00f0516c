package provider

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devEdexa/blockchain-api/observability"
)

const (
	metricsNamespace = "gw"
	metricsSubsystem = "provider"
)

var (
	// upstreamCalls counts completed upstream HTTP calls by final status.
	upstreamCalls = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "upstream_calls_total",
			Help:      "Completed upstream HTTP calls by provider, chain and final status",
		},
		[]string{"provider", "chain_id", "status"},
	)

	// upstreamCallDuration tracks upstream HTTP call latency.
	upstreamCallDuration = observability.GatewayFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "upstream_call_duration_seconds",
			Help:      "Upstream HTTP call latency",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
		[]string{"provider", "chain_id"},
	)

	// reclassifiedResponses counts success-status upstream responses whose
	// JSON-RPC error body forced a status rewrite. A non-zero rate means an
	// upstream is violating its own contract.
	reclassifiedResponses = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reclassified_responses_total",
			Help:      "Success-status upstream responses reclassified from their JSON-RPC error body",
		},
		[]string{"provider", "verdict"},
	)

	// transportFailures counts network-level upstream failures.
	transportFailures = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "transport_failures_total",
			Help:      "Upstream transport failures by provider",
		},
		[]string{"provider"},
	)
)
