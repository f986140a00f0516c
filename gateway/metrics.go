package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devEdexa/blockchain-api/observability"
)

const (
	metricsNamespace = "gw"
	metricsSubsystem = "gateway"

	metricLabelUnknown = "unknown"

	// Rejection reasons (for requestsRejected metric)
	rejectReasonMissingChainID   = "missing_chain_id"
	rejectReasonUnsupportedChain = "unsupported_chain"
	rejectReasonMethodNotAllowed = "method_not_allowed"
	rejectReasonReadBodyError    = "read_body_error"
	rejectReasonBodyTooLarge     = "body_too_large"
	rejectReasonUpstreamError    = "upstream_error"
	rejectReasonUpgradeFailed    = "upgrade_failed"
)

var (
	// requestsReceived counts inbound requests before any validation.
	requestsReceived = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_received_total",
			Help:      "Inbound JSON-RPC requests by chain",
		},
		[]string{"chain_id"},
	)

	// requestsServed counts requests answered with an upstream response.
	requestsServed = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_served_total",
			Help:      "Requests served by chain, provider and final status",
		},
		[]string{"chain_id", "provider", "status"},
	)

	// requestsRejected counts requests refused before reaching an upstream.
	requestsRejected = observability.GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_rejected_total",
			Help:      "Requests rejected by chain and reason",
		},
		[]string{"chain_id", "reason"},
	)

	// requestDuration tracks end-to-end request latency. Recorded through the
	// async metric recorder to keep histogram locks off the hot path.
	requestDuration = observability.GatewayFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency by chain",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
		[]string{"chain_id"},
	)

	// activeConnections gauges in-flight HTTP requests.
	activeConnections = observability.GatewayFactory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "active_connections",
			Help:      "In-flight HTTP requests",
		},
	)
)
