package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "gw"
	metricsSubsystem = "observability"
)

var (
	// FineGrainedLatencyBuckets provides sub-millisecond to multi-second measurement.
	// Use for: proxy latency, upstream call latency, classification, etc.
	// Buckets: 1ms, 2ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s, 30s
	FineGrainedLatencyBuckets = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// SessionDurationBuckets covers long-lived tasks such as WebSocket bridge
	// sessions, from sub-second failures to multi-hour subscriptions.
	SessionDurationBuckets = []float64{0.1, 1, 10, 60, 300, 900, 3600, 14400, 43200}
)

var (
	// TaskDurationSeconds tracks the duration and outcome of named tasks.
	// The WS bridging task records here, labeled by provider kind.
	TaskDurationSeconds = GatewayFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "task_duration_seconds",
			Help:      "Duration of named tasks by outcome",
			Buckets:   SessionDurationBuckets,
		},
		[]string{"task", "status"},
	)

	// ErrorsTotal counts errors by type and component.
	ErrorsTotal = GatewayFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// StartupDurationSeconds tracks startup time of components.
	StartupDurationSeconds = GatewayFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "startup_duration_seconds",
			Help:      "Time taken to start components",
		},
		[]string{"component"},
	)

	// ProcessInfo provides static information about the process.
	ProcessInfo = GatewayFactory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "process_info",
			Help:      "Information about the running process",
		},
		[]string{"version", "component"},
	)
)

// WsProxyTaskMetrics is the named task-metrics recorder wrapped around every
// WebSocket bridging session. Callers label it with the provider kind via
// WithName before running the bridge.
var WsProxyTaskMetrics = NewTaskMetrics(TaskDurationSeconds, "ws_proxy")
