package observability

import (
	"time"

	pond "github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devEdexa/blockchain-api/logging"
)

// MetricRecorder handles async metric recording to avoid blocking the hot path.
// Uses a pond worker pool for controlled concurrency.
type MetricRecorder struct {
	logger logging.Logger
	pool   pond.Pool
}

// NewMetricRecorder creates a new async metric recorder backed by the given
// pond pool.
func NewMetricRecorder(logger logging.Logger, pool pond.Pool) *MetricRecorder {
	return &MetricRecorder{
		logger: logging.ForComponent(logger, logging.ComponentObservability),
		pool:   pool,
	}
}

// Record submits a metric observation to the pool.
// Non-blocking submission with unbounded queue (never blocks the hot path).
func (m *MetricRecorder) Record(histogram *prometheus.HistogramVec, labels []string, value float64) {
	m.pool.Submit(func() {
		histogram.WithLabelValues(labels...).Observe(value)
	})
}

// RecordDuration is a convenience wrapper for recording time.Duration as seconds.
func (m *MetricRecorder) RecordDuration(histogram *prometheus.HistogramVec, labels []string, duration time.Duration) {
	m.Record(histogram, labels, duration.Seconds())
}

// Close drains pending observations and stops the pool.
func (m *MetricRecorder) Close() error {
	m.pool.StopAndWait()
	m.logger.Info().Msg("metric recorder stopped")
	return nil
}
