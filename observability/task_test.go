package observability

import (
	"errors"
	"testing"

	pond "github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestHistogram(t *testing.T) *prometheus.HistogramVec {
	t.Helper()
	registry := prometheus.NewRegistry()
	return promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_task_duration_seconds",
			Help:    "test",
			Buckets: []float64{0.001, 1},
		},
		[]string{"task", "status"},
	)
}

func TestTaskMetrics_RecordsOutcome(t *testing.T) {
	histogram := newTestHistogram(t)
	task := NewTaskMetrics(histogram, "ws_proxy").WithName("allnodes")

	err := task.Run(func() error { return nil })
	require.NoError(t, err)

	err = task.Run(func() error { return errors.New("bridge failed") })
	require.EqualError(t, err, "bridge failed")

	// One series per outcome
	require.Equal(t, 2, testutil.CollectAndCount(histogram))
}

func TestTaskMetrics_WithNameDoesNotMutateOriginal(t *testing.T) {
	histogram := newTestHistogram(t)
	base := NewTaskMetrics(histogram, "base")
	named := base.WithName("other")

	require.Equal(t, "base", base.name)
	require.Equal(t, "other", named.name)
}

func TestTaskMetrics_AsyncRecorder(t *testing.T) {
	histogram := newTestHistogram(t)
	recorder := NewMetricRecorder(zerolog.Nop(), pond.NewPool(1))
	task := NewTaskMetrics(histogram, "ws_proxy").WithRecorder(recorder)

	require.NoError(t, task.Run(func() error { return nil }))

	// Close drains pending observations before returning.
	require.NoError(t, recorder.Close())
	require.Equal(t, 1, testutil.CollectAndCount(histogram))
}

func TestMetricRecorder_RecordDuration(t *testing.T) {
	histogram := newTestHistogram(t)
	recorder := NewMetricRecorder(zerolog.Nop(), pond.NewPool(1))

	recorder.RecordDuration(histogram, []string{"allnodes", TaskStatusOK}, 0)
	require.NoError(t, recorder.Close())

	require.Equal(t, 1, testutil.CollectAndCount(histogram))
}
