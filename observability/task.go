package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Task outcome label values.
const (
	TaskStatusOK    = "ok"
	TaskStatusError = "error"
)

// TaskMetrics is a decorator that runs a unit of work and records its
// duration and outcome on a histogram labeled {task, status}.
//
// It is a value type: WithName and WithRecorder return copies, so a single
// package-level TaskMetrics (e.g. WsProxyTaskMetrics) can be relabeled per
// call site without synchronization.
type TaskMetrics struct {
	histogram *prometheus.HistogramVec
	name      string
	recorder  *MetricRecorder
}

// NewTaskMetrics creates a TaskMetrics recording on the given histogram under
// the given default task name.
func NewTaskMetrics(histogram *prometheus.HistogramVec, name string) TaskMetrics {
	return TaskMetrics{histogram: histogram, name: name}
}

// WithName returns a copy of the TaskMetrics with the task label replaced.
func (t TaskMetrics) WithName(name string) TaskMetrics {
	t.name = name
	return t
}

// WithRecorder returns a copy that records observations asynchronously
// through the given MetricRecorder instead of observing inline.
func (t TaskMetrics) WithRecorder(recorder *MetricRecorder) TaskMetrics {
	t.recorder = recorder
	return t
}

// Run executes fn, records its duration and outcome, and returns fn's error.
// Recording never alters the semantics of the wrapped task.
func (t TaskMetrics) Run(fn func() error) error {
	start := time.Now()
	err := fn()

	status := TaskStatusOK
	if err != nil {
		status = TaskStatusError
	}

	if t.recorder != nil {
		t.recorder.RecordDuration(t.histogram, []string{t.name, status}, time.Since(start))
	} else {
		t.histogram.WithLabelValues(t.name, status).Observe(time.Since(start).Seconds())
	}
	return err
}
