package observability

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devEdexa/blockchain-api/logging"
)

// runtimeMetrics holds the runtime metric collectors.
type runtimeMetrics struct {
	goroutines    prometheus.Gauge
	heapAlloc     prometheus.Gauge
	heapInuse     prometheus.Gauge
	heapObjects   prometheus.Gauge
	stackInuse    prometheus.Gauge
	gcPauseTotal  prometheus.Counter
	numGC         prometheus.Counter
	gcCPUFraction prometheus.Gauge
}

// newRuntimeMetrics creates runtime metrics using the given factory.
func newRuntimeMetrics(factory promauto.Factory) *runtimeMetrics {
	return &runtimeMetrics{
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "goroutines",
			Help:      "Number of goroutines",
		}),
		heapAlloc: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "heap_alloc_bytes",
			Help:      "Bytes of allocated heap objects",
		}),
		heapInuse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "heap_inuse_bytes",
			Help:      "Bytes in in-use spans",
		}),
		heapObjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "heap_objects",
			Help:      "Number of allocated heap objects",
		}),
		stackInuse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "stack_inuse_bytes",
			Help:      "Bytes in stack spans",
		}),
		gcPauseTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "gc_pause_total_ns",
			Help:      "Cumulative nanoseconds spent in GC stop-the-world pauses",
		}),
		numGC: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "gc_total",
			Help:      "Number of completed GC cycles",
		}),
		gcCPUFraction: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "runtime",
			Name:      "gc_cpu_fraction",
			Help:      "Fraction of CPU time used by GC",
		}),
	}
}

// Runtime metrics register on the shared GatewayRegistry, so the underlying
// collectors are created at most once per process.
var (
	runtimeMetricsOnce   sync.Once
	sharedRuntimeMetrics *runtimeMetrics
)

// RuntimeMetricsCollectorConfig configures the runtime metrics collector.
type RuntimeMetricsCollectorConfig struct {
	// CollectionInterval is how often to collect runtime metrics.
	CollectionInterval time.Duration
}

// DefaultRuntimeMetricsCollectorConfig returns sensible defaults.
func DefaultRuntimeMetricsCollectorConfig() RuntimeMetricsCollectorConfig {
	return RuntimeMetricsCollectorConfig{
		CollectionInterval: 10 * time.Second,
	}
}

// RuntimeMetricsCollector periodically collects Go runtime metrics.
type RuntimeMetricsCollector struct {
	logger  logging.Logger
	config  RuntimeMetricsCollectorConfig
	metrics *runtimeMetrics

	// Previous values for delta calculations
	lastGCPauseTotal uint64
	lastNumGC        uint32

	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewRuntimeMetricsCollector creates a new runtime metrics collector.
func NewRuntimeMetricsCollector(
	logger logging.Logger,
	config RuntimeMetricsCollectorConfig,
	factory promauto.Factory,
) *RuntimeMetricsCollector {
	if config.CollectionInterval == 0 {
		config.CollectionInterval = 10 * time.Second
	}

	runtimeMetricsOnce.Do(func() {
		sharedRuntimeMetrics = newRuntimeMetrics(factory)
	})

	return &RuntimeMetricsCollector{
		logger:  logging.ForComponent(logger, logging.ComponentRuntimeMetrics),
		config:  config,
		metrics: sharedRuntimeMetrics,
	}
}

// Start begins collecting runtime metrics.
func (c *RuntimeMetricsCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	c.ctx, c.cancelFn = context.WithCancel(ctx)
	c.running = true

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	c.lastGCPauseTotal = memStats.PauseTotalNs
	c.lastNumGC = memStats.NumGC

	c.wg.Add(1)
	go c.collectLoop()

	c.logger.Info().
		Dur("collection_interval", c.config.CollectionInterval).
		Msg("runtime metrics collector started")

	return nil
}

// Stop stops collecting runtime metrics.
func (c *RuntimeMetricsCollector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancelFn()
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info().Msg("runtime metrics collector stopped")
}

// collectLoop periodically collects runtime metrics.
func (c *RuntimeMetricsCollector) collectLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CollectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// collect reads runtime metrics and updates Prometheus gauges.
func (c *RuntimeMetricsCollector) collect() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	c.metrics.goroutines.Set(float64(runtime.NumGoroutine()))
	c.metrics.heapAlloc.Set(float64(memStats.HeapAlloc))
	c.metrics.heapInuse.Set(float64(memStats.HeapInuse))
	c.metrics.heapObjects.Set(float64(memStats.HeapObjects))
	c.metrics.stackInuse.Set(float64(memStats.StackInuse))

	if memStats.PauseTotalNs > c.lastGCPauseTotal {
		c.metrics.gcPauseTotal.Add(float64(memStats.PauseTotalNs - c.lastGCPauseTotal))
		c.lastGCPauseTotal = memStats.PauseTotalNs
	}
	if memStats.NumGC > c.lastNumGC {
		c.metrics.numGC.Add(float64(memStats.NumGC - c.lastNumGC))
		c.lastNumGC = memStats.NumGC
	}
	c.metrics.gcCPUFraction.Set(memStats.GCCPUFraction)
}

// CollectNow triggers an immediate collection of runtime metrics.
func (c *RuntimeMetricsCollector) CollectNow() {
	c.collect()
}
