package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devEdexa/blockchain-api/logging"
)

// ServerConfig contains configuration for the observability server.
type ServerConfig struct {
	// MetricsEnabled enables the metrics server.
	MetricsEnabled bool

	// MetricsAddr is the address for the metrics server (e.g., ":9090").
	MetricsAddr string

	// PprofEnabled enables the pprof server.
	PprofEnabled bool

	// PprofAddr is the address for the pprof server (e.g., "localhost:6060").
	PprofAddr string

	// Registry is the Prometheus gatherer to serve metrics from.
	// If nil, Gatherer() is used.
	Registry prometheus.Gatherer
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MetricsEnabled: true,
		MetricsAddr:    ":9090",
		PprofEnabled:   false,
		PprofAddr:      "localhost:6060",
	}
}

// Server provides observability endpoints (metrics and pprof).
type Server struct {
	logger        logging.Logger
	config        ServerConfig
	metricsServer *http.Server
	pprofServer   *http.Server
	rm            *RuntimeMetricsCollector
	mu            sync.Mutex
	running       bool
}

// NewServer creates a new observability server.
func NewServer(logger logging.Logger, config ServerConfig) *Server {
	if config.PprofAddr == "" {
		// Localhost only for security
		config.PprofAddr = "localhost:6060"
	}
	if config.Registry == nil {
		config.Registry = Gatherer()
	}

	return &Server{
		logger: logging.ForComponent(logger, logging.ComponentObservability),
		config: config,
	}
}

// Start begins serving metrics and pprof endpoints.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	startTime := time.Now()

	if s.config.MetricsEnabled {
		if err := s.startMetricsServer(ctx); err != nil {
			return err
		}
	}

	if s.config.PprofEnabled {
		if err := s.startPprofServer(ctx); err != nil {
			return err
		}
	}

	s.running = true
	StartupDurationSeconds.WithLabelValues("observability_server").Set(time.Since(startTime).Seconds())

	return nil
}

// startMetricsServer starts the Prometheus metrics server.
func (s *Server) startMetricsServer(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.MetricsAddr)
	if err != nil {
		s.logger.Error().Err(err).Str(logging.FieldAddr, s.config.MetricsAddr).Msg("failed to listen for metrics server")
		return err
	}

	s.rm = NewRuntimeMetricsCollector(s.logger, DefaultRuntimeMetricsCollectorConfig(), GatewayFactory)
	if err := s.rm.Start(ctx); err != nil {
		_ = ln.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.metricsServer = &http.Server{
		Handler: mux,
	}

	go func() {
		s.logger.Info().Str(logging.FieldAddr, ln.Addr().String()).Msg("serving metrics")
		if err := s.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("stopping metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metricsServer.Shutdown(shutdownCtx)
		if s.rm != nil {
			s.rm.Stop()
		}
	}()

	return nil
}

// startPprofServer starts the pprof debug server.
func (s *Server) startPprofServer(ctx context.Context) error {
	pprofMux := http.NewServeMux()
	pprofMux.HandleFunc("/debug/pprof/", pprof.Index)
	pprofMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	pprofMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	pprofMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	pprofMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	pprofMux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	pprofMux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	pprofMux.Handle("/debug/pprof/block", pprof.Handler("block"))
	pprofMux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))
	pprofMux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))

	s.pprofServer = &http.Server{
		Addr:    s.config.PprofAddr,
		Handler: pprofMux,
	}

	go func() {
		s.logger.Info().Str(logging.FieldAddr, s.config.PprofAddr).Msg("serving pprof")
		if err := s.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("pprof server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("stopping pprof server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.pprofServer.Shutdown(shutdownCtx)
	}()

	return nil
}

// Stop gracefully shuts down the observability servers.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var lastErr error

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to shutdown metrics server")
			lastErr = err
		}
	}

	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to shutdown pprof server")
			lastErr = err
		}
	}

	if s.rm != nil {
		s.rm.Stop()
	}

	s.running = false
	return lastErr
}

// IsRunning reports whether the server has been started.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
