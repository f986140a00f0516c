// Package gateway implements the inbound HTTP and WebSocket serving surface.
// It routes each request to a provider by chain, forwards the raw JSON-RPC
// body, and relays the normalized response back to the caller.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	pond "github.com/alitto/pond/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/devEdexa/blockchain-api/config"
	"github.com/devEdexa/blockchain-api/logging"
	"github.com/devEdexa/blockchain-api/observability"
	"github.com/devEdexa/blockchain-api/provider"
	"github.com/devEdexa/blockchain-api/ws"
)

const (
	// rpcPath is the JSON-RPC serving path for both HTTP and WebSocket.
	rpcPath = "/v1"

	// queryParamChainID selects the target chain (CAIP-2 identifier).
	queryParamChainID = "chainId"
	// queryParamProjectID identifies the calling project.
	queryParamProjectID = "projectId"

	// MaxConcurrentStreams is the maximum concurrent HTTP/2 streams per connection.
	MaxConcurrentStreams = 250
)

// Server is the inbound gateway HTTP server. It serves plain JSON-RPC
// forwarding on POST and upgrades WebSocket requests on the same path.
type Server struct {
	logger   logging.Logger
	config   config.ServerConfig
	registry *provider.Registry

	server *http.Server

	// Async metric recorder (avoids histogram lock contention in hot path)
	metricRecorder *observability.MetricRecorder

	// Lifecycle
	mu       sync.Mutex
	started  bool
	closed   bool
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates the gateway server. Latency observations are recorded
// through a metric recorder backed by the given worker pool.
func NewServer(logger logging.Logger, cfg config.ServerConfig, registry *provider.Registry, workerPool pond.Pool) *Server {
	return &Server{
		logger:         logging.ForComponent(logger, logging.ComponentGateway),
		config:         cfg,
		registry:       registry,
		metricRecorder: observability.NewMetricRecorder(logger, workerPool),
	}
}

// Start begins serving. It returns once the listener goroutine is running;
// ctx cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("gateway server is closed")
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("gateway server already started")
	}
	s.started = true
	ctx, s.cancelFn = context.WithCancel(ctx)
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc(rpcPath, s.handleRPC)

	// h2c lets HTTP/2-capable callers multiplex without TLS termination here
	h2s := &http2.Server{
		MaxConcurrentStreams: MaxConcurrentStreams,
	}
	handler := PanicRecoveryMiddleware(s.logger, h2c.NewHandler(mux, h2s))

	s.server = &http.Server{
		Addr:        s.config.ListenAddr,
		Handler:     handler,
		ReadTimeout: time.Duration(s.config.ReadTimeoutSeconds) * time.Second,
		// WriteTimeout stays 0: WebSocket sessions on the same listener are
		// long-lived and must not be cut by a server-wide write deadline
		WriteTimeout: 0,
		IdleTimeout:  time.Duration(s.config.IdleTimeoutSeconds) * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info().Str(logging.FieldListenAddr, s.config.ListenAddr).Msg("starting gateway server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("gateway server error")
		}
	}()

	// Shutdown watcher
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()

		// Closing live bridges first lets Shutdown drain hijacked connections
		ws.CloseAll()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("error during gateway shutdown")
		}
	}()

	return nil
}

// Close gracefully shuts down the gateway server and waits for the listener
// goroutine to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancelFn := s.cancelFn
	s.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}
	s.wg.Wait()

	if s.metricRecorder != nil {
		_ = s.metricRecorder.Close()
	}

	s.logger.Info().Msg("gateway server stopped")
	return nil
}

// handleHealth answers load-balancer health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"healthy","active_ws_sessions":%d}`, ws.ActiveSessions())
}

// handleRPC serves the JSON-RPC path. WebSocket upgrade requests are bridged
// to a WS-capable provider; everything else is treated as an HTTP JSON-RPC
// forward and must be a POST.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	activeConnections.Inc()
	defer activeConnections.Dec()

	params := provider.QueryParams{
		ChainID:   r.URL.Query().Get(queryParamChainID),
		ProjectID: r.URL.Query().Get(queryParamProjectID),
	}

	if params.ChainID == "" {
		requestsReceived.WithLabelValues(metricLabelUnknown).Inc()
		requestsRejected.WithLabelValues(metricLabelUnknown, rejectReasonMissingChainID).Inc()
		s.sendError(w, http.StatusBadRequest, "missing chainId query parameter")
		return
	}
	requestsReceived.WithLabelValues(params.ChainID).Inc()

	if ws.IsUpgrade(r) {
		s.handleWebSocket(w, r, params)
		return
	}

	if r.Method != http.MethodPost {
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonMethodNotAllowed).Inc()
		s.sendError(w, http.StatusMethodNotAllowed, "only POST is supported for JSON-RPC over HTTP")
		return
	}

	rpcProvider, ok := s.registry.RPCProviderFor(params.ChainID)
	if !ok {
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonUnsupportedChain).Inc()
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("unsupported chain: %s", params.ChainID))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			requestsRejected.WithLabelValues(params.ChainID, rejectReasonBodyTooLarge).Inc()
			s.sendError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonReadBodyError).Inc()
		s.sendError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, err := rpcProvider.Proxy(r.Context(), params.ChainID, body)
	if err != nil {
		s.handleProxyError(w, params, rpcProvider.Kind(), err)
		return
	}

	// Pass the upstream envelope through: its status (possibly reclassified)
	// and its body bytes untouched
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		s.logger.Debug().Err(err).Str(logging.FieldChainID, params.ChainID).Msg("failed to write response body")
	}

	requestsServed.WithLabelValues(params.ChainID, rpcProvider.Kind().String(), fmt.Sprint(resp.StatusCode)).Inc()
	s.metricRecorder.RecordDuration(requestDuration, []string{params.ChainID}, time.Since(startTime))

	s.logger.Debug().
		Str(logging.FieldChainID, params.ChainID).
		Str(logging.FieldProjectID, params.ProjectID).
		Str(logging.FieldProvider, rpcProvider.Kind().String()).
		Int(logging.FieldStatus, resp.StatusCode).
		Dur(logging.FieldDuration, time.Since(startTime)).
		Msg("request served")
}

// handleWebSocket routes an upgrade request to a WS-capable provider. The
// provider only upgrades the inbound connection once its upstream dial
// succeeded, so error responses here are plain HTTP.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, params provider.QueryParams) {
	wsProvider, ok := s.registry.WSProviderFor(params.ChainID)
	if !ok {
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonUnsupportedChain).Inc()
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("no websocket endpoint for chain: %s", params.ChainID))
		return
	}

	if err := wsProvider.ProxyWS(w, r, params); err != nil {
		if errors.Is(err, provider.ErrUpgradeFailed) {
			// The upgrader already answered the failed handshake
			requestsRejected.WithLabelValues(params.ChainID, rejectReasonUpgradeFailed).Inc()
			return
		}
		s.handleProxyError(w, params, wsProvider.Kind(), err)
		return
	}

	requestsServed.WithLabelValues(params.ChainID, wsProvider.Kind().String(), "101").Inc()
}

// handleProxyError maps provider errors to client-facing HTTP responses.
func (s *Server) handleProxyError(w http.ResponseWriter, params provider.QueryParams, kind provider.Kind, err error) {
	switch {
	case errors.Is(err, provider.ErrChainNotFound):
		// Registry and provider chain maps disagree; treat as unsupported
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonUnsupportedChain).Inc()
		s.sendError(w, http.StatusNotFound, fmt.Sprintf("unsupported chain: %s", params.ChainID))

	case provider.IsTransport(err):
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonUpstreamError).Inc()
		observability.ErrorsTotal.WithLabelValues(logging.ComponentGateway, "upstream_transport").Inc()
		s.logger.Warn().
			Err(err).
			Str(logging.FieldChainID, params.ChainID).
			Str(logging.FieldProvider, kind.String()).
			Msg("upstream unreachable")
		s.sendError(w, http.StatusBadGateway, "upstream provider unreachable")

	default:
		requestsRejected.WithLabelValues(params.ChainID, rejectReasonUpstreamError).Inc()
		observability.ErrorsTotal.WithLabelValues(logging.ComponentGateway, "internal").Inc()
		s.logger.Error().
			Err(err).
			Str(logging.FieldChainID, params.ChainID).
			Str(logging.FieldProvider, kind.String()).
			Msg("proxy error")
		s.sendError(w, http.StatusInternalServerError, "internal server error")
	}
}

// sendError sends an error response.
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":"%s"}`, message)
}
