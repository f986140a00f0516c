package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devEdexa/blockchain-api/config"
	"github.com/devEdexa/blockchain-api/logging"
	"github.com/devEdexa/blockchain-api/observability"
	"github.com/devEdexa/blockchain-api/ws"
)

// AllnodesProvider forwards JSON-RPC requests to Allnodes over HTTP.
// The API key is embedded in the upstream URL path.
type AllnodesProvider struct {
	logger          logging.Logger
	client          *http.Client
	supportedChains map[string]string
	apiKey          string
}

// NewAllnodesProvider builds the HTTP provider from its configuration
// fragment. The chain mapping is copied and immutable thereafter; no network
// I/O happens here.
func NewAllnodesProvider(logger logging.Logger, cfg *config.AllnodesConfig, client *http.Client) *AllnodesProvider {
	supportedChains := make(map[string]string, len(cfg.SupportedChains))
	for chainID, chain := range cfg.SupportedChains {
		supportedChains[chainID] = chain
	}

	return &AllnodesProvider{
		logger:          logging.WithProvider(logging.ForComponent(logger, logging.ComponentProvider), KindAllnodes.String()),
		client:          client,
		supportedChains: supportedChains,
		apiKey:          cfg.APIKey,
	}
}

func (p *AllnodesProvider) SupportsChain(chainID string) bool {
	_, ok := p.supportedChains[chainID]
	return ok
}

func (p *AllnodesProvider) SupportedChains() []string {
	chains := make([]string, 0, len(p.supportedChains))
	for chainID := range p.supportedChains {
		chains = append(chains, chainID)
	}
	return chains
}

func (p *AllnodesProvider) Kind() Kind {
	return KindAllnodes
}

// IsRateLimited reports whether the final response status is 429.
func (p *AllnodesProvider) IsRateLimited(resp *Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests
}

// Proxy forwards the raw JSON-RPC body to the Allnodes endpoint for chainID.
//
// Allnodes sometimes returns HTTP 200 with a JSON-RPC error body for
// conditions that are really rate-limiting or node failure; such responses
// are reclassified to 429/500 with the body bytes passed through untouched.
func (p *AllnodesProvider) Proxy(ctx context.Context, chainID string, body []byte) (*Response, error) {
	chain, ok := p.supportedChains[chainID]
	if !ok {
		return nil, ErrChainNotFound
	}

	uri := fmt.Sprintf("https://%s.allnodes.me:8545/%s", chain, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Provider: KindAllnodes, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		transportFailures.WithLabelValues(KindAllnodes.String()).Inc()
		return nil, &TransportError{Provider: KindAllnodes, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		transportFailures.WithLabelValues(KindAllnodes.String()).Inc()
		return nil, &TransportError{Provider: KindAllnodes, Err: err}
	}

	upstreamCallDuration.WithLabelValues(KindAllnodes.String(), chainID).Observe(time.Since(start).Seconds())

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		switch verdict := ClassifyBody(respBody); verdict {
		case VerdictRateLimited:
			p.logger.Warn().
				Str(logging.FieldChainID, chainID).
				Int(logging.FieldStatus, status).
				Msg("upstream returned JSON-RPC rate-limit error with success status")
			reclassifiedResponses.WithLabelValues(KindAllnodes.String(), verdict.String()).Inc()
			upstreamCalls.WithLabelValues(KindAllnodes.String(), chainID, "429").Inc()
			return &Response{StatusCode: http.StatusTooManyRequests, Body: respBody}, nil
		case VerdictNodeError:
			p.logger.Warn().
				Str(logging.FieldChainID, chainID).
				Int(logging.FieldStatus, status).
				Msg("upstream returned JSON-RPC node error with success status")
			reclassifiedResponses.WithLabelValues(KindAllnodes.String(), verdict.String()).Inc()
			upstreamCalls.WithLabelValues(KindAllnodes.String(), chainID, "500").Inc()
			return &Response{StatusCode: http.StatusInternalServerError, Body: respBody}, nil
		}
	}

	upstreamCalls.WithLabelValues(KindAllnodes.String(), chainID, fmt.Sprint(status)).Inc()
	return &Response{StatusCode: status, Body: respBody}, nil
}

// AllnodesWSProvider bridges WebSocket sessions to Allnodes. The WS chain
// mapping may differ from the HTTP one: not every network exposes a
// WebSocket endpoint.
type AllnodesWSProvider struct {
	logger          logging.Logger
	supportedChains map[string]string
	apiKey          string
	dialTimeout     time.Duration
}

// NewAllnodesWSProvider builds the WS provider from its configuration
// fragment. No network I/O happens here; a fresh upstream connection is
// dialed per session.
func NewAllnodesWSProvider(logger logging.Logger, cfg *config.AllnodesConfig, dialTimeout time.Duration) *AllnodesWSProvider {
	supportedChains := make(map[string]string, len(cfg.SupportedWsChains))
	for chainID, chain := range cfg.SupportedWsChains {
		supportedChains[chainID] = chain
	}

	return &AllnodesWSProvider{
		logger:          logging.WithProvider(logging.ForComponent(logger, logging.ComponentProvider), KindAllnodes.String()),
		supportedChains: supportedChains,
		apiKey:          cfg.APIKey,
		dialTimeout:     dialTimeout,
	}
}

func (p *AllnodesWSProvider) SupportsChain(chainID string) bool {
	_, ok := p.supportedChains[chainID]
	return ok
}

func (p *AllnodesWSProvider) SupportedChains() []string {
	chains := make([]string, 0, len(p.supportedChains))
	for chainID := range p.supportedChains {
		chains = append(chains, chainID)
	}
	return chains
}

func (p *AllnodesWSProvider) Kind() Kind {
	return KindAllnodes
}

// IsRateLimited reports whether the final response status is 429.
func (p *AllnodesWSProvider) IsRateLimited(resp *Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests
}

// ProxyWS dials the Allnodes WebSocket endpoint for the chain, upgrades the
// inbound connection only once the upstream is reachable, and bridges frames
// until the session ends. A non-nil error means the session never started;
// except for ErrUpgradeFailed the inbound connection was never written to.
func (p *AllnodesWSProvider) ProxyWS(w http.ResponseWriter, r *http.Request, params QueryParams) error {
	chain, ok := p.supportedChains[params.ChainID]
	if !ok {
		return ErrChainNotFound
	}

	uri := fmt.Sprintf("wss://%s.allnodes.me:8546/%s", chain, p.apiKey)

	upstreamConn, err := ws.DialUpstream(uri, nil, p.dialTimeout)
	if err != nil {
		transportFailures.WithLabelValues(KindAllnodes.String()).Inc()
		return &TransportError{Provider: KindAllnodes, Err: err}
	}

	clientConn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = upstreamConn.Close()
		// Upgrader already wrote the handshake failure to the client
		p.logger.Warn().Err(err).Str(logging.FieldChainID, params.ChainID).Msg("inbound upgrade failed")
		return fmt.Errorf("%w: %s", ErrUpgradeFailed, err)
	}

	bridge := ws.NewBridge(p.logger, KindAllnodes.String(), params.ProjectID, clientConn, upstreamConn)

	// The session runs under the named task-metrics recorder; recording
	// never alters bridging semantics.
	if err := observability.WsProxyTaskMetrics.WithName(KindAllnodes.String()).Run(bridge.Run); err != nil {
		p.logger.Debug().
			Err(err).
			Str(logging.FieldChainID, params.ChainID).
			Msg("websocket session ended abnormally")
	}
	return nil
}
