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
)

// PublicnodeProvider forwards JSON-RPC requests to Publicnode over HTTP.
// Publicnode requires no credential and exposes no WebSocket endpoints, so
// this provider is HTTP-only. Responses are passed through byte-for-byte
// with the Content-Type forced to application/json.
type PublicnodeProvider struct {
	logger          logging.Logger
	client          *http.Client
	supportedChains map[string]string
}

// NewPublicnodeProvider builds the provider from its configuration fragment.
// The chain mapping is copied and immutable thereafter.
func NewPublicnodeProvider(logger logging.Logger, cfg *config.PublicnodeConfig, client *http.Client) *PublicnodeProvider {
	supportedChains := make(map[string]string, len(cfg.SupportedChains))
	for chainID, chain := range cfg.SupportedChains {
		supportedChains[chainID] = chain
	}

	return &PublicnodeProvider{
		logger:          logging.WithProvider(logging.ForComponent(logger, logging.ComponentProvider), KindPublicnode.String()),
		client:          client,
		supportedChains: supportedChains,
	}
}

func (p *PublicnodeProvider) SupportsChain(chainID string) bool {
	_, ok := p.supportedChains[chainID]
	return ok
}

func (p *PublicnodeProvider) SupportedChains() []string {
	chains := make([]string, 0, len(p.supportedChains))
	for chainID := range p.supportedChains {
		chains = append(chains, chainID)
	}
	return chains
}

func (p *PublicnodeProvider) Kind() Kind {
	return KindPublicnode
}

// IsRateLimited reports whether the final response status is 429.
func (p *PublicnodeProvider) IsRateLimited(resp *Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests
}

// Proxy forwards the raw JSON-RPC body to the Publicnode endpoint for
// chainID and passes the response through unchanged.
func (p *PublicnodeProvider) Proxy(ctx context.Context, chainID string, body []byte) (*Response, error) {
	chain, ok := p.supportedChains[chainID]
	if !ok {
		return nil, ErrChainNotFound
	}

	uri := fmt.Sprintf("https://%s.publicnode.com", chain)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Provider: KindPublicnode, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		transportFailures.WithLabelValues(KindPublicnode.String()).Inc()
		return nil, &TransportError{Provider: KindPublicnode, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		transportFailures.WithLabelValues(KindPublicnode.String()).Inc()
		return nil, &TransportError{Provider: KindPublicnode, Err: err}
	}

	upstreamCallDuration.WithLabelValues(KindPublicnode.String(), chainID).Observe(time.Since(start).Seconds())
	upstreamCalls.WithLabelValues(KindPublicnode.String(), chainID, fmt.Sprint(resp.StatusCode)).Inc()

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
