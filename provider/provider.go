// Package provider defines the capability contract for upstream JSON-RPC
// node providers and the concrete implementations the gateway proxies to.
//
// Each upstream has divergent URL shapes, credential embedding, and chain
// naming, so the contract is a set of small interfaces: a provider implements
// only what it supports (HTTP-only upstreams skip WSProvider and vice versa).
package provider

import (
	"context"
	"net/http"
)

// Kind is a stable tag identifying a provider implementation. The tag is an
// external contract: it appears in metrics labels and client-facing errors.
type Kind string

const (
	KindAllnodes   Kind = "allnodes"
	KindPublicnode Kind = "publicnode"
)

func (k Kind) String() string {
	return string(k)
}

// QueryParams carries the inbound request selectors supplied by the routing
// layer.
type QueryParams struct {
	// ChainID is the CAIP-2 chain identifier, e.g. "eip155:1".
	ChainID string

	// ProjectID identifies the calling project. Authorization happens
	// upstream of this layer; here it is only used for logging.
	ProjectID string
}

// Response is the normalized upstream response envelope returned by the HTTP
// proxy path. Body bytes are always the upstream's bytes unmodified; only
// StatusCode may differ from what the upstream sent (when a mis-reported
// JSON-RPC error was reclassified). Content-Type is always application/json.
type Response struct {
	StatusCode int
	Body       []byte
}

// Provider is the baseline capability every upstream implementation exposes.
// Implementations are immutable after construction; all methods are pure
// reads safe for concurrent use.
type Provider interface {
	// SupportsChain reports whether the provider services the given
	// CAIP-2 chain identifier.
	SupportsChain(chainID string) bool

	// SupportedChains enumerates the provider's chain identifiers. Used by
	// the routing layer to build its chain->providers index.
	SupportedChains() []string

	// Kind returns the provider's stable tag.
	Kind() Kind
}

// RPCProvider forwards a raw JSON-RPC request body over HTTP.
type RPCProvider interface {
	Provider

	// Proxy forwards body to the upstream endpoint for chainID and returns
	// the normalized response. It returns ErrChainNotFound without any
	// network call when chainID is not in the provider's mapping, and a
	// *TransportError when the upstream cannot be reached or read.
	// It performs no retries and never mutates body.
	Proxy(ctx context.Context, chainID string, body []byte) (*Response, error)
}

// WSProvider bridges an inbound WebSocket upgrade to the upstream.
type WSProvider interface {
	Provider

	// ProxyWS dials the upstream WebSocket endpoint for params.ChainID,
	// completes the inbound upgrade only on success, and relays frames in
	// both directions until the session ends. It blocks for the lifetime
	// of the session.
	//
	// It returns ErrChainNotFound when the chain is not in the provider's
	// WS mapping and a *TransportError when the upstream dial fails; in
	// both cases the inbound connection is never upgraded. ErrUpgradeFailed
	// reports a failed inbound handshake whose error response has already
	// been written.
	ProxyWS(w http.ResponseWriter, r *http.Request, params QueryParams) error
}

// RateLimited is the uniform downstream signal consumed by the routing layer
// to deprioritize a provider. It looks only at the final response status,
// regardless of which code path produced it.
type RateLimited interface {
	// IsRateLimited reports whether the completed response indicates the
	// provider rate-limited the call.
	IsRateLimited(resp *Response) bool
}
