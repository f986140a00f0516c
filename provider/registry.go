package provider

import (
	"net/http"

	"github.com/devEdexa/blockchain-api/config"
	"github.com/devEdexa/blockchain-api/logging"
)

// factoryFunc constructs the provider instances for one kind from the root
// configuration. It returns nothing when the kind is not configured.
type factoryFunc func(logger logging.Logger, cfg *config.Config, client *http.Client) []Provider

// factories is the dispatch table keyed by provider kind. Adding an upstream
// means adding a Kind constant, an implementation, and an entry here.
var factories = map[Kind]factoryFunc{
	KindAllnodes:   newAllnodesProviders,
	KindPublicnode: newPublicnodeProviders,
}

// kindOrder fixes iteration order so registry construction is deterministic.
var kindOrder = []Kind{KindAllnodes, KindPublicnode}

func newAllnodesProviders(logger logging.Logger, cfg *config.Config, client *http.Client) []Provider {
	fragment := cfg.Providers.Allnodes
	if fragment == nil {
		return nil
	}

	var providers []Provider
	if len(fragment.SupportedChains) > 0 {
		providers = append(providers, NewAllnodesProvider(logger, fragment, client))
	}
	if len(fragment.SupportedWsChains) > 0 {
		providers = append(providers, NewAllnodesWSProvider(logger, fragment, cfg.Outbound.WsDialTimeout()))
	}
	return providers
}

func newPublicnodeProviders(logger logging.Logger, cfg *config.Config, client *http.Client) []Provider {
	fragment := cfg.Providers.Publicnode
	if fragment == nil {
		return nil
	}
	return []Provider{NewPublicnodeProvider(logger, fragment, client)}
}

// Registry holds the configured provider instances and the immutable
// chain->providers indexes built from their SupportedChains at startup.
//
// Selection policy (weighting, failover ordering) lives outside this layer;
// lookups here return the first-registered provider for a chain.
type Registry struct {
	logger     logging.Logger
	providers  []Provider
	rpcByChain map[string][]RPCProvider
	wsByChain  map[string][]WSProvider
}

// NewRegistry builds every configured provider through the dispatch table,
// sharing one pooled outbound HTTP client across the HTTP providers.
func NewRegistry(logger logging.Logger, cfg *config.Config) *Registry {
	client := NewHTTPClient(cfg.Outbound)

	var providers []Provider
	for _, kind := range kindOrder {
		providers = append(providers, factories[kind](logger, cfg, client)...)
	}

	return NewStaticRegistry(logger, providers...)
}

// NewStaticRegistry builds a registry over pre-constructed providers.
func NewStaticRegistry(logger logging.Logger, providers ...Provider) *Registry {
	r := &Registry{
		logger:     logging.ForComponent(logger, logging.ComponentProvider),
		providers:  providers,
		rpcByChain: make(map[string][]RPCProvider),
		wsByChain:  make(map[string][]WSProvider),
	}

	for _, p := range providers {
		rpcProvider, isRPC := p.(RPCProvider)
		wsProvider, isWS := p.(WSProvider)
		for _, chainID := range p.SupportedChains() {
			if isRPC {
				r.rpcByChain[chainID] = append(r.rpcByChain[chainID], rpcProvider)
			}
			if isWS {
				r.wsByChain[chainID] = append(r.wsByChain[chainID], wsProvider)
			}
		}
		r.logger.Info().
			Str(logging.FieldProvider, p.Kind().String()).
			Int(logging.FieldCount, len(p.SupportedChains())).
			Msg("registered provider")
	}

	return r
}

// Providers returns all registered provider instances.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// RPCProviderFor returns the first-registered HTTP provider for chainID.
func (r *Registry) RPCProviderFor(chainID string) (RPCProvider, bool) {
	providers := r.rpcByChain[chainID]
	if len(providers) == 0 {
		return nil, false
	}
	return providers[0], true
}

// WSProviderFor returns the first-registered WebSocket provider for chainID.
func (r *Registry) WSProviderFor(chainID string) (WSProvider, bool) {
	providers := r.wsByChain[chainID]
	if len(providers) == 0 {
		return nil, false
	}
	return providers[0], true
}
