package config

// ProvidersConfig holds the per-provider configuration fragments.
// A nil fragment means the provider is not enabled.
type ProvidersConfig struct {
	Allnodes   *AllnodesConfig   `yaml:"allnodes,omitempty"`
	Publicnode *PublicnodeConfig `yaml:"publicnode,omitempty"`
}

// AllnodesConfig configures the Allnodes upstream provider.
//
// SupportedChains and SupportedWsChains map CAIP-2 chain identifiers
// (e.g. "eip155:1") to the Allnodes network subdomain token (e.g. "ethereum").
// The two maps may differ: not every HTTP network has a WebSocket endpoint.
type AllnodesConfig struct {
	// APIKey is embedded in upstream URLs. If empty, the ALLNODES_API_KEY
	// environment variable is used.
	APIKey string `yaml:"api_key"`

	SupportedChains   map[string]string `yaml:"supported_chains"`
	SupportedWsChains map[string]string `yaml:"supported_ws_chains,omitempty"`
}

// PublicnodeConfig configures the Publicnode upstream provider.
// Publicnode requires no credential and has no WebSocket endpoints.
type PublicnodeConfig struct {
	// SupportedChains maps CAIP-2 chain identifiers to the Publicnode
	// subdomain token (e.g. "eip155:1" -> "ethereum-rpc").
	SupportedChains map[string]string `yaml:"supported_chains"`
}
