package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devEdexa/blockchain-api/logging"
)

// Config is the root gateway configuration.
type Config struct {
	Server    ServerConfig        `yaml:"server"`
	Outbound  HTTPTransportConfig `yaml:"outbound"`
	Logging   logging.Config      `yaml:"logging"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Pprof     PprofConfig         `yaml:"pprof"`
	Providers ProvidersConfig     `yaml:"providers"`
}

// ServerConfig configures the inbound HTTP/WebSocket server.
type ServerConfig struct {
	// ListenAddr is the address the gateway listens on.
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr"`

	// ReadTimeoutSeconds is the max time for reading an entire inbound
	// request including the body. Default: 30
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds"`

	// IdleTimeoutSeconds is how long idle keep-alive connections stay open.
	// Default: 120
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`

	// ShutdownTimeoutSeconds bounds graceful shutdown. Default: 30
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`

	// MaxBodyBytes limits inbound JSON-RPC request bodies. Default: 1MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// HTTPTransportConfig configures the shared outbound HTTP client used for
// upstream calls. Zero values fall back to defaults; a bounded connect and
// response-header timeout is always applied so a hung upstream cannot block
// a proxy call indefinitely.
type HTTPTransportConfig struct {
	MaxIdleConns                 int  `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost          int  `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost              int  `yaml:"max_conns_per_host"`
	IdleConnTimeoutSeconds       int  `yaml:"idle_conn_timeout_seconds"`
	DialTimeoutSeconds           int  `yaml:"dial_timeout_seconds"`
	TLSHandshakeTimeoutSeconds   int  `yaml:"tls_handshake_timeout_seconds"`
	ResponseHeaderTimeoutSeconds int  `yaml:"response_header_timeout_seconds"`
	RequestTimeoutSeconds        int  `yaml:"request_timeout_seconds"`
	DisableCompression           bool `yaml:"disable_compression"`

	// WsDialTimeoutSeconds bounds the outbound WebSocket handshake.
	// Default: 10
	WsDialTimeoutSeconds int `yaml:"ws_dial_timeout_seconds"`
}

// WsDialTimeout returns the outbound WebSocket handshake timeout.
func (c HTTPTransportConfig) WsDialTimeout() time.Duration {
	if c.WsDialTimeoutSeconds > 0 {
		return time.Duration(c.WsDialTimeoutSeconds) * time.Second
	}
	return 10 * time.Second
}

// DefaultConfig returns a Config with production defaults.
// Provider fragments default to nil (disabled) and must come from the file.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:             ":8080",
			ReadTimeoutSeconds:     30,
			IdleTimeoutSeconds:     120,
			ShutdownTimeoutSeconds: 30,
			MaxBodyBytes:           1 << 20,
		},
		Outbound: HTTPTransportConfig{
			MaxIdleConns:                 500,
			MaxIdleConnsPerHost:          100,
			MaxConnsPerHost:              500,
			IdleConnTimeoutSeconds:       90,
			DialTimeoutSeconds:           5,
			TLSHandshakeTimeoutSeconds:   10,
			ResponseHeaderTimeoutSeconds: 30,
			RequestTimeoutSeconds:        60,
			WsDialTimeoutSeconds:         10,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Pprof: PprofConfig{
			Enabled: false,
			Addr:    "localhost:6060",
		},
	}
}

// LoadConfig reads, defaults, env-expands and validates a yaml config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// applyEnv fills credentials omitted from the file from the environment.
func (c *Config) applyEnv() {
	if c.Providers.Allnodes != nil && c.Providers.Allnodes.APIKey == "" {
		c.Providers.Allnodes.APIKey = os.Getenv("ALLNODES_API_KEY")
	}
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	if c.Providers.Allnodes == nil && c.Providers.Publicnode == nil {
		return fmt.Errorf("at least one provider must be configured")
	}

	if a := c.Providers.Allnodes; a != nil {
		if a.APIKey == "" {
			return fmt.Errorf("providers.allnodes.api_key is required (or set ALLNODES_API_KEY)")
		}
		if len(a.SupportedChains) == 0 && len(a.SupportedWsChains) == 0 {
			return fmt.Errorf("providers.allnodes: no supported chains configured")
		}
	}

	if p := c.Providers.Publicnode; p != nil {
		if len(p.SupportedChains) == 0 {
			return fmt.Errorf("providers.publicnode: no supported chains configured")
		}
	}

	return nil
}
