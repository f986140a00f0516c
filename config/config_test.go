package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.Equal(t, ":8080", config.Server.ListenAddr)
	require.Equal(t, int64(1<<20), config.Server.MaxBodyBytes)
	require.Equal(t, 5, config.Outbound.DialTimeoutSeconds)
	require.True(t, config.Metrics.Enabled)
	require.Nil(t, config.Providers.Allnodes)
	require.Nil(t, config.Providers.Publicnode)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_addr: ":3000"
providers:
  allnodes:
    api_key: "test-key"
    supported_chains:
      "eip155:1": "ethereum"
    supported_ws_chains:
      "eip155:1": "ethereum"
  publicnode:
    supported_chains:
      "eip155:1": "ethereum-rpc"
      "eip155:56": "bsc-rpc"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, ":3000", config.Server.ListenAddr)
	// Defaults survive partial files
	require.Equal(t, 120, config.Server.IdleTimeoutSeconds)

	require.NotNil(t, config.Providers.Allnodes)
	require.Equal(t, "test-key", config.Providers.Allnodes.APIKey)
	require.Equal(t, "ethereum", config.Providers.Allnodes.SupportedChains["eip155:1"])
	require.Len(t, config.Providers.Publicnode.SupportedChains, 2)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv("ALLNODES_API_KEY", "env-key")

	path := writeConfigFile(t, `
providers:
  allnodes:
    supported_chains:
      "eip155:1": "ethereum"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "env-key", config.Providers.Allnodes.APIKey)
}

func TestValidate_NoProviders(t *testing.T) {
	config := DefaultConfig()

	err := config.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one provider")
}

func TestValidate_AllnodesMissingKey(t *testing.T) {
	config := DefaultConfig()
	config.Providers.Allnodes = &AllnodesConfig{
		SupportedChains: map[string]string{"eip155:1": "ethereum"},
	}

	err := config.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "api_key")
}

func TestValidate_PublicnodeNoChains(t *testing.T) {
	config := DefaultConfig()
	config.Providers.Publicnode = &PublicnodeConfig{}

	err := config.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no supported chains")
}
