package observability

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	config := DefaultServerConfig()

	require.True(t, config.MetricsEnabled)
	require.Equal(t, ":9090", config.MetricsAddr)
	require.False(t, config.PprofEnabled)
}

func TestServer_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewServer(zerolog.Nop(), ServerConfig{
		MetricsEnabled: true,
		MetricsAddr:    "127.0.0.1:0",
	})

	require.NoError(t, server.Start(ctx))
	require.True(t, server.IsRunning())

	// Start is idempotent
	require.NoError(t, server.Start(ctx))

	require.NoError(t, server.Stop())
	require.False(t, server.IsRunning())
}

func TestServer_Disabled(t *testing.T) {
	server := NewServer(zerolog.Nop(), ServerConfig{
		MetricsEnabled: false,
		PprofEnabled:   false,
	})

	require.NoError(t, server.Start(context.Background()))
	require.True(t, server.IsRunning())
	require.NoError(t, server.Stop())
}

func TestRuntimeMetricsCollector_Collect(t *testing.T) {
	collector := NewRuntimeMetricsCollector(
		zerolog.Nop(),
		RuntimeMetricsCollectorConfig{CollectionInterval: time.Hour},
		GatewayFactory,
	)

	require.NoError(t, collector.Start(context.Background()))
	collector.CollectNow()
	collector.Stop()
}
