package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	pond "github.com/alitto/pond/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devEdexa/blockchain-api/config"
	"github.com/devEdexa/blockchain-api/gateway"
	"github.com/devEdexa/blockchain-api/logging"
	"github.com/devEdexa/blockchain-api/observability"
	"github.com/devEdexa/blockchain-api/provider"
)

const (
	flagGatewayConfig = "config"
)

// GatewayCmd returns the command for starting the JSON-RPC gateway.
func GatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Start the JSON-RPC gateway (HTTP/WebSocket proxy)",
		Long: `Start the multi-provider JSON-RPC gateway.

The gateway accepts inbound JSON-RPC requests tagged with a CAIP-2 chain
identifier and forwards them to a configured upstream node provider. It is
stateless and can be scaled horizontally behind a load balancer.

Features:
- HTTP JSON-RPC forwarding with error reclassification
- Transparent bidirectional WebSocket bridging
- Prometheus metrics at /metrics

Example:
  blockchain-api gateway --config /path/to/gateway.yaml
`,
		RunE: runGateway,
	}

	cmd.Flags().String(flagGatewayConfig, "", "Path to gateway config file (required)")

	_ = cmd.MarkFlagRequired(flagGatewayConfig)

	return cmd
}

func runGateway(cmd *cobra.Command, _ []string) error {
	startTime := time.Now()

	// Provider credentials may live in a local .env during development
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Load config first (needed for logger configuration)
	configPath, _ := cmd.Flags().GetString(flagGatewayConfig)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up logger from config
	logger := logging.NewLoggerFromConfig(cfg.Logging)

	// Start observability server (metrics and optional pprof)
	if cfg.Metrics.Enabled || cfg.Pprof.Enabled {
		obsServer := observability.NewServer(logger, observability.ServerConfig{
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsAddr:    cfg.Metrics.Addr,
			PprofEnabled:   cfg.Pprof.Enabled,
			PprofAddr:      cfg.Pprof.Addr,
		})
		if err := obsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer func() { _ = obsServer.Stop() }()
		logger.Info().Str(logging.FieldAddr, cfg.Metrics.Addr).Msg("observability server started")
	}

	// Build the provider registry from configuration
	registry := provider.NewRegistry(logger, cfg)

	// Worker pool for async observability work; sized for the low-priority
	// metric recording it carries
	workerPool := pond.NewPool(runtime.NumCPU())
	defer workerPool.StopAndWait()

	server := gateway.NewServer(logger, cfg.Server, registry, workerPool)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	observability.ProcessInfo.WithLabelValues(ShortVersion(), "gateway").Set(1)
	observability.StartupDurationSeconds.WithLabelValues("gateway").Set(time.Since(startTime).Seconds())

	logger.Info().
		Str(logging.FieldListenAddr, cfg.Server.ListenAddr).
		Int(logging.FieldCount, len(registry.Providers())).
		Msg("gateway started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping gateway...")
	case <-ctx.Done():
	}

	cancel()
	_ = server.Close()

	logger.Info().Msg("gateway stopped")
	return nil
}
