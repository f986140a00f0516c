package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/devEdexa/blockchain-api/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blockchain-api",
		Short: "Multi-provider JSON-RPC gateway for blockchain networks",
		Long: `Multi-provider JSON-RPC gateway.

The gateway accepts inbound HTTP and WebSocket JSON-RPC requests tagged with a
CAIP-2 chain identifier, forwards them to a configured upstream node provider
servicing that chain, and normalizes the upstream response:

- HTTP proxying with reclassification of mis-reported JSON-RPC errors
- Transparent bidirectional WebSocket bridging to upstream nodes
- Per-provider chain mappings and credentials from configuration
- Prometheus metrics at /metrics`,
		Version: cmd.ShortVersion(),
	}

	rootCmd.AddCommand(cmd.GatewayCmd())
	rootCmd.AddCommand(cmd.VersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
