// Package logging provides centralized logging utilities for the gateway.
// It defines standardized field names and helper functions to ensure
// consistent structured logging across all components.
package logging

// Standard field name constants for structured logging.
// Using constants ensures consistency and prevents typos across the codebase.
const (
	// Component identification
	FieldComponent = "component"

	// Provider/chain identification
	FieldProvider  = "provider"
	FieldChainID   = "chain_id"
	FieldChain     = "chain"
	FieldProjectID = "project_id"

	// Operation fields
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldStatus    = "status"
	FieldReason    = "reason"
	FieldSource    = "source"
	FieldDirection = "direction"
	FieldTask      = "task"

	// Network/connection fields
	FieldAddr       = "addr"
	FieldListenAddr = "listen_addr"
	FieldRemoteAddr = "remote_addr"
	FieldURL        = "url"

	// Timing fields
	FieldDuration = "duration"
	FieldLatency  = "latency"

	// Count/size fields
	FieldCount = "count"
	FieldSize  = "size"

	// Error fields
	FieldErrorType = "error_type"
)

// Component name constants used with FieldComponent.
const (
	ComponentGateway        = "gateway"
	ComponentProvider       = "provider"
	ComponentBridge         = "ws_bridge"
	ComponentObservability  = "observability"
	ComponentConfig         = "config"
	ComponentRuntimeMetrics = "runtime_metrics"
)
