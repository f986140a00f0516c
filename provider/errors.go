package provider

import (
	"errors"
	"fmt"
)

// ErrChainNotFound is returned when a chain identifier is not present in a
// provider's chain mapping. Local and non-retryable: the caller must pick
// another provider or chain id.
var ErrChainNotFound = errors.New("chain not found")

// ErrUpgradeFailed is returned when the inbound WebSocket handshake could not
// be completed. The upgrader has already written the handshake failure to the
// client, so callers must not write to the ResponseWriter again.
var ErrUpgradeFailed = errors.New("websocket upgrade failed")

// TransportError wraps a network-level failure talking to an upstream
// (connect, TLS, body read). Retryable by the routing layer against a
// different provider; this layer performs no retries itself.
type TransportError struct {
	Provider Kind
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: upstream transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-level upstream failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
