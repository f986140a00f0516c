package ws

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// sessions tracks live bridges so graceful shutdown can close them.
// Bridges register on construction and deregister when they close;
// sessions share no other state.
var sessions = xsync.NewMap[*Bridge, struct{}]()

func registerSession(b *Bridge) {
	sessions.Store(b, struct{}{})
}

func deregisterSession(b *Bridge) {
	sessions.Delete(b)
}

// ActiveSessions returns the number of live bridges.
func ActiveSessions() int {
	return sessions.Size()
}

// CloseAll closes every live bridge with a GoingAway close frame.
// Used during gateway shutdown.
func CloseAll() {
	sessions.Range(func(b *Bridge, _ struct{}) bool {
		_ = b.closeWithReason(CloseGoingAway, "gateway shutting down", closeInitiatorGateway)
		return true
	})
}
