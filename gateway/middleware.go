package gateway

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/devEdexa/blockchain-api/logging"
)

// PanicRecoveryMiddleware prevents handler panics from crashing the server.
// A recovered panic answers the request with 500 when no bytes were written
// yet; a hijacked WebSocket connection is left to its own close path.
func PanicRecoveryMiddleware(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.PanicRecoveriesTotal.WithLabelValues(logging.ComponentGateway).Inc()

				logger.Error().
					Str(logging.FieldComponent, logging.ComponentGateway).
					Str(logging.FieldURL, r.URL.Path).
					Str(logging.FieldRemoteAddr, r.RemoteAddr).
					Str("panic_value", fmt.Sprintf("%v", rec)).
					Str("stack_trace", string(debug.Stack())).
					Msg("PANIC RECOVERED in HTTP handler")

				// Best effort; fails harmlessly if the response already started
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = fmt.Fprint(w, `{"error":"internal server error"}`)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
