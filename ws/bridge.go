// Package ws implements the bidirectional WebSocket bridge between an
// inbound client connection and an outbound upstream node connection.
//
// A bridge relays frames verbatim in both directions, preserving frame
// type and per-direction order, until either side closes or errors. On
// termination both sockets are closed; no half-open sockets are left behind.
package ws

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devEdexa/blockchain-api/logging"
)

// WebSocket timeout constants for connection keep-alive. Bridged sessions are
// long-lived; these govern ping/pong health checks, not request timeouts.
const (
	// writeWait is the time allowed to write a message to a peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to wait for the next pong message.
	pongWait = 30 * time.Second

	// pingPeriod is how often pings are sent. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// RFC 6455 close codes used by the bridge.
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.1
const (
	CloseNormalClosure   = 1000 // Normal closure
	CloseGoingAway       = 1001 // Endpoint is going away
	CloseProtocolError   = 1002 // Protocol error
	CloseInternalError   = 1011 // Unexpected condition
	CloseServiceRestart  = 1012 // Server is restarting
	CloseTryAgainLater   = 1013 // Server overloaded
)

// closeCodeName returns a human-readable name for a WebSocket close code.
func closeCodeName(code int) string {
	switch code {
	case CloseNormalClosure:
		return "NormalClosure"
	case CloseGoingAway:
		return "GoingAway"
	case CloseProtocolError:
		return "ProtocolError"
	case CloseInternalError:
		return "InternalError"
	case CloseServiceRestart:
		return "ServiceRestart"
	case CloseTryAgainLater:
		return "TryAgainLater"
	default:
		return "Unknown"
	}
}

// side identifies one leg of a bridged session.
type side string

const (
	sideClient   side = "client"   // inbound caller
	sideUpstream side = "upstream" // upstream node provider
)

// closeInitiator identifies who initiated a bridge close.
type closeInitiator string

const (
	closeInitiatorClient   closeInitiator = "client"
	closeInitiatorUpstream closeInitiator = "upstream"
	closeInitiatorGateway  closeInitiator = "gateway"
)

// message is one relayed frame, or a close request queued behind the data
// frames that arrived before it.
type message struct {
	data        []byte
	source      side
	messageType int

	isClose   bool
	closeCode int
	closeText string
	initiator closeInitiator
}

// Upgrader upgrades inbound HTTP connections to WebSocket.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Accept connections from any origin; project authorization happens
	// upstream of this layer.
	CheckOrigin: func(r *http.Request) bool { return true },
	// Enable per-message compression (RFC 7692 - permessage-deflate)
	EnableCompression: true,
}

// IsUpgrade reports whether the request asks for a WebSocket upgrade.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// DialUpstream establishes the outbound WebSocket connection to an upstream
// node. The handshake is bounded by dialTimeout.
func DialUpstream(upstreamURL string, header http.Header, dialTimeout time.Duration) (*websocket.Conn, error) {
	parsedURL, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}

	dialer := &websocket.Dialer{
		EnableCompression: true,
		HandshakeTimeout:  dialTimeout,
	}
	if parsedURL.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{}
	}

	conn, resp, err := dialer.Dial(upstreamURL, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// Bridge relays frames between an inbound client connection and an outbound
// upstream connection. Sessions are fully independent: a bridge holds no
// state shared with any other bridge.
type Bridge struct {
	logger       logging.Logger
	provider     string
	projectID    string
	clientConn   *websocket.Conn
	upstreamConn *websocket.Conn

	msgChan chan message

	ctx       context.Context
	cancelFn  context.CancelFunc
	closed    atomic.Bool
	closeCode atomic.Int64
	wg        sync.WaitGroup
}

// NewBridge creates a bridge over an already-upgraded client connection and
// an already-dialed upstream connection. The provider tag labels metrics.
func NewBridge(logger logging.Logger, provider, projectID string, clientConn, upstreamConn *websocket.Conn) *Bridge {
	ctx, cancelFn := context.WithCancel(context.Background())

	bridge := &Bridge{
		logger: logger.With().
			Str(logging.FieldComponent, logging.ComponentBridge).
			Str(logging.FieldProvider, provider).
			Str(logging.FieldProjectID, projectID).
			Logger(),
		provider:     provider,
		projectID:    projectID,
		clientConn:   clientConn,
		upstreamConn: upstreamConn,
		msgChan:      make(chan message, 256),
		ctx:          ctx,
		cancelFn:     cancelFn,
	}

	registerSession(bridge)
	connectionsActive.WithLabelValues(provider).Inc()
	connectionsTotal.WithLabelValues(provider).Inc()

	return bridge
}

// Run relays frames until either side closes, errors, or stops answering
// pings. It blocks for the lifetime of the session and closes both sockets
// before returning. The returned error is non-nil when the session ended
// abnormally (anything but a normal or going-away closure).
func (b *Bridge) Run() error {
	b.setControlHandlers(b.clientConn, b.upstreamConn)
	b.setControlHandlers(b.upstreamConn, b.clientConn)

	b.wg.Add(2)
	go logging.RecoverGoRoutine(b.logger, "bridge_read_client", func(ctx context.Context) {
		b.readLoop(b.clientConn, sideClient)
	})(b.ctx)
	go logging.RecoverGoRoutine(b.logger, "bridge_read_upstream", func(ctx context.Context) {
		b.readLoop(b.upstreamConn, sideUpstream)
	})(b.ctx)

	b.wg.Add(2)
	go logging.RecoverGoRoutine(b.logger, "bridge_ping_client", func(ctx context.Context) {
		b.pingLoop(b.clientConn, sideClient)
	})(b.ctx)
	go logging.RecoverGoRoutine(b.logger, "bridge_ping_upstream", func(ctx context.Context) {
		b.pingLoop(b.upstreamConn, sideUpstream)
	})(b.ctx)

	b.messageLoop()
	b.wg.Wait()

	code := int(b.closeCode.Load())
	b.logger.Debug().
		Int("close_code", code).
		Str("close_code_name", closeCodeName(code)).
		Msg("websocket bridge stopped")

	if code != CloseNormalClosure && code != CloseGoingAway {
		return &CloseError{Code: code}
	}
	return nil
}

// setControlHandlers wires ping/pong pass-through on conn toward other.
// Control frames are mirrored so the upstream sees client liveness probes and
// vice versa; read deadlines reset on any control traffic.
func (b *Bridge) setControlHandlers(conn, other *websocket.Conn) {
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		deadline := time.Now().Add(writeWait)
		// Answer locally, mirror to the peer
		_ = conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
		_ = other.WriteControl(websocket.PingMessage, []byte(appData), deadline)
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		_ = other.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		return nil
	})
}

// readLoop reads data frames from one leg and queues them for relay.
func (b *Bridge) readLoop(conn *websocket.Conn, source side) {
	defer b.wg.Done()

	for {
		if b.closed.Load() {
			return
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-b.ctx.Done():
				// Expected during bridge shutdown
				b.logger.Debug().
					Str(logging.FieldSource, string(source)).
					Msg("readLoop exiting due to shutdown")
				return
			default:
				b.logCloseError(err, source)
			}

			// Propagate the peer's close code to the other side. The close
			// goes through the relay queue so data frames already received
			// from this peer are forwarded before the close frame.
			closeCode, closeText := extractCloseInfo(err)
			if closeCode == 0 {
				// Not a close frame - peer dropped without a handshake
				closeCode = CloseGoingAway
				closeText = "peer disconnected"
			}
			b.enqueueClose(closeCode, closeText, closeInitiator(source), source)
			return
		}

		// Reset read deadline on each message, not just pongs. Long-running
		// subscriptions can push frequent data frames while being slow to
		// answer pings.
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			b.logger.Warn().Err(err).Str(logging.FieldSource, string(source)).Msg("failed to reset read deadline")
		}

		select {
		case <-b.ctx.Done():
			return
		case b.msgChan <- message{data: data, source: source, messageType: messageType}:
		}
	}
}

// pingLoop sends periodic pings on one leg to keep it alive.
func (b *Bridge) pingLoop(conn *websocket.Conn, leg side) {
	defer b.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		b.logger.Debug().Err(err).Str(logging.FieldSource, string(leg)).Msg("failed to set initial read deadline")
	}

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				b.logger.Debug().
					Err(err).
					Str(logging.FieldSource, string(leg)).
					Msg("ping failed - connection may be dead")
				_ = b.closeWithReason(CloseGoingAway, "ping timeout", closeInitiator(leg))
				return
			}
		}
	}
}

// messageLoop relays queued frames to the opposite leg. FIFO order within a
// direction is preserved by the single consumer; a peer close is handled only
// after every frame queued ahead of it has been forwarded.
func (b *Bridge) messageLoop() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg := <-b.msgChan:
			if msg.isClose {
				_ = b.closeWithReason(msg.closeCode, msg.closeText, msg.initiator)
				return
			}
			switch msg.source {
			case sideClient:
				b.forward(msg, b.upstreamConn, "client_to_upstream")
			case sideUpstream:
				b.forward(msg, b.clientConn, "upstream_to_client")
			}
		}
	}
}

// enqueueClose queues a close behind the data frames already relayed from the
// same peer. A done context means another close already won.
func (b *Bridge) enqueueClose(code int, text string, initiator closeInitiator, source side) {
	select {
	case b.msgChan <- message{isClose: true, closeCode: code, closeText: text, initiator: initiator, source: source}:
	case <-b.ctx.Done():
	}
}

// forward writes one frame verbatim to the destination leg.
func (b *Bridge) forward(msg message, dst *websocket.Conn, direction string) {
	framesForwarded.WithLabelValues(b.provider, direction).Inc()

	if err := dst.WriteMessage(msg.messageType, msg.data); err != nil {
		b.logger.Warn().
			Err(err).
			Str(logging.FieldDirection, direction).
			Msg("failed to forward frame")
		_ = b.closeWithReason(CloseInternalError, "peer write failed", closeInitiatorGateway)
	}
}

// logCloseError logs a read error with close-frame details when present.
func (b *Bridge) logCloseError(err error, source side) {
	if closeErr, ok := err.(*websocket.CloseError); ok {
		b.logger.Debug().
			Str(logging.FieldSource, string(source)).
			Int("close_code", closeErr.Code).
			Str("close_text", closeErr.Text).
			Msg("peer sent close frame")
		return
	}
	b.logger.Debug().Err(err).Str(logging.FieldSource, string(source)).Msg("read failed")
}

// extractCloseInfo returns the close code and text from a read error, or
// (0, "") when the error is not a close frame.
func extractCloseInfo(err error) (int, string) {
	if closeErr, ok := err.(*websocket.CloseError); ok {
		return closeErr.Code, closeErr.Text
	}
	return 0, ""
}

// sanitizeCloseCode maps reserved or out-of-range codes to codes that may be
// sent on the wire.
func sanitizeCloseCode(code int) int {
	// 1005/1006/1015 are reserved and must not be sent
	if code == websocket.CloseNoStatusReceived ||
		code == websocket.CloseAbnormalClosure ||
		code == websocket.CloseTLSHandshake {
		return CloseGoingAway
	}
	if code < 1000 || code > 4999 {
		return CloseGoingAway
	}
	return code
}

// closeWithReason closes both legs with a close frame carrying the given
// code. Idempotent; only the first caller wins.
func (b *Bridge) closeWithReason(code int, reason string, initiator closeInitiator) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	deregisterSession(b)
	connectionsActive.WithLabelValues(b.provider).Dec()

	code = sanitizeCloseCode(code)
	b.closeCode.Store(int64(code))

	b.logger.Debug().
		Int("close_code", code).
		Str("close_code_name", closeCodeName(code)).
		Str(logging.FieldReason, reason).
		Str("initiated_by", string(initiator)).
		Msg("websocket bridge closing")

	b.cancelFn()

	deadline := time.Now().Add(writeWait)
	closeMsg := websocket.FormatCloseMessage(code, reason)
	if err := b.clientConn.WriteControl(websocket.CloseMessage, closeMsg, deadline); err != nil {
		b.logger.Debug().Err(err).Msg("failed to send close to client")
	}
	if err := b.upstreamConn.WriteControl(websocket.CloseMessage, closeMsg, deadline); err != nil {
		b.logger.Debug().Err(err).Msg("failed to send close to upstream")
	}

	// Give peers a moment to receive the close frame
	time.Sleep(100 * time.Millisecond)

	_ = b.clientConn.Close()
	_ = b.upstreamConn.Close()

	return nil
}

// Close shuts down the bridge with a normal closure.
func (b *Bridge) Close() error {
	return b.closeWithReason(CloseNormalClosure, "bridge closing", closeInitiatorGateway)
}

// CloseError reports an abnormal bridge termination.
type CloseError struct {
	Code int
}

func (e *CloseError) Error() string {
	return "websocket bridge closed abnormally: " + closeCodeName(e.Code)
}
