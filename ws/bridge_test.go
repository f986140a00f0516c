package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// newEchoUpstream starts a WebSocket server that echoes every data frame with
// an "echo:" prefix, preserving the frame type.
func newEchoUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(messageType, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newBridgeServer starts a server that bridges every inbound connection to
// the given upstream and reports the bridge result on the returned channel.
func newBridgeServer(t *testing.T, upstream *httptest.Server) (*httptest.Server, chan error) {
	t.Helper()

	runResult := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamConn, err := DialUpstream(wsURL(upstream), nil, 5*time.Second)
		if err != nil {
			t.Errorf("upstream dial failed: %v", err)
			return
		}
		clientConn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			_ = upstreamConn.Close()
			t.Errorf("inbound upgrade failed: %v", err)
			return
		}

		bridge := NewBridge(zerolog.Nop(), "allnodes", "test-project", clientConn, upstreamConn)
		runResult <- bridge.Run()
	}))
	t.Cleanup(srv.Close)
	return srv, runResult
}

func TestBridge_RelaysFramesInOrder(t *testing.T) {
	upstream := newEchoUpstream(t)
	bridgeSrv, runResult := newBridgeServer(t, upstream)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(bridgeSrv), nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("msg-%d", i))))
	}

	// Per-direction order survives the bridge
	for i := 0; i < n; i++ {
		messageType, data, err := client.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, messageType)
		require.Equal(t, fmt.Sprintf("echo:msg-%d", i), string(data))
	}

	require.NoError(t, client.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseNormalClosure, "done"),
		time.Now().Add(time.Second),
	))

	select {
	case err := <-runResult:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop after client close")
	}
}

func TestBridge_PreservesFrameType(t *testing.T) {
	upstream := newEchoUpstream(t)
	bridgeSrv, _ := newBridgeServer(t, upstream)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(bridgeSrv), nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))

	messageType, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, messageType)
	require.Equal(t, []byte("echo:\x01\x02\x03"), data)
}

func TestBridge_PropagatesUpstreamClose(t *testing.T) {
	// Upstream pushes a burst of frames immediately followed by a close with
	// TryAgainLater. Every pushed frame must reach the client, in order,
	// before the close does.
	const n = 5
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for i := 0; i < n; i++ {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf("pushed-%d", i)))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseTryAgainLater, "overloaded"),
			time.Now().Add(time.Second),
		)
		// Wait for the close reply before tearing down the socket
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(upstream.Close)

	bridgeSrv, runResult := newBridgeServer(t, upstream)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(bridgeSrv), nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	for i := 0; i < n; i++ {
		_, data, err := client.ReadMessage()
		require.NoError(t, err, "frame %d must arrive before the close", i)
		require.Equal(t, fmt.Sprintf("pushed-%d", i), string(data))
	}

	// The upstream's close code reaches the client only after its data
	_, _, err = client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, CloseTryAgainLater, closeErr.Code)

	select {
	case err := <-runResult:
		var bridgeErr *CloseError
		require.ErrorAs(t, err, &bridgeErr)
		require.Equal(t, CloseTryAgainLater, bridgeErr.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop after upstream close")
	}
}

func TestBridge_SessionTracking(t *testing.T) {
	upstream := newEchoUpstream(t)
	bridgeSrv, runResult := newBridgeServer(t, upstream)

	before := ActiveSessions()

	client, _, err := websocket.DefaultDialer.Dial(wsURL(bridgeSrv), nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.Eventually(t, func() bool {
		return ActiveSessions() == before+1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseNormalClosure, "done"),
		time.Now().Add(time.Second),
	))

	select {
	case <-runResult:
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
	}
	require.Equal(t, before, ActiveSessions())
}

func TestBridge_CloseAll(t *testing.T) {
	upstream := newEchoUpstream(t)
	bridgeSrv, runResult := newBridgeServer(t, upstream)

	client, _, err := websocket.DefaultDialer.Dial(wsURL(bridgeSrv), nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.Eventually(t, func() bool {
		return ActiveSessions() > 0
	}, 2*time.Second, 10*time.Millisecond)

	CloseAll()

	// Shutdown surfaces as a going-away close on the client side
	_, _, err = client.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, CloseGoingAway, closeErr.Code)

	select {
	case err := <-runResult:
		require.NoError(t, err) // going-away is a clean shutdown
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop after CloseAll")
	}
}

func TestSanitizeCloseCode(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{CloseNormalClosure, CloseNormalClosure},
		{CloseTryAgainLater, CloseTryAgainLater},
		{4000, 4000}, // application range is legal
		{websocket.CloseNoStatusReceived, CloseGoingAway},
		{websocket.CloseAbnormalClosure, CloseGoingAway},
		{websocket.CloseTLSHandshake, CloseGoingAway},
		{999, CloseGoingAway},
		{5000, CloseGoingAway},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, sanitizeCloseCode(tc.in), "code %d", tc.in)
	}
}

func TestIsUpgrade(t *testing.T) {
	plain := httptest.NewRequest(http.MethodPost, "/v1", nil)
	require.False(t, IsUpgrade(plain))

	upgrade := httptest.NewRequest(http.MethodGet, "/v1", nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	require.True(t, IsUpgrade(upgrade))
}
