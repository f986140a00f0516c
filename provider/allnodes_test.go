package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/devEdexa/blockchain-api/config"
)

// rewriteTransport redirects requests to a local test server while recording
// the URL the provider originally targeted.
type rewriteTransport struct {
	target  *url.URL
	lastURL *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.lastURL = req.URL

	rewritten := req.Clone(req.Context())
	rewritten.URL.Scheme = rt.target.Scheme
	rewritten.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(rewritten)
}

// failingTransport fails the test if any network call is attempted.
type failingTransport struct {
	t *testing.T
}

func (ft *failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ft.t.Fatalf("unexpected network call to %s", req.URL)
	return nil, nil
}

func newAllnodesForTest(t *testing.T, upstream *httptest.Server) (*AllnodesProvider, *rewriteTransport) {
	t.Helper()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	rt := &rewriteTransport{target: target}
	cfg := &config.AllnodesConfig{
		APIKey: "test-api-key",
		SupportedChains: map[string]string{
			"eip155:1": "ethereum",
		},
	}
	return NewAllnodesProvider(zerolog.Nop(), cfg, &http.Client{Transport: rt}), rt
}

func TestAllnodesProvider_ChainNotFound(t *testing.T) {
	cfg := &config.AllnodesConfig{
		APIKey:          "test-api-key",
		SupportedChains: map[string]string{"eip155:1": "ethereum"},
	}
	p := NewAllnodesProvider(zerolog.Nop(), cfg, &http.Client{Transport: &failingTransport{t: t}})

	resp, err := p.Proxy(context.Background(), "eip155:999", []byte(`{}`))
	require.ErrorIs(t, err, ErrChainNotFound)
	require.Nil(t, resp)
}

func TestAllnodesProvider_URLAndCredential(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	defer upstream.Close()

	p, rt := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The chain name and the API key are both embedded in the upstream URL
	require.Equal(t, "https", rt.lastURL.Scheme)
	require.Equal(t, "ethereum.allnodes.me:8545", rt.lastURL.Host)
	require.Equal(t, "/test-api-key", rt.lastURL.Path)
}

func TestAllnodesProvider_PassThrough(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"result":"0xabc"}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer upstream.Close()

	p, _ := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, body, string(resp.Body))
}

func TestAllnodesProvider_ReclassifiesRateLimit(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"rate limit exceeded"}}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer upstream.Close()

	p, _ := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	// The body stays byte-identical; only the status is rewritten
	require.Equal(t, body, string(resp.Body))
	require.True(t, p.IsRateLimited(resp))
}

func TestAllnodesProvider_ReclassifiesNodeError(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"header not found"}}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer upstream.Close()

	p, _ := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, body, string(resp.Body))
	require.False(t, p.IsRateLimited(resp))
}

func TestAllnodesProvider_CallerErrorNotReclassified(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"too many requests"}}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	defer upstream.Close()

	p, _ := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, body, string(resp.Body))
}

func TestAllnodesProvider_NonSuccessStatusTrusted(t *testing.T) {
	// Bodies of non-2xx responses are not inspected; the upstream status wins
	body := `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"rate limit exceeded"}}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(body))
	}))
	defer upstream.Close()

	p, _ := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, body, string(resp.Body))
}

func TestAllnodesProvider_TransportError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // force a connection failure

	p, _ := newAllnodesForTest(t, upstream)

	resp, err := p.Proxy(context.Background(), "eip155:1", []byte(`{}`))
	require.Error(t, err)
	require.Nil(t, resp)
	require.True(t, IsTransport(err))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, KindAllnodes, transportErr.Provider)
}

func TestAllnodesProvider_SupportedChains(t *testing.T) {
	cfg := &config.AllnodesConfig{
		APIKey: "k",
		SupportedChains: map[string]string{
			"eip155:1":   "ethereum",
			"eip155:137": "polygon-bor",
		},
	}
	p := NewAllnodesProvider(zerolog.Nop(), cfg, http.DefaultClient)

	require.True(t, p.SupportsChain("eip155:1"))
	require.True(t, p.SupportsChain("eip155:137"))
	require.False(t, p.SupportsChain("eip155:10"))
	require.ElementsMatch(t, []string{"eip155:1", "eip155:137"}, p.SupportedChains())
	require.Equal(t, KindAllnodes, p.Kind())
}

func TestAllnodesWSProvider_ChainNotFound(t *testing.T) {
	cfg := &config.AllnodesConfig{
		APIKey:            "k",
		SupportedWsChains: map[string]string{"eip155:1": "ethereum"},
	}
	p := NewAllnodesWSProvider(zerolog.Nop(), cfg, 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1?chainId=eip155:999", nil)

	err := p.ProxyWS(rec, req, QueryParams{ChainID: "eip155:999"})
	require.ErrorIs(t, err, ErrChainNotFound)
	// The inbound connection is never touched on lookup failure
	require.Zero(t, rec.Body.Len())
}

func TestAllnodesWSProvider_SeparateChainMaps(t *testing.T) {
	cfg := &config.AllnodesConfig{
		APIKey:            "k",
		SupportedChains:   map[string]string{"eip155:1": "ethereum", "eip155:137": "polygon-bor"},
		SupportedWsChains: map[string]string{"eip155:1": "ethereum"},
	}
	httpProvider := NewAllnodesProvider(zerolog.Nop(), cfg, http.DefaultClient)
	wsProvider := NewAllnodesWSProvider(zerolog.Nop(), cfg, 0)

	require.True(t, httpProvider.SupportsChain("eip155:137"))
	require.False(t, wsProvider.SupportsChain("eip155:137"))
	require.True(t, wsProvider.SupportsChain("eip155:1"))
}
