package provider

import (
	"net"
	"net/http"
	"time"

	"github.com/devEdexa/blockchain-api/config"
)

// NewHTTPClient builds the shared outbound HTTP client used for upstream
// calls. The pooled transport is internally synchronized and shared
// read-only across all concurrent proxy calls to the same provider.
func NewHTTPClient(cfg config.HTTPTransportConfig) *http.Client {
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 500
	}

	maxIdleConnsPerHost := cfg.MaxIdleConnsPerHost
	if maxIdleConnsPerHost == 0 {
		maxIdleConnsPerHost = 100
	}

	maxConnsPerHost := cfg.MaxConnsPerHost
	if maxConnsPerHost == 0 {
		maxConnsPerHost = 500
	}

	idleConnTimeout := time.Duration(cfg.IdleConnTimeoutSeconds) * time.Second
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	dialTimeout := time.Duration(cfg.DialTimeoutSeconds) * time.Second
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	tlsHandshakeTimeout := time.Duration(cfg.TLSHandshakeTimeoutSeconds) * time.Second
	if tlsHandshakeTimeout == 0 {
		tlsHandshakeTimeout = 10 * time.Second
	}

	responseHeaderTimeout := time.Duration(cfg.ResponseHeaderTimeoutSeconds) * time.Second
	if responseHeaderTimeout == 0 {
		responseHeaderTimeout = 30 * time.Second
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout == 0 {
		requestTimeout = 60 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,

		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,

		DialContext: dialer.DialContext,

		// Don't modify content encoding for the JSON-RPC pass-through
		DisableCompression: cfg.DisableCompression,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		// Bounded end-to-end budget so a hung upstream cannot pin a call
		Timeout: requestTimeout,
		// Don't follow redirects - pass them through to the caller
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
