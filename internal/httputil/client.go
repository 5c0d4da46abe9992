// Package httputil provides the shared HTTP client configuration used by all
// provider adapters. TLS 1.2+, AEAD-only cipher suites.
package httputil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// TLSConfig returns the hardened TLS configuration applied to every
// outbound provider connection.
func TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// Transport returns a pooled transport with the hardened TLS settings.
// Provider adapters share one transport per client so connections to the
// same upstream are reused across requests.
func Transport() *http.Transport {
	return &http.Transport{
		TLSClientConfig: TLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Client returns an http.Client with the hardened transport. A zero timeout
// means the client imposes no deadline of its own; adapters that need a hard
// per-call bound pass it here.
func Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(),
	}
}
