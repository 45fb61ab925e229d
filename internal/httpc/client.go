// Package httpc builds HTTP clients with connect, handshake and overall
// timeouts set. Use it instead of http.DefaultClient.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultConnectTimeout   = 10 * time.Second
	DefaultKeepAlive        = 30 * time.Second
	DefaultIdleConnTimeout  = 90 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// NewClient returns a client whose requests give up after timeout.
// A non-positive timeout uses DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(),
	}
}

// NewTransport returns a transport with bounded dial and TLS handshake
// times. Speech requests go to a handful of hosts, so the idle pool is
// small.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   DefaultHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
	}
}
