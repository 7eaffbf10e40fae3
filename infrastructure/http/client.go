// Package http builds the outbound HTTP clients used to reach the upstream
// API and the moltboard server.
package http

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout               = 30 * time.Second
	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 20
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultUserAgent             = "moltboard/1.0"
)

// ClientConfig configures an HTTP client.
type ClientConfig struct {
	// Timeout bounds the whole request including reading the body.
	Timeout time.Duration

	// BearerToken, when set, is sent as "Authorization: Bearer <token>" on
	// every request that does not already carry an Authorization header.
	BearerToken string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// MaxIdleConnsPerHost sizes the keep-alive pool for the single upstream
	// host; fan-out lookups reuse these connections.
	MaxIdleConnsPerHost int

	// Transport replaces the default transport. Tests use it to inject an
	// httptest server's transport.
	Transport http.RoundTripper
}

// NewClient creates an HTTP client from cfg. A nil cfg yields defaults.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	perHost := cfg.MaxIdleConnsPerHost
	if perHost == 0 {
		perHost = DefaultMaxIdleConnsPerHost
	}

	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          DefaultMaxIdleConns,
			MaxIdleConnsPerHost:   perHost,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
			TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:      base,
			token:     cfg.BearerToken,
			userAgent: userAgent,
		},
	}
}

// headerTransport decorates outgoing requests with identity headers.
type headerTransport struct {
	base      http.RoundTripper
	token     string
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if t.token != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+t.token)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}
	return t.base.RoundTrip(r)
}
