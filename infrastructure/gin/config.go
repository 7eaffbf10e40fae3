// Package gin wraps gin-gonic with the middleware, health endpoint and
// server lifecycle used by moltboard's HTTP surface.
package gin

import "time"

// Timeout defaults.
const (
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultCORSMaxAge        = 12 * time.Hour
)

// Config holds the HTTP server configuration.
type Config struct {
	// Port is the TCP port. Zero picks a free port; see Server.Listen.
	Port  int
	Debug bool

	Timeouts Timeouts
	CORS     CORSConfig

	// Service identifies the process in /health.
	Service ServiceInfo
}

// ServiceInfo names the running service.
type ServiceInfo struct {
	Name    string
	Version string
}

// Timeouts bounds the phases of a connection.
type Timeouts struct {
	Read       time.Duration
	ReadHeader time.Duration
	// Write is zero by default: event streams stay open indefinitely.
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

func (t *Timeouts) setDefaults() {
	if t.Read == 0 {
		t.Read = DefaultReadTimeout
	}
	if t.ReadHeader == 0 {
		t.ReadHeader = DefaultReadHeaderTimeout
	}
	if t.Idle == 0 {
		t.Idle = DefaultIdleTimeout
	}
	if t.Shutdown == 0 {
		t.Shutdown = DefaultShutdownTimeout
	}
}

// CORSConfig configures cross-origin access. The API is read-only and
// cookie-free, so credentials are never allowed.
type CORSConfig struct {
	// AllowedOrigins may contain "*". Empty means any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser scripts.
	ExposedHeaders []string
	MaxAge         time.Duration
}

func (c *CORSConfig) setDefaults() {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "HEAD", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Origin", "Accept", "Cache-Control", "Content-Type", "Last-Event-ID", RequestIDHeader}
	}
	if len(c.ExposedHeaders) == 0 {
		c.ExposedHeaders = []string{RequestIDHeader}
	}
	if c.MaxAge == 0 {
		c.MaxAge = DefaultCORSMaxAge
	}
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	c.Timeouts.setDefaults()
	c.CORS.setDefaults()
	if c.Service.Version == "" {
		c.Service.Version = "dev"
	}
}
