package gin

import (
	"github.com/gin-gonic/gin"

	"github.com/V-SK/moltboard/infrastructure/logger"
)

// ServerBuilder assembles a Server step by step.
type ServerBuilder struct {
	cfg           Config
	log           logger.Logger
	middleware    []gin.HandlerFunc
	routes        []func(*gin.Engine)
	checks        map[string]HealthChecker
	shutdownHooks []func()
}

// NewServerBuilder starts a builder for the named service on port.
func NewServerBuilder(name string, port int) *ServerBuilder {
	return &ServerBuilder{
		cfg:    Config{Port: port, Service: ServiceInfo{Name: name}},
		checks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the logger. Without one the server logs nothing.
func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.log = log
	return b
}

// WithDebug toggles gin debug mode.
func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.cfg.Debug = debug
	return b
}

// WithVersion sets the version reported by /health.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.cfg.Service.Version = version
	return b
}

// WithAllowedOrigins restricts CORS to origins.
func (b *ServerBuilder) WithAllowedOrigins(origins ...string) *ServerBuilder {
	b.cfg.CORS.AllowedOrigins = origins
	return b
}

// WithTimeouts replaces the connection timeouts; zero fields keep defaults.
func (b *ServerBuilder) WithTimeouts(t Timeouts) *ServerBuilder {
	b.cfg.Timeouts = t
	return b
}

// WithMiddleware appends middleware after the standard chain.
func (b *ServerBuilder) WithMiddleware(mw ...gin.HandlerFunc) *ServerBuilder {
	b.middleware = append(b.middleware, mw...)
	return b
}

// WithHealthCheck adds a named /health check.
func (b *ServerBuilder) WithHealthCheck(name string, check HealthChecker) *ServerBuilder {
	b.checks[name] = check
	return b
}

// WithRoutes adds a route registration step. Steps run in order.
func (b *ServerBuilder) WithRoutes(register func(*gin.Engine)) *ServerBuilder {
	b.routes = append(b.routes, register)
	return b
}

// WithShutdownHook runs fn when shutdown begins, before in-flight requests
// are drained.
func (b *ServerBuilder) WithShutdownHook(fn func()) *ServerBuilder {
	b.shutdownHooks = append(b.shutdownHooks, fn)
	return b
}

// Build creates the server.
func (b *ServerBuilder) Build() *Server {
	log := b.log
	if log == nil {
		log = logger.NewNop()
	}

	cfg := b.cfg
	s := NewServer(&cfg, log, func(router *gin.Engine) {
		router.Use(b.middleware...)
		RegisterHealthRoutes(router, HealthOptions{Service: cfg.Service, Checks: b.checks})
		for _, register := range b.routes {
			register(router)
		}
	})
	for _, fn := range b.shutdownHooks {
		s.OnShutdown(fn)
	}
	return s
}
