package gin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/V-SK/moltboard/infrastructure/logger"
)

// Server is a gin engine bound to an http.Server with a managed lifecycle.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger logger.Logger
	cfg    *Config

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server. The standard middleware chain is installed
// before setupRoutes runs: recovery, request ID, request logging, CORS.
func NewServer(cfg *Config, log logger.Logger, setupRoutes func(*gin.Engine)) *Server {
	cfg.SetDefaults()

	mode := gin.ReleaseMode
	if cfg.Debug {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.Use(
		RecoveryMiddleware(log),
		RequestIDLoggerMiddleware(log),
		LoggerMiddleware(log),
		CORSMiddleware(cfg.CORS),
	)
	if setupRoutes != nil {
		setupRoutes(router)
	}

	return &Server{
		router: router,
		logger: log,
		cfg:    cfg,
		http: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
			Handler:           router,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
			WriteTimeout:      cfg.Timeouts.Write,
			IdleTimeout:       cfg.Timeouts.Idle,
		},
	}
}

// Router returns the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// OnShutdown registers fn to run when Shutdown starts. Long-lived handlers
// such as event streams use it to return so the drain can finish.
func (s *Server) OnShutdown(fn func()) {
	s.http.RegisterOnShutdown(fn)
}

// Listen binds the configured port and returns the bound address. Start
// calls it when the caller has not.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.logger.Info("HTTP server listening",
		logger.String("address", addr.String()),
		logger.String("service", s.cfg.Service.Name),
		logger.String("version", s.cfg.Service.Version),
	)

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	if serveErr := s.http.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}

// Shutdown runs the shutdown hooks, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Shutdown)
	defer cancel()

	s.logger.Info("HTTP server shutting down", logger.Duration("timeout", s.cfg.Timeouts.Shutdown))

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// RunWithGracefulShutdown serves until SIGINT, SIGTERM or ctx cancellation,
// then shuts down.
func (s *Server) RunWithGracefulShutdown(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	// The parent ctx may already be cancelled; the drain gets a fresh one.
	//nolint:contextcheck // shutdown must outlive the cancelled run context
	if err := s.Shutdown(context.Background()); err != nil {
		return err
	}
	return <-errCh
}
