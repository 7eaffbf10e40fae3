package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/V-SK/moltboard/infrastructure/circuitbreaker"
	infragin "github.com/V-SK/moltboard/infrastructure/gin"
	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/sse"
	"github.com/V-SK/moltboard/internal/config"
	"github.com/V-SK/moltboard/internal/leaderboard"
	"github.com/V-SK/moltboard/internal/metrics"
)

// Event streams are long-lived, so writes are not time-bounded.
var serverTimeouts = infragin.Timeouts{
	Read: 30 * time.Second,
	Idle: 120 * time.Second,
}

// BreakerStater reports the upstream circuit breaker state.
type BreakerStater interface {
	BreakerState() circuitbreaker.State
}

// Deps are the collaborators the server wires together. Broker and Metrics
// may be nil.
type Deps struct {
	Proxy       Proxy
	Breaker     BreakerStater
	Leaderboard *leaderboard.Service
	Broker      sse.Broker
	Metrics     *metrics.Metrics
	Logger      infralogger.Logger
}

// NewServer creates the moltboard HTTP server.
func NewServer(cfg *config.Config, deps Deps) *infragin.Server {
	if deps.Logger == nil {
		deps.Logger = infralogger.NewNop()
	}
	handler := NewHandler(deps.Proxy, deps.Leaderboard)

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(deps.Logger).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(serverTimeouts).
		WithAllowedOrigins(cfg.CORS.AllowedOrigins...).
		WithHealthCheck("leaderboard_cache", LeaderboardCacheCheck(deps.Leaderboard))

	if deps.Breaker != nil {
		builder = builder.WithHealthCheck("upstream", UpstreamCheck(deps.Breaker))
	}
	if deps.Broker != nil {
		// Closing the broker ends open event streams so shutdown can drain.
		builder = builder.WithShutdownHook(func() {
			if err := deps.Broker.Stop(); err != nil {
				deps.Logger.Warn("SSE broker stop failed", infralogger.Error(err))
			}
		})
	}
	var metricsHandler http.Handler
	if deps.Metrics != nil {
		builder = builder.WithMiddleware(deps.Metrics.Middleware())
		metricsHandler = deps.Metrics.Handler()
	}

	return builder.
		WithRoutes(func(router *gin.Engine) {
			SetupServiceRoutes(router, handler, deps.Broker, metricsHandler, deps.Logger)
		}).
		Build()
}

// LeaderboardCacheCheck reports the age and size of the cached leaderboard.
// An empty or expired cache is healthy: the next read recomputes it.
func LeaderboardCacheCheck(svc *leaderboard.Service) infragin.HealthChecker {
	return func() infragin.CheckResult {
		age, agents, ok := svc.CacheState()
		if !ok {
			return infragin.CheckResult{Status: infragin.HealthStatusHealthy, Message: "not computed yet"}
		}

		state := "fresh"
		if age >= svc.TTL() {
			state = "expired"
		}
		return infragin.CheckResult{
			Status: infragin.HealthStatusHealthy,
			Message: fmt.Sprintf("%s (age %s), %d agents, strategy %s",
				state, age.Round(time.Second), agents, svc.Strategy()),
		}
	}
}

// UpstreamCheck reports degraded while the upstream circuit is not closed.
func UpstreamCheck(b BreakerStater) infragin.HealthChecker {
	return func() infragin.CheckResult {
		state := b.BreakerState()
		if state != circuitbreaker.StateClosed {
			return infragin.CheckResult{Status: infragin.HealthStatusDegraded, Message: "circuit " + state.String()}
		}
		return infragin.CheckResult{Status: infragin.HealthStatusHealthy, Message: "circuit closed"}
	}
}
