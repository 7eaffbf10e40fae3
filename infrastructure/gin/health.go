package gin

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the outcome of a check.
type HealthStatus string

// Health statuses, from best to worst.
const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /health body.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one named check. Latency is filled in by the endpoint.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker performs one check. It must not block for long.
type HealthChecker func() CheckResult

// HealthOptions configures /health.
type HealthOptions struct {
	Service ServiceInfo
	// StartTime defaults to the registration time.
	StartTime time.Time
	Checks    map[string]HealthChecker
}

// RegisterHealthRoutes adds GET and HEAD /health. Checks run concurrently;
// the overall status is the worst of them and unhealthy answers 503. HEAD
// answers the same status without a body.
func RegisterHealthRoutes(router *gin.Engine, opts HealthOptions) {
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}

	router.GET("/health", func(c *gin.Context) {
		resp := evaluate(opts)
		c.JSON(statusCode(resp.Status), resp)
	})
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(statusCode(evaluate(opts).Status))
	})
}

func evaluate(opts HealthOptions) HealthResponse {
	resp := HealthResponse{
		Status:  HealthStatusHealthy,
		Service: opts.Service.Name,
		Version: opts.Service.Version,
		Uptime:  formatUptime(time.Since(opts.StartTime)),
	}
	if len(opts.Checks) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(opts.Checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range opts.Checks {
		wg.Go(func() {
			start := time.Now()
			result := check()
			result.Latency = time.Since(start).Round(time.Microsecond).String()

			mu.Lock()
			resp.Checks[name] = result
			mu.Unlock()
		})
	}
	wg.Wait()

	for _, result := range resp.Checks {
		resp.Status = worse(resp.Status, result.Status)
	}
	return resp
}

func severity(s HealthStatus) int {
	switch s {
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

func worse(a, b HealthStatus) HealthStatus {
	if severity(b) > severity(a) {
		return b
	}
	return a
}

func statusCode(s HealthStatus) int {
	if s == HealthStatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// formatUptime renders d as "1d 2h 3m", "2h 3m", "3m 4s" or "4s".
func formatUptime(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
