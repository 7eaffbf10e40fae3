// Package metrics defines moltboard's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every moltboard metric.
const Namespace = "moltboard"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all moltboard collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// HTTP server
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge

	// Upstream client
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamBreakerState    prometheus.Gauge

	// Leaderboard
	CacheRequestsTotal      *prometheus.CounterVec
	LeaderboardComputeTotal *prometheus.CounterVec
	LeaderboardComputeSecs  prometheus.Histogram
	LeaderboardAgents       prometheus.Gauge
	FanOutLookupFailures    prometheus.Counter

	// Dashboard poller
	PollerCyclesTotal  *prometheus.CounterVec
	PollerRetriesTotal prometheus.Counter
}

// New creates and registers every collector on reg. A nil reg uses a fresh
// registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.initHTTPMetrics(factory)
	m.initUpstreamMetrics(factory)
	m.initLeaderboardMetrics(factory)
	m.initPollerMetrics(factory)

	return m
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.HTTPInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})
}

func (m *Metrics) initUpstreamMetrics(factory promauto.Factory) {
	m.UpstreamRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Requests made to the Moltbook API",
		},
		[]string{"endpoint", "outcome"},
	)

	m.UpstreamRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Moltbook API request latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"endpoint"},
	)

	m.UpstreamBreakerState = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "upstream",
		Name:      "circuit_breaker_state",
		Help:      "Upstream circuit breaker state (0=closed, 1=open, 2=half-open)",
	})
}

func (m *Metrics) initLeaderboardMetrics(factory promauto.Factory) {
	m.CacheRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "leaderboard",
			Name:      "cache_requests_total",
			Help:      "Leaderboard cache reads, by result",
		},
		[]string{"result"},
	)

	m.LeaderboardComputeTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "leaderboard",
			Name:      "computations_total",
			Help:      "Leaderboard recomputations, by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	m.LeaderboardComputeSecs = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "leaderboard",
		Name:      "compute_duration_seconds",
		Help:      "Time to recompute the leaderboard",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	m.LeaderboardAgents = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "leaderboard",
		Name:      "agents",
		Help:      "Agents in the current leaderboard snapshot",
	})

	m.FanOutLookupFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "leaderboard",
		Name:      "profile_lookup_failures_total",
		Help:      "Profile lookups that failed and were replaced by a zero summary",
	})
}

func (m *Metrics) initPollerMetrics(factory promauto.Factory) {
	m.PollerCyclesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "dashboard",
			Name:      "cycles_total",
			Help:      "Dashboard refresh cycles, by outcome",
		},
		[]string{"outcome"},
	)

	m.PollerRetriesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "dashboard",
		Name:      "retries_total",
		Help:      "Early retries scheduled after a failed refresh cycle",
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one upstream request.
func (m *Metrics) ObserveUpstream(endpoint string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, outcome(err)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetBreakerState records the upstream circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.UpstreamBreakerState.Set(float64(state))
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// ObserveLeaderboard records one recomputation.
func (m *Metrics) ObserveLeaderboard(strategy string, agents int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.LeaderboardComputeTotal.WithLabelValues(strategy, outcome(err)).Inc()
	m.LeaderboardComputeSecs.Observe(d.Seconds())
	if err == nil {
		m.LeaderboardAgents.Set(float64(agents))
	}
}

// ProfileLookupFailed counts a fan-out lookup replaced by a zero summary.
func (m *Metrics) ProfileLookupFailed() {
	if m == nil {
		return
	}
	m.FanOutLookupFailures.Inc()
}

// ObserveCycle records one dashboard refresh cycle and whether it scheduled
// an early retry.
func (m *Metrics) ObserveCycle(err error, retried bool) {
	if m == nil {
		return
	}
	m.PollerCyclesTotal.WithLabelValues(outcome(err)).Inc()
	if retried {
		m.PollerRetriesTotal.Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
