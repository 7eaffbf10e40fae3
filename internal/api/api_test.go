package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/V-SK/moltboard/infrastructure/gin"
	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/internal/config"
	"github.com/V-SK/moltboard/internal/leaderboard"
	"github.com/V-SK/moltboard/internal/metrics"
	"github.com/V-SK/moltboard/internal/upstream"
)

// mockMoltbook serves a small fake of the Moltbook API.
type mockMoltbook struct {
	postCalls    atomic.Int32
	profileCalls atomic.Int32
	lastQuery    atomic.Value
	failAll      atomic.Bool
}

func (m *mockMoltbook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.lastQuery.Store(r.URL.RawQuery)
	if m.failAll.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
		return
	}

	switch r.URL.Path {
	case "/api/v1/posts":
		m.postCalls.Add(1)
		_, _ = w.Write([]byte(`{"success":true,"posts":[
			{"id":"1","title":"a","author":{"name":"low"},"upvotes":1},
			{"id":"2","title":"b","author":{"name":"high"},"upvotes":2},
			{"id":"3","title":"c","author":{"name":"gone"},"upvotes":3}
		]}`))
	case "/api/v1/submolts":
		_, _ = w.Write([]byte(`{"submolts":[{"name":"general"}]}`))
	case "/api/v1/search":
		_, _ = w.Write([]byte(`{"results":[]}`))
	case "/api/v1/agents/profile":
		m.profileCalls.Add(1)
		switch r.URL.Query().Get("name") {
		case "low":
			_, _ = w.Write([]byte(`{"agent":{"name":"low","karma":5}}`))
		case "high":
			_, _ = w.Write([]byte(`{"agent":{"name":"high","karma":50}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fixture struct {
	mock    *mockMoltbook
	router  http.Handler
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := &mockMoltbook{}
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Upstream.BaseURL = srv.URL + "/api/v1"

	log := infralogger.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	client := upstream.NewClient(upstream.Config{BaseURL: cfg.Upstream.BaseURL, Timeout: 2 * time.Second}, log, m)
	svc := leaderboard.NewService(
		leaderboard.NewFanOut(client, leaderboard.FanOutConfig{PostWindow: 50, MaxAuthors: 15}, log, m),
		leaderboard.Options{TTL: time.Minute, Metrics: m},
		log,
	)

	server := NewServer(cfg, Deps{Proxy: client, Breaker: client, Leaderboard: svc, Metrics: m, Logger: log})
	return &fixture{mock: mock, router: server.Router(), metrics: m}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return w
}

func TestPosts_PassthroughWithDefaults(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/posts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Equal(t, "limit=25&sort=hot", f.mock.lastQuery.Load())

	w = f.get(t, "/api/posts?sort=new&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "limit=5&sort=new", f.mock.lastQuery.Load())
}

func TestSearch_EncodesQuery(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/search?q=red%20lobster")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
	assert.Equal(t, "limit=20&q=red+lobster", f.mock.lastQuery.Load())
}

func TestSubmolts_Passthrough(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/submolts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"submolts":[{"name":"general"}]}`, w.Body.String())
}

func TestProfile_UpstreamErrorBecomes500(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/agents/profile?name=nobody")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "404")
}

func TestUpstreamOutage_UniformEnvelope(t *testing.T) {
	f := newFixture(t)
	f.mock.failAll.Store(true)

	for _, path := range []string{"/api/posts", "/api/submolts", "/api/search?q=x", "/api/agents/profile?name=a", "/api/agents/leaderboard"} {
		w := f.get(t, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), path)
		assert.Len(t, resp, 1, path)
		assert.Contains(t, resp["error"], "maintenance", path)
	}
}

func TestLeaderboard_FanOutAndCache(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/agents/leaderboard")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Agents []struct {
			Name  string `json:"name"`
			Karma int    `json:"karma"`
			Posts int    `json:"posts"`
		} `json:"agents"`
		ComputedAt time.Time `json:"computedAt"`
		Strategy   string    `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Agents, 3)
	assert.Equal(t, "high", resp.Agents[0].Name)
	assert.Equal(t, "low", resp.Agents[1].Name)
	assert.Equal(t, "gone", resp.Agents[2].Name)
	assert.Zero(t, resp.Agents[2].Karma)
	assert.Equal(t, 1, resp.Agents[2].Posts)
	assert.Equal(t, "fanout", resp.Strategy)
	assert.False(t, resp.ComputedAt.IsZero())

	w = f.get(t, "/api/agents/leaderboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), f.mock.postCalls.Load())
	assert.Equal(t, int32(3), f.mock.profileCalls.Load())
}

func TestHealth_ReportsCacheState(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp infragin.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not computed yet", resp.Checks["leaderboard_cache"].Message)
	assert.Equal(t, infragin.HealthStatusHealthy, resp.Checks["upstream"].Status)

	f.get(t, "/api/agents/leaderboard")
	w = f.get(t, "/health")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Checks["leaderboard_cache"].Message, "fresh"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/agents/leaderboard")

	w := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `moltboard_upstream_requests_total{endpoint="agents/profile",outcome="failure"} 1`)
	assert.Contains(t, body, fmt.Sprintf(`moltboard_http_requests_total{method="GET",route="%s",status="200"} 1`, "/api/agents/leaderboard"))
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/api/submolts")
	assert.NotEmpty(t, w.Header().Get(infragin.RequestIDHeader))
}
