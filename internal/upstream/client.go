// Package upstream is the HTTP client for the Moltbook REST API.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/V-SK/moltboard/infrastructure/circuitbreaker"
	infraerrors "github.com/V-SK/moltboard/infrastructure/errors"
	infrahttp "github.com/V-SK/moltboard/infrastructure/http"
	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/internal/metrics"
)

// Upstream endpoint paths, relative to the base URL.
const (
	PathPosts       = "posts"
	PathSubmolts    = "submolts"
	PathSearch      = "search"
	PathProfile     = "agents/profile"
	PathLeaderboard = "agents/leaderboard"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 10 << 20

var (
	// ErrMalformedJSON is returned when an upstream body is not valid JSON.
	ErrMalformedJSON = errors.New("upstream returned malformed JSON")

	// ErrCircuitOpen is returned while the upstream circuit breaker is open.
	ErrCircuitOpen = circuitbreaker.ErrCircuitOpen
)

// Config configures the upstream client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	BreakerThreshold int
	BreakerTimeout   time.Duration

	// Transport overrides the HTTP transport; tests use it.
	Transport http.RoundTripper
}

// Client calls the Moltbook API. Every method returns the raw body after
// checking it is valid JSON; non-2xx statuses, transport failures and
// malformed bodies are errors.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker
	logger  infralogger.Logger
	metrics *metrics.Metrics
}

// NewClient creates an upstream client. m may be nil.
func NewClient(cfg Config, log infralogger.Logger, m *metrics.Metrics) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: infrahttp.NewClient(&infrahttp.ClientConfig{
			Timeout:     cfg.Timeout,
			BearerToken: cfg.APIKey,
			Transport:   cfg.Transport,
		}),
		logger:  log,
		metrics: m,
	}

	c.breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerThreshold,
		Timeout:          cfg.BreakerTimeout,
		IsFailure:        isBreakerFailure,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("Upstream circuit breaker state changed",
				infralogger.String("from", from.String()),
				infralogger.String("to", to.String()),
			)
			m.SetBreakerState(int(to))
		},
	})

	return c
}

// Posts lists posts. sort and limit are forwarded as given.
func (c *Client) Posts(ctx context.Context, sort, limit string) ([]byte, error) {
	return c.get(ctx, PathPosts, url.Values{"sort": {sort}, "limit": {limit}})
}

// Submolts lists submolts.
func (c *Client) Submolts(ctx context.Context) ([]byte, error) {
	return c.get(ctx, PathSubmolts, nil)
}

// Search searches posts.
func (c *Client) Search(ctx context.Context, query, limit string) ([]byte, error) {
	return c.get(ctx, PathSearch, url.Values{"q": {query}, "limit": {limit}})
}

// Profile fetches one agent profile.
func (c *Client) Profile(ctx context.Context, name string) ([]byte, error) {
	return c.get(ctx, PathProfile, url.Values{"name": {name}})
}

// Leaderboard fetches the upstream-ranked agent leaderboard.
func (c *Client) Leaderboard(ctx context.Context) ([]byte, error) {
	return c.get(ctx, PathLeaderboard, nil)
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	start := time.Now()
	var body []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var doErr error
		body, doErr = c.do(ctx, endpoint)
		return doErr
	})
	c.metrics.ObserveUpstream(path, err, time.Since(start))

	if err != nil {
		c.logger.Error("Upstream request failed",
			infralogger.String("path", path),
			infralogger.Duration("duration", time.Since(start)),
			infralogger.Error(err),
		)
		return nil, fmt.Errorf("upstream %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return nil, httpErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedJSON
	}
	return body, nil
}

// isBreakerFailure counts transport errors, 5xx and bad bodies. Client
// errors such as an unknown profile name say nothing about upstream health.
func isBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if status, ok := infraerrors.GetHTTPStatusCode(err); ok {
		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	}
	return true
}
