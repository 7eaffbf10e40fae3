// Package dashboard polls a moltboard server and aggregates what it returns
// into dashboard snapshots.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	infraerrors "github.com/V-SK/moltboard/infrastructure/errors"
	infrahttp "github.com/V-SK/moltboard/infrastructure/http"
)

// ErrMalformedJSON is returned when the server body is not valid JSON.
var ErrMalformedJSON = errors.New("malformed JSON response")

// ErrBodyTooLarge is returned when a server body exceeds the size cap.
var ErrBodyTooLarge = errors.New("response body too large")

// DefaultMaxBodyBytes matches the server's cap on upstream bodies.
const DefaultMaxBodyBytes = 10 << 20

// Source is what the poller reads each cycle.
type Source interface {
	Posts(ctx context.Context, sort string, limit int) ([]byte, error)
	Submolts(ctx context.Context) ([]byte, error)
	Leaderboard(ctx context.Context) ([]byte, error)
}

// HTTPSource reads from a moltboard server's /api endpoints.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	maxBody int64
}

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) SourceOption {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewHTTPSource creates a source for the server at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration, opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: timeout}),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Posts fetches /api/posts.
func (s *HTTPSource) Posts(ctx context.Context, sort string, limit int) ([]byte, error) {
	return s.get(ctx, "/api/posts", url.Values{"sort": {sort}, "limit": {strconv.Itoa(limit)}})
}

// Submolts fetches /api/submolts.
func (s *HTTPSource) Submolts(ctx context.Context) ([]byte, error) {
	return s.get(ctx, "/api/submolts", nil)
}

// Leaderboard fetches /api/agents/leaderboard.
func (s *HTTPSource) Leaderboard(ctx context.Context) ([]byte, error) {
	return s.get(ctx, "/api/agents/leaderboard", nil)
}

// Search fetches /api/search.
func (s *HTTPSource) Search(ctx context.Context, query string, limit int) ([]byte, error) {
	return s.get(ctx, "/api/search", url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}})
}

func (s *HTTPSource) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return nil, infraerrors.WrapWithContext(httpErr, "GET "+path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("GET %s: %w", path, ErrBodyTooLarge)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("GET %s: %w", path, ErrMalformedJSON)
	}
	return body, nil
}
