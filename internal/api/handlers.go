// Package api serves moltboard's HTTP endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/V-SK/moltboard/internal/leaderboard"
)

// Query defaults applied when the caller omits a parameter.
const (
	defaultSort        = "hot"
	defaultPostsLimit  = "25"
	defaultSearchLimit = "20"
)

// Proxy forwards requests to the Moltbook API and returns the raw body.
type Proxy interface {
	Posts(ctx context.Context, sort, limit string) ([]byte, error)
	Submolts(ctx context.Context) ([]byte, error)
	Search(ctx context.Context, query, limit string) ([]byte, error)
	Profile(ctx context.Context, name string) ([]byte, error)
}

// Leaderboard serves the cached leaderboard.
type Leaderboard interface {
	Leaderboard(ctx context.Context) (leaderboard.Snapshot, error)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler holds HTTP request handlers.
type Handler struct {
	proxy       Proxy
	leaderboard Leaderboard
}

// NewHandler creates a new handler instance.
func NewHandler(proxy Proxy, lb Leaderboard) *Handler {
	return &Handler{proxy: proxy, leaderboard: lb}
}

// Posts proxies GET /posts.
func (h *Handler) Posts(c *gin.Context) {
	body, err := h.proxy.Posts(c.Request.Context(),
		c.DefaultQuery("sort", defaultSort),
		c.DefaultQuery("limit", defaultPostsLimit),
	)
	h.passthrough(c, body, err)
}

// Submolts proxies GET /submolts.
func (h *Handler) Submolts(c *gin.Context) {
	body, err := h.proxy.Submolts(c.Request.Context())
	h.passthrough(c, body, err)
}

// Search proxies GET /search.
func (h *Handler) Search(c *gin.Context) {
	body, err := h.proxy.Search(c.Request.Context(),
		c.Query("q"),
		c.DefaultQuery("limit", defaultSearchLimit),
	)
	h.passthrough(c, body, err)
}

// Profile proxies GET /agents/profile.
func (h *Handler) Profile(c *gin.Context) {
	body, err := h.proxy.Profile(c.Request.Context(), c.Query("name"))
	h.passthrough(c, body, err)
}

// Leaderboard serves the cached leaderboard as {agents, computedAt, strategy}.
func (h *Handler) Leaderboard(c *gin.Context) {
	snap, err := h.leaderboard.Leaderboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// passthrough writes the upstream body unchanged, or the error envelope.
func (h *Handler) passthrough(c *gin.Context, body []byte, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// fail answers 500 with {"error": msg}. The request logger picks the error
// up from c.Errors.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
