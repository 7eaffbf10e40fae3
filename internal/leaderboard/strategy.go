// Package leaderboard computes and caches the agent leaderboard.
package leaderboard

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/internal/domain"
	"github.com/V-SK/moltboard/internal/metrics"
	"github.com/V-SK/moltboard/internal/normalize"
)

//go:generate mockgen -destination=mocks/mock_upstream.go -package=mocks github.com/V-SK/moltboard/internal/leaderboard Upstream

// Upstream is the part of the Moltbook API the strategies read.
type Upstream interface {
	Posts(ctx context.Context, sort, limit string) ([]byte, error)
	Profile(ctx context.Context, name string) ([]byte, error)
	Leaderboard(ctx context.Context) ([]byte, error)
}

// Strategy produces a ranked agent list.
type Strategy interface {
	Name() string
	Compute(ctx context.Context) ([]domain.AgentSummary, error)
}

// AuthorCap is the most distinct authors a fan-out ever looks up.
const AuthorCap = 15

// FanOutConfig configures the fan-out strategy.
type FanOutConfig struct {
	// PostWindow is how many hot posts are scanned for authors.
	PostWindow int
	// MaxAuthors caps the number of profile lookups. Values outside
	// 1..AuthorCap become AuthorCap.
	MaxAuthors int
	// Concurrency caps simultaneous lookups. Zero means MaxAuthors.
	Concurrency int
	// RPS limits lookups per second. Zero disables the limit.
	RPS float64
}

// FanOut ranks the authors of recent hot posts by their profile karma.
type FanOut struct {
	upstream Upstream
	cfg      FanOutConfig
	limiter  *rate.Limiter
	logger   infralogger.Logger
	metrics  *metrics.Metrics
}

// NewFanOut creates the fan-out strategy. m may be nil.
func NewFanOut(up Upstream, cfg FanOutConfig, log infralogger.Logger, m *metrics.Metrics) *FanOut {
	if cfg.MaxAuthors <= 0 || cfg.MaxAuthors > AuthorCap {
		cfg.MaxAuthors = AuthorCap
	}
	if cfg.Concurrency <= 0 || cfg.Concurrency > cfg.MaxAuthors {
		cfg.Concurrency = cfg.MaxAuthors
	}

	f := &FanOut{upstream: up, cfg: cfg, logger: log, metrics: m}
	if cfg.RPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return f
}

// Name implements Strategy.
func (f *FanOut) Name() string { return "fanout" }

// Compute fetches the post window, looks up the first MaxAuthors distinct
// authors concurrently and sorts them by karma, keeping first-appearance
// order on ties. A failed lookup becomes a zero summary; only a failed post
// fetch fails the computation.
func (f *FanOut) Compute(ctx context.Context) ([]domain.AgentSummary, error) {
	body, err := f.upstream.Posts(ctx, "hot", strconv.Itoa(f.cfg.PostWindow))
	if err != nil {
		return nil, fmt.Errorf("fetch post window: %w", err)
	}

	names, postCounts := distinctAuthors(normalize.Posts(body))
	if len(names) > f.cfg.MaxAuthors {
		names = names[:f.cfg.MaxAuthors]
	}

	agents := make([]domain.AgentSummary, len(names))

	var g errgroup.Group
	g.SetLimit(f.cfg.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			agents[i] = f.lookup(ctx, name, postCounts[name])
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(agents, func(a, b domain.AgentSummary) int {
		return b.Karma - a.Karma
	})
	return agents, nil
}

func (f *FanOut) lookup(ctx context.Context, name string, posts int) domain.AgentSummary {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			f.lookupFailed(name, err)
			return domain.ZeroAgent(name, posts)
		}
	}

	body, err := f.upstream.Profile(ctx, name)
	if err != nil {
		f.lookupFailed(name, err)
		return domain.ZeroAgent(name, posts)
	}

	agent := normalize.Profile(body, name)
	agent.Posts = posts
	return agent
}

func (f *FanOut) lookupFailed(name string, err error) {
	f.logger.Warn("Agent profile lookup failed, using zero summary",
		infralogger.String("agent", name),
		infralogger.Error(err),
	)
	f.metrics.ProfileLookupFailed()
}

// distinctAuthors returns author names in order of first appearance and the
// number of posts each authored. Posts without an author are skipped.
func distinctAuthors(posts []domain.Post) (names []string, counts map[string]int) {
	counts = make(map[string]int)
	for _, p := range posts {
		name := domain.AuthorName(p)
		if name == domain.Placeholder {
			continue
		}
		if counts[name] == 0 {
			names = append(names, name)
		}
		counts[name]++
	}
	return names, counts
}

// Passthrough serves the upstream's own ranked leaderboard.
type Passthrough struct {
	upstream Upstream
}

// NewPassthrough creates the passthrough strategy.
func NewPassthrough(up Upstream) *Passthrough {
	return &Passthrough{upstream: up}
}

// Name implements Strategy.
func (p *Passthrough) Name() string { return "passthrough" }

// Compute fetches the upstream leaderboard and keeps its order and ranks.
func (p *Passthrough) Compute(ctx context.Context) ([]domain.AgentSummary, error) {
	body, err := p.upstream.Leaderboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return normalize.Agents(body), nil
}
