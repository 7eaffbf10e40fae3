package leaderboard

import (
	"context"
	"time"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/sse"
	"github.com/V-SK/moltboard/internal/cache"
	"github.com/V-SK/moltboard/internal/domain"
	"github.com/V-SK/moltboard/internal/metrics"
)

// Snapshot is one computed leaderboard.
type Snapshot struct {
	Agents     []domain.AgentSummary `json:"agents"`
	ComputedAt time.Time             `json:"computedAt"`
	Strategy   string                `json:"strategy"`
}

// Options configures a Service.
type Options struct {
	TTL            time.Duration
	ComputeTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Publisher, when set, receives leaderboard:updated and
	// leaderboard:failed events.
	Publisher sse.Publisher
	Metrics   *metrics.Metrics
}

// Service owns the single cached leaderboard. Construct one per process and
// share it.
type Service struct {
	strategy  Strategy
	cache     *cache.TTL[Snapshot]
	now       func() time.Time
	publisher sse.Publisher
	logger    infralogger.Logger
	metrics   *metrics.Metrics
}

// NewService creates a leaderboard service around strategy.
func NewService(strategy Strategy, opts Options, log infralogger.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cacheOpts := []cache.Option{
		cache.WithClock(opts.Now),
		cache.WithComputeTimeout(opts.ComputeTimeout),
	}
	if opts.Metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(opts.Metrics))
	}

	return &Service{
		strategy:  strategy,
		cache:     cache.New[Snapshot](opts.TTL, cacheOpts...),
		now:       opts.Now,
		publisher: opts.Publisher,
		logger:    log,
		metrics:   opts.Metrics,
	}
}

// Leaderboard returns the cached leaderboard, recomputing it when the entry
// is missing or older than the TTL. It fails only when a recomputation was
// needed and failed.
func (s *Service) Leaderboard(ctx context.Context) (Snapshot, error) {
	return s.cache.Get(ctx, s.compute)
}

// Strategy returns the active strategy name.
func (s *Service) Strategy() string {
	return s.strategy.Name()
}

// CacheState reports the current entry's age and size without computing.
func (s *Service) CacheState() (age time.Duration, agents int, ok bool) {
	e, ok := s.cache.Peek()
	if !ok {
		return 0, 0, false
	}
	return s.now().Sub(e.ComputedAt), len(e.Value.Agents), true
}

// TTL returns the cache window.
func (s *Service) TTL() time.Duration {
	return s.cache.TTL()
}

func (s *Service) compute(ctx context.Context) (Snapshot, error) {
	// ctx carries the logger of the request that triggered the computation.
	log := infralogger.FromContext(ctx, s.logger)

	start := time.Now()
	agents, err := s.strategy.Compute(ctx)
	duration := time.Since(start)
	s.metrics.ObserveLeaderboard(s.strategy.Name(), len(agents), err, duration)

	if err != nil {
		log.Error("Leaderboard computation failed",
			infralogger.String("strategy", s.strategy.Name()),
			infralogger.Duration("duration", duration),
			infralogger.Error(err),
		)
		s.publish(ctx, sse.NewLeaderboardFailedEvent(err))
		return Snapshot{}, err
	}

	if agents == nil {
		agents = []domain.AgentSummary{}
	}
	snap := Snapshot{Agents: agents, ComputedAt: s.now(), Strategy: s.strategy.Name()}

	log.Info("Leaderboard recomputed",
		infralogger.String("strategy", snap.Strategy),
		infralogger.Int("agents", len(agents)),
		infralogger.Duration("duration", duration),
	)

	data := sse.LeaderboardUpdatedData{
		Strategy:   snap.Strategy,
		AgentCount: len(agents),
		ComputedAt: snap.ComputedAt.UTC().Format(time.RFC3339),
		DurationMs: duration.Milliseconds(),
	}
	if top, ok := domain.TopAgent(agents); ok {
		data.TopAgent = top.Name
		data.TopKarma = top.Karma
	}
	s.publish(ctx, sse.NewLeaderboardUpdatedEvent(data))

	return snap, nil
}

func (s *Service) publish(ctx context.Context, event sse.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Debug("Leaderboard event not published",
			infralogger.String("event_type", event.Type),
			infralogger.Error(err),
		)
	}
}
