package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/retry"
	"github.com/V-SK/moltboard/internal/domain"
	"github.com/V-SK/moltboard/internal/metrics"
	"github.com/V-SK/moltboard/internal/normalize"
)

// PostSorts are the post lists fetched each cycle, in merge order.
var PostSorts = []string{"hot", "new", "rising", "top"}

// ErrUnrecognizedLeaderboard is returned when the leaderboard body holds no
// agent list.
var ErrUnrecognizedLeaderboard = errors.New("leaderboard response has no agent list")

// Sink receives the outcome of every refresh cycle.
type Sink interface {
	// Update is called with each successful snapshot.
	Update(snap Snapshot)
	// Failed is called after a failed cycle with the retry decision taken.
	Failed(err error, decision retry.Decision)
}

// Config configures the poller.
type Config struct {
	RefreshInterval time.Duration
	// AgentsInterval defaults to twice RefreshInterval.
	AgentsInterval time.Duration
	PageSize       int
	Retry          retry.Config
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithAfter replaces time.After, which schedules every cycle.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(p *Poller) { p.after = after }
}

// WithMetrics records cycle outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// Poller drives the refresh cycle: fetch five resources concurrently,
// merge, compute stats and hand the snapshot to the sink. A failed cycle is
// retried early a bounded number of times, then waits for the regular
// interval. The agent leaderboard is refreshed on its own slower schedule
// and its last good value is reused by every cycle.
//
// Run owns all poller state; cycles never overlap.
type Poller struct {
	source  Source
	sink    Sink
	cfg     Config
	tracker *retry.Tracker
	logger  infralogger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time

	agents   []domain.AgentSummary
	agentsAt time.Time
}

// New creates a poller.
func New(source Source, sink Sink, cfg Config, log infralogger.Logger, opts ...Option) *Poller {
	if cfg.AgentsInterval <= 0 {
		cfg.AgentsInterval = 2 * cfg.RefreshInterval
	}

	p := &Poller{
		source:  source,
		sink:    sink,
		cfg:     cfg,
		tracker: retry.NewTracker(cfg.Retry),
		logger:  log,
		now:     time.Now,
		after:   time.After,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Dashboard poller started",
		infralogger.Duration("refresh_interval", p.cfg.RefreshInterval),
		infralogger.Duration("agents_interval", p.cfg.AgentsInterval),
	)

	_ = p.RefreshAgents(ctx)
	mainC := p.after(p.Step(ctx))
	agentsC := p.after(p.cfg.AgentsInterval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Dashboard poller stopped")
			return nil
		case <-mainC:
			mainC = p.after(p.Step(ctx))
		case <-agentsC:
			_ = p.RefreshAgents(ctx)
			agentsC = p.after(p.cfg.AgentsInterval)
		}
	}
}

// RunOnce refreshes the agents, runs one cycle and delivers it to the sink.
func (p *Poller) RunOnce(ctx context.Context) error {
	_ = p.RefreshAgents(ctx)

	snap, err := p.Cycle(ctx)
	if err != nil {
		return err
	}
	p.sink.Update(snap)
	return nil
}

// Step runs one cycle, reports it to the sink and returns how long to wait
// before the next one.
func (p *Poller) Step(ctx context.Context) time.Duration {
	snap, err := p.Cycle(ctx)
	if err == nil {
		p.tracker.Success()
		p.metrics.ObserveCycle(nil, false)
		p.sink.Update(snap)
		return p.cfg.RefreshInterval
	}
	if ctx.Err() != nil {
		// Shutting down: the cycle was cut short, not failed.
		return p.cfg.RefreshInterval
	}

	decision := p.tracker.Failure()
	p.metrics.ObserveCycle(err, decision.Retry)
	p.sink.Failed(err, decision)

	if decision.Retry {
		p.logger.Warn("Dashboard refresh failed, retrying",
			infralogger.Int("attempt", decision.Attempt),
			infralogger.Duration("delay", decision.Delay),
			infralogger.Error(err),
		)
		return decision.Delay
	}

	p.logger.Error("Dashboard refresh failed, waiting for next cycle",
		infralogger.Duration("delay", p.cfg.RefreshInterval),
		infralogger.Error(err),
	)
	return p.cfg.RefreshInterval
}

// Cycle fetches the four post lists and the submolts concurrently and
// builds a snapshot. Any failed fetch fails the cycle and cancels the rest.
func (p *Poller) Cycle(ctx context.Context) (Snapshot, error) {
	postBodies := make([][]byte, len(PostSorts))
	var submoltBody []byte

	g, gctx := errgroup.WithContext(ctx)
	for i, sort := range PostSorts {
		g.Go(func() error {
			body, err := p.source.Posts(gctx, sort, p.cfg.PageSize)
			if err != nil {
				return fmt.Errorf("fetch %s posts: %w", sort, err)
			}
			postBodies[i] = body
			return nil
		})
	}
	g.Go(func() error {
		body, err := p.source.Submolts(gctx)
		if err != nil {
			return fmt.Errorf("fetch submolts: %w", err)
		}
		submoltBody = body
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	lists := make([][]domain.Post, len(postBodies))
	for i, body := range postBodies {
		lists[i] = normalize.Posts(body)
	}
	submolts, submoltsKnown := normalize.Records(submoltBody)
	merged := Merge(lists...)

	return Snapshot{
		Hot:       lists[0],
		New:       lists[1],
		Rising:    lists[2],
		Top:       lists[3],
		Merged:    merged,
		Agents:    p.agents,
		AgentsAt:  p.agentsAt,
		Stats:     ComputeStats(merged, len(submolts), submoltsKnown, p.agents),
		UpdatedAt: p.now(),
	}, nil
}

// RefreshAgents fetches the leaderboard and keeps it when the fetch
// succeeds. A failure leaves the previous agents in place.
func (p *Poller) RefreshAgents(ctx context.Context) error {
	body, err := p.source.Leaderboard(ctx)
	if err == nil {
		if _, ok := normalize.Records(body); !ok {
			err = ErrUnrecognizedLeaderboard
		}
	}
	if err != nil && ctx.Err() != nil {
		return err
	}
	if err != nil {
		p.logger.Warn("Leaderboard refresh failed, keeping previous agents",
			infralogger.Int("cached_agents", len(p.agents)),
			infralogger.Error(err),
		)
		return err
	}

	p.agents = normalize.Agents(body)
	p.agentsAt = p.now()
	p.logger.Debug("Leaderboard refreshed", infralogger.Int("agents", len(p.agents)))
	return nil
}
