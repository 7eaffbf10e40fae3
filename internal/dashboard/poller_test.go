package dashboard_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/retry"
	"github.com/V-SK/moltboard/internal/dashboard"
)

var errDown = errors.New("server down")

// fakeSource serves fixed bodies. failPosts makes the first n post fetches
// fail; failAgents makes every leaderboard fetch fail while set.
type fakeSource struct {
	posts      map[string]string
	submolts   string
	agents     string
	failPosts  atomic.Int32
	failAlways atomic.Bool
	failAgents atomic.Bool
	postCalls  atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		posts: map[string]string{
			"hot":    `{"posts":[{"id":"1","title":"one","author":"a","upvotes":10},{"id":"2","title":"two","author":"b","upvotes":5}]}`,
			"new":    `{"posts":[{"id":"2","title":"two","author":"b","upvotes":6},{"id":"3","title":"three","author":"c","upvotes":1}]}`,
			"rising": `{"posts":[]}`,
			"top":    `[]`,
		},
		submolts: `{"submolts":[{"name":"general"},{"name":"crabs"}]}`,
		agents:   `{"agents":[{"name":"a","karma":40},{"name":"b","karma":90}]}`,
	}
}

func (s *fakeSource) Posts(_ context.Context, sort string, _ int) ([]byte, error) {
	s.postCalls.Add(1)
	if s.failAlways.Load() {
		return nil, errDown
	}
	if s.failPosts.Add(-1) >= 0 {
		return nil, errDown
	}
	return []byte(s.posts[sort]), nil
}

func (s *fakeSource) Submolts(context.Context) ([]byte, error) {
	if s.failAlways.Load() {
		return nil, errDown
	}
	return []byte(s.submolts), nil
}

func (s *fakeSource) Leaderboard(context.Context) ([]byte, error) {
	if s.failAgents.Load() {
		return nil, errDown
	}
	return []byte(s.agents), nil
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []dashboard.Snapshot
	failures  []retry.Decision
}

func (r *recordingSink) Update(snap dashboard.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
}

func (r *recordingSink) Failed(_ error, d retry.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, d)
}

func (r *recordingSink) last() dashboard.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func testConfig() dashboard.Config {
	return dashboard.Config{
		RefreshInterval: time.Minute,
		AgentsInterval:  2 * time.Minute,
		PageSize:        25,
		Retry:           retry.DefaultConfig(),
	}
}

func TestCycle_MergesAndCounts(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	p := dashboard.New(src, &recordingSink{}, testConfig(), infralogger.NewNop())
	require.NoError(t, p.RefreshAgents(context.Background()))

	snap, err := p.Cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Merged, 3)
	assert.Equal(t, 5, snap.Merged[1].UpvoteCount, "hot copy wins")
	assert.Len(t, snap.Hot, 2)
	assert.Len(t, snap.New, 2)
	assert.Empty(t, snap.Rising)
	assert.Empty(t, snap.Top)

	assert.Equal(t, 3, snap.Stats.TotalPosts)
	assert.Equal(t, 16, snap.Stats.TotalUpvotes)
	assert.Equal(t, 2, snap.Stats.Submolts)
	assert.True(t, snap.Stats.SubmoltsKnown)
	assert.Equal(t, 2, snap.Stats.DistinctAuthors, "author count comes from the leaderboard")
	assert.Equal(t, "b", snap.Stats.TopAgent)
	assert.Equal(t, 90, snap.Stats.TopKarma)
	assert.False(t, snap.AgentsAt.IsZero())
}

func TestCycle_AnyFetchFailureFailsCycle(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.failPosts.Store(1)
	p := dashboard.New(src, &recordingSink{}, testConfig(), infralogger.NewNop())

	_, err := p.Cycle(context.Background())
	require.ErrorIs(t, err, errDown)
	assert.True(t, strings.HasPrefix(err.Error(), "fetch "))
}

func TestCycle_UnknownSubmoltShape(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.submolts = `{"count":12}`
	p := dashboard.New(src, &recordingSink{}, testConfig(), infralogger.NewNop())

	snap, err := p.Cycle(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Stats.SubmoltsKnown)
	assert.Equal(t, 3, snap.Stats.DistinctAuthors, "no leaderboard yet, authors come from posts")
}

func TestRefreshAgents_FailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	p := dashboard.New(src, &recordingSink{}, testConfig(), infralogger.NewNop())
	ctx := context.Background()

	require.NoError(t, p.RefreshAgents(ctx))
	first, err := p.Cycle(ctx)
	require.NoError(t, err)

	src.failAgents.Store(true)
	require.ErrorIs(t, p.RefreshAgents(ctx), errDown)

	second, err := p.Cycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Agents, second.Agents)
	assert.Equal(t, first.AgentsAt, second.AgentsAt)
	assert.Equal(t, "b", second.Stats.TopAgent)
}

func TestRefreshAgents_UnrecognizedShapeKeepsPrevious(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	p := dashboard.New(src, &recordingSink{}, testConfig(), infralogger.NewNop())
	ctx := context.Background()
	require.NoError(t, p.RefreshAgents(ctx))

	src.agents = `{"message":"ok"}`
	require.ErrorIs(t, p.RefreshAgents(ctx), dashboard.ErrUnrecognizedLeaderboard)

	snap, err := p.Cycle(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Agents, 2)
}

func TestStep_BoundedRetries(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.failAlways.Store(true)
	sink := &recordingSink{}
	p := dashboard.New(src, sink, testConfig(), infralogger.NewNop())
	ctx := context.Background()

	var delays []time.Duration
	for range 5 {
		delays = append(delays, p.Step(ctx))
	}

	assert.Equal(t, []time.Duration{
		5 * time.Second, 5 * time.Second, 5 * time.Second, time.Minute, 5 * time.Second,
	}, delays)
	require.Len(t, sink.failures, 5)
	assert.False(t, sink.failures[3].Retry)
	assert.Empty(t, sink.snapshots)
}

func TestStep_SuccessResetsRetries(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	sink := &recordingSink{}
	p := dashboard.New(src, sink, testConfig(), infralogger.NewNop())
	ctx := context.Background()

	src.failAlways.Store(true)
	assert.Equal(t, 5*time.Second, p.Step(ctx))
	assert.Equal(t, 5*time.Second, p.Step(ctx))

	src.failAlways.Store(false)
	assert.Equal(t, time.Minute, p.Step(ctx))

	src.failAlways.Store(true)
	d := p.Step(ctx)
	assert.Equal(t, 5*time.Second, d)
	assert.Equal(t, 1, sink.failures[len(sink.failures)-1].Attempt)
}

func TestStep_CancelledContextIsNotAFailure(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.failAlways.Store(true)
	sink := &recordingSink{}
	p := dashboard.New(src, sink, testConfig(), infralogger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, time.Minute, p.Step(ctx))
	assert.Empty(t, sink.failures)
	assert.Empty(t, sink.snapshots)

	p.Step(context.Background())
	require.Len(t, sink.failures, 1)
	assert.Equal(t, 1, sink.failures[0].Attempt)
}

func TestRun_SchedulesFromStepDelays(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.failPosts.Store(2)
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		delays []time.Duration
	)
	never := make(chan time.Time)
	after := func(d time.Duration) <-chan time.Time {
		if d == 2*time.Minute {
			return never
		}
		mu.Lock()
		defer mu.Unlock()
		delays = append(delays, d)
		if len(delays) == 3 {
			cancel()
			return never
		}
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	p := dashboard.New(src, sink, testConfig(), infralogger.NewNop(), dashboard.WithAfter(after))

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	// Two post fetches fail inside the first cycle, so only the first cycle
	// fails; the retry succeeds and falls back to the regular interval.
	assert.Equal(t, []time.Duration{5 * time.Second, time.Minute, time.Minute}, delays)
	assert.Len(t, sink.failures, 1)
	assert.Len(t, sink.snapshots, 2)
	assert.Equal(t, "b", sink.last().Stats.TopAgent)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	sink := &recordingSink{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := dashboard.New(src, sink, testConfig(), infralogger.NewNop(),
		dashboard.WithClock(func() time.Time { return now }))

	require.NoError(t, p.RunOnce(context.Background()))
	require.Len(t, sink.snapshots, 1)
	assert.Equal(t, now, sink.last().UpdatedAt)
	assert.Equal(t, int32(len(dashboard.PostSorts)), src.postCalls.Load())

	src.failAlways.Store(true)
	err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "server down")
	assert.Len(t, sink.snapshots, 1)
}
