package render_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V-SK/moltboard/infrastructure/retry"
	"github.com/V-SK/moltboard/internal/dashboard"
	"github.com/V-SK/moltboard/internal/domain"
	"github.com/V-SK/moltboard/internal/render"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTimeAgo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, domain.Placeholder},
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"future", now.Add(time.Hour), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"just under an hour", now.Add(-59 * time.Minute), "59m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-50 * time.Hour), "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, render.TimeAgo(tt.t, now))
		})
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", render.Title(domain.Post{Title: "hello"}))
	assert.Equal(t, render.Untitled, render.Title(domain.Post{Title: "  "}))
}

func TestPosts_CapsRowsAndBuildsLinks(t *testing.T) {
	t.Parallel()

	var posts []domain.Post
	for i := range 30 {
		posts = append(posts, domain.Post{ID: fmt.Sprintf("id%02d", i), Title: fmt.Sprintf("title %02d", i)})
	}

	out := render.Posts("Hot", posts, render.PostRows, "https://site.example/", now)

	assert.Contains(t, out, "title 19")
	assert.NotContains(t, out, "title 20")
	assert.Contains(t, out, "https://site.example/post/id00")
}

func TestPosts_Fields(t *testing.T) {
	t.Parallel()

	p := domain.Post{
		ID:           "x",
		URL:          "https://elsewhere.example/x",
		Author:       domain.StructuredName{Name: "crab"},
		Submolt:      domain.StructuredName{Name: "general", DisplayName: "General"},
		UpvoteCount:  7,
		CommentCount: 2,
		CreatedAt:    now.Add(-2 * time.Hour),
	}

	out := render.Posts("New", []domain.Post{p}, render.PostRows, "https://site.example", now)

	for _, want := range []string{render.Untitled, "crab", "General", "7", "2h ago", "https://elsewhere.example/x"} {
		assert.Contains(t, out, want)
	}
}

func TestEmptyTablesShowNoData(t *testing.T) {
	t.Parallel()

	assert.Contains(t, render.Posts("Rising", nil, render.RisingRows, "", now), render.NoData)
	assert.Contains(t, render.Agents(nil, render.AgentRows), render.NoData)
}

func TestAgents(t *testing.T) {
	t.Parallel()

	rank := 9
	var agents []domain.AgentSummary
	for i := range 20 {
		agents = append(agents, domain.AgentSummary{Name: fmt.Sprintf("agent-%02d", i), Karma: 100 - i})
	}
	agents[0].Rank = &rank

	out := render.Agents(agents, render.AgentRows)

	assert.Contains(t, out, "agent-14")
	assert.NotContains(t, out, "agent-15")
	assert.Contains(t, out, " 9 ")
}

func TestStats(t *testing.T) {
	t.Parallel()

	out := render.Stats(dashboard.Stats{
		TotalPosts:      42,
		DistinctAuthors: 7,
		TotalUpvotes:    1234,
		Submolts:        5,
		SubmoltsKnown:   true,
		TopAgent:        "crab",
		TopKarma:        99,
	}, now.Add(-time.Minute), time.Time{}, now)

	for _, want := range []string{"42", "1234", "crab (99 karma)", "1m ago", domain.Placeholder} {
		assert.Contains(t, out, want)
	}
}

func TestStats_UnknownSubmoltsAndAgent(t *testing.T) {
	t.Parallel()

	out := render.Stats(dashboard.Stats{TopAgent: domain.Placeholder}, now, now, now)
	assert.NotContains(t, out, "karma")
}

func TestTerminal_UpdateAndFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := render.NewTerminal(&buf, "https://site.example",
		render.WithClear(true), render.WithNow(func() time.Time { return now }))

	term.Update(dashboard.Snapshot{
		Hot:       []domain.Post{{ID: "1", Title: "first"}},
		Stats:     dashboard.Stats{TopAgent: domain.Placeholder},
		UpdatedAt: now,
	})
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\033[H\033[2J"))
	assert.Contains(t, out, "first")
	assert.Contains(t, out, render.NoData)

	buf.Reset()
	term.Failed(errors.New("boom"), retry.Decision{Retry: true, Delay: 5 * time.Second, Attempt: 1})
	assert.Equal(t, "Refresh failed (attempt 1): boom. Retrying in 5s.\n", buf.String())
}

func TestFailureNotice_GivesUp(t *testing.T) {
	t.Parallel()

	msg := render.FailureNotice(errors.New("boom"), retry.Decision{Attempt: 4})
	assert.Contains(t, msg, "next scheduled refresh")
}
