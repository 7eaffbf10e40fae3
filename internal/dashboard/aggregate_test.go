package dashboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V-SK/moltboard/internal/dashboard"
	"github.com/V-SK/moltboard/internal/domain"
)

func post(id, author string, upvotes int) domain.Post {
	return domain.Post{ID: id, Title: "post " + id, Author: domain.ScalarName(author), UpvoteCount: upvotes}
}

func TestMerge_FirstSeenWins(t *testing.T) {
	t.Parallel()

	hot := []domain.Post{post("1", "a", 1), post("2", "b", 2)}
	newer := []domain.Post{post("2", "changed", 99), post("3", "c", 3)}

	merged := dashboard.Merge(hot, newer)

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{merged[0].ID, merged[1].ID, merged[2].ID})
	assert.Equal(t, 2, merged[1].UpvoteCount, "hot copy is kept")
}

func TestMerge_TitleKeyWithoutID(t *testing.T) {
	t.Parallel()

	a := domain.Post{Title: "same"}
	b := domain.Post{Title: "same", UpvoteCount: 7}
	c := domain.Post{Title: "other"}

	merged := dashboard.Merge([]domain.Post{a}, []domain.Post{b, c})
	assert.Len(t, merged, 2)
}

func TestMerge_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, dashboard.Merge(nil, []domain.Post{}))
}

func TestComputeStats_FromPosts(t *testing.T) {
	t.Parallel()

	merged := []domain.Post{
		post("1", "a", 10),
		post("2", "a", 5),
		post("3", "b", -4),
		{ID: "4", Title: "anonymous", UpvoteCount: 1},
	}

	s := dashboard.ComputeStats(merged, 5, true, nil)

	assert.Equal(t, 4, s.TotalPosts)
	assert.Equal(t, 16, s.TotalUpvotes, "negative upvotes count as zero")
	assert.Equal(t, 2, s.DistinctAuthors)
	assert.Equal(t, 5, s.Submolts)
	assert.True(t, s.SubmoltsKnown)
	assert.Equal(t, domain.Placeholder, s.TopAgent)
	assert.Zero(t, s.TopKarma)
}

func TestComputeStats_FromAgents(t *testing.T) {
	t.Parallel()

	agents := []domain.AgentSummary{
		{Name: "x", Karma: 3},
		{Name: "y", Karma: 9},
		{Name: "z", Karma: 9},
	}

	s := dashboard.ComputeStats([]domain.Post{post("1", "a", 1)}, 0, false, agents)

	assert.Equal(t, 3, s.DistinctAuthors)
	assert.Equal(t, "y", s.TopAgent)
	assert.Equal(t, 9, s.TopKarma)
	assert.False(t, s.SubmoltsKnown)
}

func TestComputeStats_EmptyAgentList(t *testing.T) {
	t.Parallel()

	s := dashboard.ComputeStats([]domain.Post{post("1", "a", 1)}, 0, true, []domain.AgentSummary{})

	assert.Zero(t, s.DistinctAuthors)
	assert.Equal(t, domain.Placeholder, s.TopAgent)
}
