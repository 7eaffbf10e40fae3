package dashboard

import (
	"time"

	"github.com/V-SK/moltboard/internal/domain"
)

// Snapshot is everything one render needs.
type Snapshot struct {
	Hot    []domain.Post
	New    []domain.Post
	Rising []domain.Post
	Top    []domain.Post
	// Merged is the deduplicated union used for statistics only.
	Merged []domain.Post

	// Agents is the last successfully fetched leaderboard, possibly from an
	// earlier cycle. AgentsAt is zero when none has been fetched yet.
	Agents   []domain.AgentSummary
	AgentsAt time.Time

	Stats     Stats
	UpdatedAt time.Time
}

// Stats are the dashboard summary numbers.
type Stats struct {
	TotalPosts      int
	DistinctAuthors int
	TotalUpvotes    int
	// Submolts is meaningful only when SubmoltsKnown; the submolt response
	// may not carry a list.
	Submolts      int
	SubmoltsKnown bool
	TopAgent      string
	TopKarma      int
}

// Merge concatenates lists in order, keeping the first post seen for each
// Key. Posts without an ID are keyed by title, so untitled ID-less posts
// collapse into one.
func Merge(lists ...[]domain.Post) []domain.Post {
	seen := make(map[string]struct{})
	var merged []domain.Post
	for _, list := range lists {
		for _, p := range list {
			key := p.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

// ComputeStats derives the summary numbers. The author count and top agent
// come from agents when a leaderboard is available; otherwise the author
// count is taken from merged and the top agent is unknown.
func ComputeStats(merged []domain.Post, submolts int, submoltsKnown bool, agents []domain.AgentSummary) Stats {
	s := Stats{
		TotalPosts:    len(merged),
		Submolts:      submolts,
		SubmoltsKnown: submoltsKnown,
		TopAgent:      domain.Placeholder,
	}

	authors := make(map[string]struct{})
	for _, p := range merged {
		s.TotalUpvotes += domain.Upvotes(p)
		if name := domain.AuthorName(p); name != domain.Placeholder {
			authors[name] = struct{}{}
		}
	}
	s.DistinctAuthors = len(authors)

	if agents != nil {
		s.DistinctAuthors = len(agents)
	}
	if top, ok := domain.TopAgent(agents); ok {
		s.TopAgent = top.Name
		s.TopKarma = top.Karma
	}
	return s
}
