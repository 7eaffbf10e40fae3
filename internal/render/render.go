// Package render formats dashboard snapshots as terminal tables.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/V-SK/moltboard/internal/dashboard"
	"github.com/V-SK/moltboard/internal/domain"
)

// Row caps per table.
const (
	PostRows   = 20
	RisingRows = 15
	AgentRows  = 15
)

const (
	// Untitled replaces an empty post title.
	Untitled = "(untitled)"
	// NoData fills an empty table.
	NoData = "No data"

	titleWidth = 60
)

// TimeAgo formats the age of t relative to now. A zero t renders as the
// placeholder and future times as "just now".
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return domain.Placeholder
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

// Title returns the post title or Untitled.
func Title(p domain.Post) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return Untitled
}

func newTable(title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(header)
	return t
}

// appendNoData fills an empty table with a single merged "No data" row.
func appendNoData(t table.Writer, columns int) {
	row := make(table.Row, columns)
	for i := range row {
		row[i] = NoData
	}
	t.AppendRow(row, table.RowConfig{AutoMerge: true})
}

// Posts renders up to rows posts.
func Posts(title string, posts []domain.Post, rows int, siteURL string, now time.Time) string {
	header := table.Row{"#", "Title", "Author", "Submolt", "Upvotes", "Comments", "Age", "Link"}
	t := newTable(title, header)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleWidth},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	if len(posts) == 0 {
		appendNoData(t, len(header))
		return t.Render()
	}

	for i, p := range posts[:min(rows, len(posts))] {
		t.AppendRow(table.Row{
			i + 1,
			Title(p),
			domain.AuthorName(p),
			domain.SubmoltName(p),
			domain.Upvotes(p),
			domain.Comments(p),
			TimeAgo(p.CreatedAt, now),
			domain.PostURL(p, siteURL),
		})
	}
	return t.Render()
}

// Agents renders up to rows leaderboard entries in their given order.
func Agents(agents []domain.AgentSummary, rows int) string {
	header := table.Row{"Rank", "Agent", "Karma", "Followers", "Posts"}
	t := newTable("Top Agents", header)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	if len(agents) == 0 {
		appendNoData(t, len(header))
		return t.Render()
	}

	for i, a := range agents[:min(rows, len(agents))] {
		rank := i + 1
		if a.Rank != nil {
			rank = *a.Rank
		}
		name := a.Name
		if name == "" {
			name = domain.Placeholder
		}
		t.AppendRow(table.Row{rank, name, a.Karma, a.Followers, a.Posts})
	}
	return t.Render()
}

// Stats renders the summary numbers.
func Stats(s dashboard.Stats, updatedAt, agentsAt, now time.Time) string {
	t := newTable("Stats", table.Row{"Metric", "Value"})

	submolts := domain.Placeholder
	if s.SubmoltsKnown {
		submolts = fmt.Sprint(s.Submolts)
	}
	topAgent := s.TopAgent
	if topAgent != domain.Placeholder {
		topAgent = fmt.Sprintf("%s (%d karma)", s.TopAgent, s.TopKarma)
	}

	t.AppendRows([]table.Row{
		{"Posts", s.TotalPosts},
		{"Agents", s.DistinctAuthors},
		{"Upvotes", s.TotalUpvotes},
		{"Submolts", submolts},
		{"Top agent", topAgent},
		{"Updated", TimeAgo(updatedAt, now)},
		{"Leaderboard", TimeAgo(agentsAt, now)},
	})
	return t.Render()
}

// Dashboard renders every section of a snapshot.
func Dashboard(snap dashboard.Snapshot, siteURL string, now time.Time) string {
	sections := []string{
		Stats(snap.Stats, snap.UpdatedAt, snap.AgentsAt, now),
		Posts("Hot", snap.Hot, PostRows, siteURL, now),
		Posts("New", snap.New, PostRows, siteURL, now),
		Posts("Rising", snap.Rising, RisingRows, siteURL, now),
		Agents(snap.Agents, AgentRows),
	}
	return strings.Join(sections, "\n\n") + "\n"
}
