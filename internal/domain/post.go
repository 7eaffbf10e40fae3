// Package domain defines the records moltboard reads from the Moltbook API.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Post is one upstream post, normalized across the field names the API has
// used over time. Posts are rebuilt on every fetch and never stored.
type Post struct {
	// ID may be empty; Key falls back to the title.
	ID    string
	Title string
	// URL is empty when the upstream sent none; see PostURL.
	URL string
	// Author and Submolt are nil when absent.
	Author       Name
	Submolt      Name
	UpvoteCount  int
	CommentCount int
	// CreatedAt is zero when absent or unparseable.
	CreatedAt time.Time
}

// Key is the deduplication key: the ID, or the NFC-normalized title when
// there is no ID. Distinct posts without IDs that share a title collapse
// into one.
func (p Post) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return norm.NFC.String(p.Title)
}

// AuthorName returns the post author, or Placeholder.
func AuthorName(p Post) string {
	switch n := p.Author.(type) {
	case StructuredName:
		if n.Name != "" {
			return n.Name
		}
	case ScalarName:
		if n != "" {
			return string(n)
		}
	}
	return Placeholder
}

// SubmoltName returns the submolt display name, its name, or Placeholder.
func SubmoltName(p Post) string {
	switch n := p.Submolt.(type) {
	case StructuredName:
		if n.DisplayName != "" {
			return n.DisplayName
		}
		if n.Name != "" {
			return n.Name
		}
	case ScalarName:
		if n != "" {
			return string(n)
		}
	}
	return Placeholder
}

// PostURL returns the post's own URL or its canonical page under siteURL.
func PostURL(p Post, siteURL string) string {
	if p.URL != "" {
		return p.URL
	}
	return strings.TrimRight(siteURL, "/") + "/post/" + p.ID
}

// Upvotes returns the upvote count, never negative.
func Upvotes(p Post) int {
	return max(p.UpvoteCount, 0)
}

// Comments returns the comment count, never negative.
func Comments(p Post) int {
	return max(p.CommentCount, 0)
}
