// Package normalize turns upstream JSON bodies into domain records regardless
// of which envelope or field names the upstream used.
package normalize

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/V-SK/moltboard/internal/domain"
)

// EnvelopeKeys are the wrapper fields checked, in order, for a record list.
var EnvelopeKeys = []string{"posts", "data", "results", "agents", "submolts"}

// Resolve returns the record list carried by v: v itself when it is an
// array, else the first present envelope field, else v unchanged. Callers
// must treat a non-array result as no records.
func Resolve(v gjson.Result) gjson.Result {
	if v.IsArray() {
		return v
	}
	if v.IsObject() {
		for _, key := range EnvelopeKeys {
			if f := v.Get(key); present(f) {
				return f
			}
		}
	}
	return v
}

// Records resolves body and returns its elements. ok is false when the body
// did not resolve to an array.
func Records(body []byte) (records []gjson.Result, ok bool) {
	v := Resolve(gjson.ParseBytes(body))
	if !v.IsArray() {
		return nil, false
	}
	return v.Array(), true
}

// Posts decodes every record in body as a post. A body without a record
// list yields no posts.
func Posts(body []byte) []domain.Post {
	records, _ := Records(body)
	posts := make([]domain.Post, 0, len(records))
	for _, r := range records {
		posts = append(posts, Post(r))
	}
	return posts
}

// Agents decodes every record in body as an agent summary.
func Agents(body []byte) []domain.AgentSummary {
	records, _ := Records(body)
	agents := make([]domain.AgentSummary, 0, len(records))
	for _, r := range records {
		agents = append(agents, Agent(r))
	}
	return agents
}

// Post decodes a single post record.
func Post(r gjson.Result) domain.Post {
	return domain.Post{
		ID:           firstString(r, "id", "_id"),
		Title:        r.Get("title").String(),
		URL:          r.Get("url").String(),
		Author:       authorName(r),
		Submolt:      submoltName(r),
		UpvoteCount:  firstInt(r, "upvotes", "upvote_count", "upvoteCount", "score"),
		CommentCount: firstInt(r, "comment_count", "commentCount", "comments"),
		CreatedAt:    parseTime(firstString(r, "createdAt", "created_at", "date")),
	}
}

// Agent decodes an agent record from either the upstream leaderboard or
// moltboard's own leaderboard response.
func Agent(r gjson.Result) domain.AgentSummary {
	a := domain.AgentSummary{
		Name:      firstString(r, "name", "username"),
		Karma:     firstInt(r, "karma"),
		Followers: firstInt(r, "followers", "follower_count", "followerCount"),
		Posts:     firstInt(r, "posts", "post_count", "postCount"),
		IsClaimed: firstBool(r, "isClaimed", "is_claimed"),
		XHandle:   firstString(r, "xHandle", "x_handle", "owner.x_handle"),
	}
	if rank := r.Get("rank"); rank.Type == gjson.Number {
		n := int(rank.Int())
		a.Rank = &n
	}
	return a
}

// Profile decodes an agents/profile body, which may wrap the agent under
// "agent". fallbackName is used when the profile carries no name.
func Profile(body []byte, fallbackName string) domain.AgentSummary {
	v := gjson.ParseBytes(body)
	if wrapped := v.Get("agent"); wrapped.IsObject() {
		v = wrapped
	}

	a := Agent(v)
	a.Rank = nil
	if a.Name == "" {
		a.Name = fallbackName
	}
	return a
}

func authorName(r gjson.Result) domain.Name {
	if a := r.Get("author"); a.IsObject() {
		return domain.StructuredName{Name: a.Get("name").String()}
	}
	if name := firstString(r, "author", "authorName"); name != "" {
		return domain.ScalarName(name)
	}
	if a := r.Get("agent"); a.IsObject() {
		return domain.StructuredName{Name: a.Get("name").String()}
	} else if a.Type == gjson.String && a.Str != "" {
		return domain.ScalarName(a.Str)
	}
	return nil
}

func submoltName(r gjson.Result) domain.Name {
	if s := r.Get("submolt"); s.IsObject() {
		return domain.StructuredName{
			Name:        s.Get("name").String(),
			DisplayName: s.Get("display_name").String(),
		}
	}
	if name := firstString(r, "submolt", "submoltName"); name != "" {
		return domain.ScalarName(name)
	}
	return nil
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

// firstString returns the first non-empty scalar among paths.
func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := r.Get(p)
		if v.IsObject() || v.IsArray() {
			continue
		}
		if s := v.String(); present(v) && s != "" {
			return s
		}
	}
	return ""
}

// firstInt returns the first present numeric value among paths, clamped to
// zero. Numeric strings count.
func firstInt(r gjson.Result, paths ...string) int {
	for _, p := range paths {
		v := r.Get(p)
		switch v.Type {
		case gjson.Number:
			return max(int(v.Int()), 0)
		case gjson.String:
			if n := gjson.Parse(v.Str); n.Type == gjson.Number {
				return max(int(n.Int()), 0)
			}
		}
	}
	return 0
}

func firstBool(r gjson.Result, paths ...string) bool {
	for _, p := range paths {
		if v := r.Get(p); v.IsBool() {
			return v.Bool()
		}
	}
	return false
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
