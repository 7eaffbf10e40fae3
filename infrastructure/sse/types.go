// Package sse fans server-side events out to connected browsers over
// Server-Sent Events.
package sse

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one Server-Sent Event, written as
// "event: <Type>\nid: <ID>\ndata: <JSON Data>\n\n".
type Event struct {
	Type  string `json:"type"`
	Data  any    `json:"data"`
	ID    string `json:"id,omitempty"`
	Retry int    `json:"retry,omitempty"`
}

// Publisher sends events to the broker.
type Publisher interface {
	// Publish queues an event for every connected client. It fails when the
	// publish buffer is full or ctx is done.
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the broker.
type Subscriber interface {
	// Subscribe returns a channel of events and a cleanup func. The channel
	// is closed when the subscription ends.
	Subscribe(ctx context.Context, opts ...ClientOption) (<-chan Event, func())
}

// Broker manages SSE connections and event distribution.
type Broker interface {
	Publisher
	Subscriber
	Start(ctx context.Context) error
	Stop() error
	ClientCount() int
	HeartbeatInterval() time.Duration
}

// EventFilter reports whether an event should reach a client.
type EventFilter func(event Event) bool

// ClientOptions configures a single SSE client connection.
type ClientOptions struct {
	Filter     EventFilter
	BufferSize int
}

// Event types.
const (
	EventTypeLeaderboardUpdated = "leaderboard:updated"
	EventTypeLeaderboardFailed  = "leaderboard:failed"

	eventTypeConnected = "connected"
)

// LeaderboardUpdatedData is the payload for leaderboard:updated events.
type LeaderboardUpdatedData struct {
	Strategy   string `json:"strategy"`
	AgentCount int    `json:"agent_count"`
	TopAgent   string `json:"top_agent,omitempty"`
	TopKarma   int    `json:"top_karma"`
	ComputedAt string `json:"computed_at"`
	DurationMs int64  `json:"duration_ms"`
}

// LeaderboardFailedData is the payload for leaderboard:failed events.
type LeaderboardFailedData struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// NewLeaderboardUpdatedEvent creates a leaderboard:updated event.
func NewLeaderboardUpdatedEvent(data LeaderboardUpdatedData) Event {
	return Event{
		Type: EventTypeLeaderboardUpdated,
		ID:   uuid.NewString(),
		Data: data,
	}
}

// NewLeaderboardFailedEvent creates a leaderboard:failed event.
func NewLeaderboardFailedEvent(err error) Event {
	return Event{
		Type: EventTypeLeaderboardFailed,
		ID:   uuid.NewString(),
		Data: LeaderboardFailedData{
			Error:     err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
