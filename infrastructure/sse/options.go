package sse

import "time"

// Defaults.
const (
	DefaultEventBufferSize   = 64
	DefaultClientBufferSize  = 16
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultMaxClients        = 500
)

// BrokerOption configures a broker. Non-positive sizes and intervals are
// ignored.
type BrokerOption func(*brokerConfig)

// WithEventBufferSize sizes the publish queue.
func WithEventBufferSize(size int) BrokerOption {
	return func(c *brokerConfig) {
		if size > 0 {
			c.eventBufferSize = size
		}
	}
}

// WithClientBufferSize sizes each client's queue.
func WithClientBufferSize(size int) BrokerOption {
	return func(c *brokerConfig) {
		if size > 0 {
			c.clientBufferSize = size
		}
	}
}

// WithHeartbeatInterval sets how often idle streams get a comment line.
func WithHeartbeatInterval(interval time.Duration) BrokerOption {
	return func(c *brokerConfig) {
		if interval > 0 {
			c.heartbeatInterval = interval
		}
	}
}

// WithMaxClients caps concurrent subscriptions. Zero is unlimited.
func WithMaxClients(n int) BrokerOption {
	return func(c *brokerConfig) { c.maxClients = max(n, 0) }
}

// WithReplayLatest sends the most recent event to each new subscriber, so a
// dashboard that connects between recomputations still learns the current
// leaderboard state.
func WithReplayLatest() BrokerOption {
	return func(c *brokerConfig) { c.replayLatest = true }
}

// ClientOption configures one subscription.
type ClientOption func(*ClientOptions)

// WithFilter drops events for which filter returns false.
func WithFilter(filter EventFilter) ClientOption {
	return func(o *ClientOptions) { o.Filter = filter }
}

// WithLeaderboardFilter passes only leaderboard events.
func WithLeaderboardFilter() ClientOption {
	return WithFilter(func(e Event) bool {
		return e.Type == EventTypeLeaderboardUpdated || e.Type == EventTypeLeaderboardFailed
	})
}
