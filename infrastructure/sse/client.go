package sse

import (
	"sync"

	"github.com/google/uuid"
)

// client is one subscription. Its channel is closed exactly once.
type client struct {
	id     string
	events chan Event
	filter EventFilter

	mu     sync.Mutex
	closed bool
}

func newClient(bufferSize int, filter EventFilter) *client {
	return &client{
		id:     uuid.NewString(),
		events: make(chan Event, bufferSize),
		filter: filter,
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// send queues event without blocking. It reports false only when the buffer
// is full; filtered events and sends to a closed client report true.
func (c *client) send(event Event) bool {
	if c.filter != nil && !c.filter(event) {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}

	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}
