// Package cache holds a single time-bounded derived value.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const flightKey = "value"

// Entry is a computed value and when it was computed.
type Entry[T any] struct {
	Value      T
	ComputedAt time.Time
}

// Observer is told whether each read was served from the entry.
type Observer interface {
	CacheHit()
	CacheMiss()
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now            func() time.Time
	computeTimeout time.Duration
	observer       Observer
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithComputeTimeout bounds each computation. Zero means no deadline.
func WithComputeTimeout(d time.Duration) Option {
	return func(o *options) { o.computeTimeout = d }
}

// WithObserver reports hits and misses to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// TTL caches one value for a fixed window. Reads inside the window return
// the entry; the first read after it runs compute, and concurrent reads that
// arrive meanwhile wait for that same computation. A failed computation
// leaves the previous entry in place. TTL is safe for concurrent use.
type TTL[T any] struct {
	ttl  time.Duration
	opts options

	mu    sync.RWMutex
	entry *Entry[T]

	group singleflight.Group
}

// New creates a cache whose entries live for ttl.
func New[T any](ttl time.Duration, opts ...Option) *TTL[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[T]{ttl: ttl, opts: o}
}

// Get returns the cached value while it is fresh, otherwise computes a new
// one. compute runs detached from ctx's cancellation so one caller giving up
// does not fail the others waiting on it; ctx only bounds this caller's wait.
// Every caller coalesced onto a failed computation receives its error.
func (c *TTL[T]) Get(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	if e, ok := c.fresh(); ok {
		c.observe(true)
		return e.Value, nil
	}
	c.observe(false)

	ch := c.group.DoChan(flightKey, func() (any, error) {
		// A flight that finished between fresh() and DoChan already refilled the entry.
		if e, ok := c.fresh(); ok {
			return e, nil
		}

		computeCtx := context.WithoutCancel(ctx)
		if c.opts.computeTimeout > 0 {
			var cancel context.CancelFunc
			computeCtx, cancel = context.WithTimeout(computeCtx, c.opts.computeTimeout)
			defer cancel()
		}

		v, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}

		e := &Entry[T]{Value: v, ComputedAt: c.opts.now()}
		c.mu.Lock()
		c.entry = e
		c.mu.Unlock()
		return e, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		e, _ := res.Val.(*Entry[T])
		return e.Value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek returns the current entry, fresh or not, without computing.
func (c *TTL[T]) Peek() (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return Entry[T]{}, false
	}
	return *c.entry, true
}

// Invalidate drops the entry so the next Get recomputes.
func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

// TTL returns the configured freshness window.
func (c *TTL[T]) TTL() time.Duration {
	return c.ttl
}

func (c *TTL[T]) fresh() (*Entry[T], bool) {
	c.mu.RLock()
	e := c.entry
	c.mu.RUnlock()

	if e == nil || c.opts.now().Sub(e.ComputedAt) >= c.ttl {
		return nil, false
	}
	return e, true
}

func (c *TTL[T]) observe(hit bool) {
	if c.opts.observer == nil {
		return
	}
	if hit {
		c.opts.observer.CacheHit()
	} else {
		c.opts.observer.CacheMiss()
	}
}
