package sse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
)

// ErrBufferFull is returned by Publish when the broker is not keeping up.
var ErrBufferFull = errors.New("publish buffer full")

type broker struct {
	logger infralogger.Logger
	cfg    brokerConfig

	mu      sync.RWMutex
	clients map[string]*client
	// latest is the last broadcast event, replayed to new subscribers when
	// cfg.replayLatest is set.
	latest *Event

	publish  chan Event
	done     chan struct{}
	doneOnce sync.Once
	loopDone chan struct{}
}

type brokerConfig struct {
	eventBufferSize   int
	clientBufferSize  int
	heartbeatInterval time.Duration
	maxClients        int
	replayLatest      bool
}

// NewBroker creates a broker. Nothing is delivered until Start.
func NewBroker(logger infralogger.Logger, opts ...BrokerOption) Broker {
	cfg := brokerConfig{
		eventBufferSize:   DefaultEventBufferSize,
		clientBufferSize:  DefaultClientBufferSize,
		heartbeatInterval: DefaultHeartbeatInterval,
		maxClients:        DefaultMaxClients,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &broker{
		logger:   logger,
		cfg:      cfg,
		clients:  make(map[string]*client),
		publish:  make(chan Event, cfg.eventBufferSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start runs the broadcast loop until Stop or until ctx is done.
func (b *broker) Start(ctx context.Context) error {
	go b.run(ctx)

	b.logger.Info("SSE broker started",
		infralogger.Int("max_clients", b.cfg.maxClients),
		infralogger.Duration("heartbeat_interval", b.cfg.heartbeatInterval),
		infralogger.Bool("replay_latest", b.cfg.replayLatest),
	)
	return nil
}

// Stop disconnects every client and waits for the broadcast loop to end.
// It is safe to call more than once.
func (b *broker) Stop() error {
	b.closeDone()

	select {
	case <-b.loopDone:
		return nil
	case <-time.After(DefaultShutdownTimeout):
		return errors.New("SSE broker did not stop in time")
	}
}

func (b *broker) closeDone() {
	b.doneOnce.Do(func() { close(b.done) })
}

func (b *broker) Publish(ctx context.Context, event Event) error {
	select {
	case <-b.done:
		return errors.New("broker stopped")
	default:
	}

	select {
	case b.publish <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", event.Type, ctx.Err())
	default:
		return fmt.Errorf("publish %s: %w", event.Type, ErrBufferFull)
	}
}

// Subscribe registers a client for the lifetime of ctx. At capacity, or
// after Stop, the returned channel is already closed.
func (b *broker) Subscribe(ctx context.Context, opts ...ClientOption) (events <-chan Event, cleanup func()) {
	clientOpts := ClientOptions{BufferSize: b.cfg.clientBufferSize}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	c := newClient(clientOpts.BufferSize, clientOpts.Filter)

	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		c.close()
		return c.events, func() {}
	default:
	}
	if b.cfg.maxClients > 0 && len(b.clients) >= b.cfg.maxClients {
		b.mu.Unlock()
		b.logger.Warn("SSE client rejected, at capacity", infralogger.Int("max_clients", b.cfg.maxClients))
		c.close()
		return c.events, func() {}
	}
	b.clients[c.id] = c
	if b.cfg.replayLatest && b.latest != nil {
		c.send(*b.latest)
	}
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { b.remove(c.id) })
	b.logger.Debug("SSE client subscribed", infralogger.String("client_id", c.id))

	return c.events, func() {
		stop()
		b.remove(c.id)
	}
}

func (b *broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *broker) HeartbeatInterval() time.Duration {
	return b.cfg.heartbeatInterval
}

func (b *broker) run(ctx context.Context) {
	defer close(b.loopDone)

	b.loop(ctx)
	b.closeDone()
	b.disconnectAll()
	b.logger.Info("SSE broker stopped")
}

func (b *broker) loop(ctx context.Context) {
	for {
		select {
		case event := <-b.publish:
			b.broadcast(event)
		case <-ctx.Done():
			return
		case <-b.done:
			return
		}
	}
}

// broadcast delivers event to every client. A client whose buffer is full
// is disconnected rather than allowed to stall the others.
func (b *broker) broadcast(event Event) {
	b.mu.Lock()
	if b.cfg.replayLatest {
		b.latest = &event
	}
	var slow []string
	for id, c := range b.clients {
		if !c.send(event) {
			slow = append(slow, id)
		}
	}
	b.mu.Unlock()

	for _, id := range slow {
		b.logger.Warn("SSE client too slow, disconnecting",
			infralogger.String("client_id", id),
			infralogger.String("event_type", event.Type),
		)
		b.remove(id)
	}
}

func (b *broker) remove(id string) {
	b.mu.Lock()
	c, ok := b.clients[id]
	delete(b.clients, id)
	b.mu.Unlock()

	if ok {
		c.close()
		b.logger.Debug("SSE client removed", infralogger.String("client_id", id))
	}
}

func (b *broker) disconnectAll() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	b.logger.Info("SSE clients disconnected", infralogger.Int("count", len(clients)))
}
