// Package retry tracks consecutive failures of a periodic job and decides
// whether the next attempt is an early retry or waits for the regular schedule.
package retry

import (
	"math"
	"sync"
	"time"
)

// Config configures retry behavior.
type Config struct {
	// MaxRetries is how many early retries are allowed after consecutive
	// failures before the tracker gives up and resets.
	MaxRetries int
	// Delay is the wait before the first early retry.
	Delay time.Duration
	// Multiplier grows the delay per consecutive failure. 1 keeps it fixed.
	Multiplier float64
	// MaxDelay caps the grown delay.
	MaxDelay time.Duration
}

// DefaultConfig returns three fixed 5 second retries.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Delay:      5 * time.Second,
		Multiplier: 1,
		MaxDelay:   time.Minute,
	}
}

// Decision is the outcome of recording a failure.
type Decision struct {
	// Retry is true when the caller should try again after Delay.
	Retry bool
	// Delay is the wait before the early retry. Zero when Retry is false.
	Delay time.Duration
	// Attempt is the 1-based consecutive failure count that produced this
	// decision.
	Attempt int
}

// Tracker counts consecutive failures. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	cfg      Config
	failures int
}

// NewTracker creates a Tracker, filling unset fields from DefaultConfig.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Delay <= 0 {
		cfg.Delay = def.Delay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}
	return &Tracker{cfg: cfg}
}

// Failure records a failed attempt. While the failure count stays within
// MaxRetries the caller gets an early retry; once it is exceeded the count
// resets to zero and the caller should fall back to its regular schedule.
func (t *Tracker) Failure() Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failures++
	attempt := t.failures
	if attempt > t.cfg.MaxRetries {
		t.failures = 0
		return Decision{Attempt: attempt}
	}

	delay := time.Duration(float64(t.cfg.Delay) * math.Pow(t.cfg.Multiplier, float64(attempt-1)))
	if delay > t.cfg.MaxDelay {
		delay = t.cfg.MaxDelay
	}

	return Decision{Retry: true, Delay: delay, Attempt: attempt}
}

// Success resets the failure count.
func (t *Tracker) Success() {
	t.mu.Lock()
	t.failures = 0
	t.mu.Unlock()
}

// Failures returns the current consecutive failure count.
func (t *Tracker) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}
