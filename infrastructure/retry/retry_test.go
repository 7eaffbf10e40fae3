package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V-SK/moltboard/infrastructure/retry"
)

func TestTracker_BoundedRetries(t *testing.T) {
	t.Parallel()

	tr := retry.NewTracker(retry.DefaultConfig())

	var retries int
	for range 4 {
		if d := tr.Failure(); d.Retry {
			retries++
			assert.Equal(t, 5*time.Second, d.Delay)
		}
	}

	assert.Equal(t, 3, retries)
	assert.Zero(t, tr.Failures(), "counter resets after exceeding the bound")
}

func TestTracker_SuccessResets(t *testing.T) {
	t.Parallel()

	tr := retry.NewTracker(retry.DefaultConfig())
	tr.Failure()
	tr.Failure()
	require.Equal(t, 2, tr.Failures())

	tr.Success()
	assert.Zero(t, tr.Failures())

	d := tr.Failure()
	assert.True(t, d.Retry)
	assert.Equal(t, 1, d.Attempt)
}

func TestTracker_ExponentialCapped(t *testing.T) {
	t.Parallel()

	tr := retry.NewTracker(retry.Config{
		MaxRetries: 4,
		Delay:      time.Second,
		Multiplier: 2,
		MaxDelay:   3 * time.Second,
	})

	var delays []time.Duration
	for range 4 {
		delays = append(delays, tr.Failure().Delay)
	}

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, delays)
}

func TestTracker_ZeroRetries(t *testing.T) {
	t.Parallel()

	tr := retry.NewTracker(retry.Config{MaxRetries: 0, Delay: time.Second})
	d := tr.Failure()

	assert.False(t, d.Retry)
	assert.Zero(t, d.Delay)
	assert.Zero(t, tr.Failures())
}
