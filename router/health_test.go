package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(threshold int, window, cooldown time.Duration) (*healthTracker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newHealthTracker(BreakerConfig{FailureThreshold: threshold, Window: window, Cooldown: cooldown, LatencySamples: 8})
	h.now = func() time.Time { return now }
	return h, &now
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	h, _ := newTestTracker(3, 30*time.Second, 30*time.Second)

	assert.True(t, h.Available("openai"))
	h.RecordFailure("openai")
	h.RecordFailure("openai")
	assert.True(t, h.Available("openai"), "below the threshold the breaker stays closed")

	h.RecordFailure("openai")
	assert.False(t, h.Available("openai"), "the third failure opens the breaker")
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	h, _ := newTestTracker(3, 30*time.Second, 30*time.Second)

	h.RecordFailure("openai")
	h.RecordFailure("openai")
	h.RecordSuccess("openai", 100*time.Millisecond)
	h.RecordFailure("openai")
	h.RecordFailure("openai")
	assert.True(t, h.Available("openai"), "a success in between breaks the streak")
}

func TestBreakerWindowExpiresStreak(t *testing.T) {
	h, now := newTestTracker(3, 30*time.Second, 30*time.Second)

	h.RecordFailure("openai")
	h.RecordFailure("openai")
	*now = now.Add(31 * time.Second)
	h.RecordFailure("openai")
	assert.True(t, h.Available("openai"), "failures outside the window do not count together")
}

func TestBreakerCooldownAndProbe(t *testing.T) {
	h, now := newTestTracker(2, time.Minute, 30*time.Second)

	h.RecordFailure("openai")
	h.RecordFailure("openai")
	require.False(t, h.Available("openai"))

	*now = now.Add(29 * time.Second)
	assert.False(t, h.Available("openai"), "still cooling down")

	*now = now.Add(2 * time.Second)
	assert.True(t, h.Available("openai"), "after the cooldown one probe is admitted")
	assert.False(t, h.Available("openai"), "only one probe at a time")

	h.RecordSuccess("openai", 50*time.Millisecond)
	assert.True(t, h.Available("openai"), "a successful probe closes the breaker")
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	h, now := newTestTracker(2, time.Minute, 30*time.Second)

	h.RecordFailure("openai")
	h.RecordFailure("openai")
	*now = now.Add(31 * time.Second)
	require.True(t, h.Available("openai"))

	h.RecordFailure("openai")
	assert.False(t, h.Available("openai"), "a failed probe starts another cooldown")

	*now = now.Add(31 * time.Second)
	assert.True(t, h.Available("openai"))
}

func TestMedianLatency(t *testing.T) {
	h, _ := newTestTracker(3, time.Minute, time.Minute)

	_, ok := h.MedianLatency("openai")
	assert.False(t, ok, "no samples yet")

	h.RecordSuccess("openai", 100*time.Millisecond)
	h.RecordSuccess("openai", 300*time.Millisecond)
	h.RecordSuccess("openai", 200*time.Millisecond)

	median, ok := h.MedianLatency("openai")
	require.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, median)
}
