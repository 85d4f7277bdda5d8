package router

import (
	"sort"
	"sync"
	"time"
)

// BreakerConfig tunes the per-provider circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures within
	// Window that opens the breaker.
	FailureThreshold int
	// Window bounds how far apart the failures of a streak may lie.
	Window time.Duration
	// Cooldown is how long an open breaker excludes the provider
	// before a probe is allowed.
	Cooldown time.Duration
	// LatencySamples is the ring size for latency tracking.
	LatencySamples int
}

// DefaultBreakerConfig returns the stock breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Window:           30 * time.Second,
		Cooldown:         30 * time.Second,
		LatencySamples:   32,
	}
}

type providerHealth struct {
	streak      int
	streakStart time.Time
	openUntil   time.Time
	probing     bool
	probeStart  time.Time

	latencies []time.Duration
	next      int
	filled    int
}

// healthTracker records per-provider outcomes and drives breaker and
// latency based routing decisions. Safe for concurrent use.
type healthTracker struct {
	cfg BreakerConfig
	now func() time.Time

	mu     sync.Mutex
	states map[string]*providerHealth
}

func newHealthTracker(cfg BreakerConfig) *healthTracker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultBreakerConfig().Window
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if cfg.LatencySamples <= 0 {
		cfg.LatencySamples = DefaultBreakerConfig().LatencySamples
	}
	return &healthTracker{cfg: cfg, now: time.Now, states: make(map[string]*providerHealth)}
}

func (h *healthTracker) state(name string) *providerHealth {
	s, ok := h.states[name]
	if !ok {
		s = &providerHealth{latencies: make([]time.Duration, h.cfg.LatencySamples)}
		h.states[name] = s
	}
	return s
}

// Available reports whether the provider may receive traffic. While
// the breaker is open it returns false; once the cooldown has passed
// it admits a single probe and stays closed to everyone else until
// the probe's outcome is recorded.
func (h *healthTracker) Available(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state(name)
	if s.openUntil.IsZero() {
		return true
	}
	now := h.now()
	if now.Before(s.openUntil) {
		return false
	}
	// A probe slot that was handed out but never resolved expires
	// after a cooldown, otherwise an unexercised probe would exclude
	// the provider forever.
	if s.probing && now.Sub(s.probeStart) < h.cfg.Cooldown {
		return false
	}
	s.probing = true
	s.probeStart = now
	return true
}

// RecordSuccess resets the failure streak, closes the breaker, and
// records the call latency.
func (h *healthTracker) RecordSuccess(name string, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state(name)
	s.streak = 0
	s.openUntil = time.Time{}
	s.probing = false

	s.latencies[s.next] = latency
	s.next = (s.next + 1) % len(s.latencies)
	if s.filled < len(s.latencies) {
		s.filled++
	}
}

// RecordFailure advances the failure streak and opens the breaker when
// the threshold is reached within the window. A failed probe reopens
// the breaker for another cooldown.
func (h *healthTracker) RecordFailure(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state(name)
	now := h.now()

	if s.probing {
		s.probing = false
		s.openUntil = now.Add(h.cfg.Cooldown)
		return
	}

	if s.streak == 0 || now.Sub(s.streakStart) > h.cfg.Window {
		s.streak = 0
		s.streakStart = now
	}
	s.streak++
	if s.streak >= h.cfg.FailureThreshold {
		s.openUntil = now.Add(h.cfg.Cooldown)
		s.streak = 0
	}
}

// MedianLatency returns the provider's median observed latency. The
// second result is false when no samples exist yet.
func (h *healthTracker) MedianLatency(name string) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state(name)
	if s.filled == 0 {
		return 0, false
	}
	samples := make([]time.Duration, s.filled)
	copy(samples, s.latencies[:s.filled])
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return samples[s.filled/2], true
}
