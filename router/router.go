package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hupe1980/agentcore/logging"
)

// Strategy orders the routing candidates.
type Strategy string

const (
	// StrategyCost prefers the cheapest model.
	StrategyCost Strategy = "cost"
	// StrategySpeed prefers the lowest observed latency.
	StrategySpeed Strategy = "speed"
	// StrategyQuality prefers the highest quality tier.
	StrategyQuality Strategy = "quality"
	// StrategyFallback keeps the configured provider order.
	StrategyFallback Strategy = "fallback"
)

// DefaultCosts returns the stock model price table in USD per million
// tokens, used by the cost strategy. Unknown models sort last.
func DefaultCosts() map[string]float64 {
	return map[string]float64{
		"gpt-4":           30.0,
		"gpt-4-turbo":     10.0,
		"gpt-3.5-turbo":   0.5,
		"claude-3-opus":   15.0,
		"claude-3-sonnet": 3.0,
		"claude-3-haiku":  0.25,
	}
}

// DefaultQuality returns the stock quality tiers, higher is better.
func DefaultQuality() map[string]int {
	return map[string]int{
		"gpt-4":           10,
		"claude-3-opus":   10,
		"gpt-4-turbo":     9,
		"claude-3-sonnet": 8,
		"gpt-3.5-turbo":   6,
		"claude-3-haiku":  5,
	}
}

// DefaultSpeedRank returns the static speed ordering used by the speed
// strategy until live latency samples exist. Lower is faster.
func DefaultSpeedRank() map[string]int {
	return map[string]int{
		"claude-3-haiku":  1,
		"gpt-3.5-turbo":   2,
		"claude-3-sonnet": 3,
		"gpt-4-turbo":     4,
		"gpt-4":           5,
		"claude-3-opus":   6,
	}
}

// Candidate is one (provider, model) pair in a routing chain.
type Candidate struct {
	Provider string
	Model    string
}

func (c Candidate) String() string { return c.Provider + "/" + c.Model }

// Decision is the ordered chain of candidates for one request.
type Decision struct {
	Strategy   Strategy
	Candidates []Candidate
}

// RoutingRequest carries the completion payload plus routing inputs.
// Provider and Model are hints that pin the preferred candidate to the
// front of the chain.
type RoutingRequest struct {
	Request

	Provider string
	Model    string
	Strategy Strategy
}

// Options configure a Router.
type Options struct {
	// Costs, Quality and SpeedRank back the corresponding strategies.
	// Nil falls back to the Default* tables.
	Costs     map[string]float64
	Quality   map[string]int
	SpeedRank map[string]int

	// Breaker tunes per-provider failure handling.
	Breaker BreakerConfig

	// InitialBackoff and MaxBackoff bound the exponential wait
	// between failed candidates.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger logging.Logger
}

// Router dispatches completion requests across model providers.
type Router struct {
	providers map[string]Provider
	order     []string
	opts      Options
	health    *healthTracker
}

// New creates a Router over the given providers. Provider order is the
// fallback chain order.
func New(providers []Provider, optFns ...func(o *Options)) *Router {
	opts := Options{
		Costs:          DefaultCosts(),
		Quality:        DefaultQuality(),
		SpeedRank:      DefaultSpeedRank(),
		Breaker:        DefaultBreakerConfig(),
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	r := &Router{
		providers: make(map[string]Provider, len(providers)),
		opts:      opts,
		health:    newHealthTracker(opts.Breaker),
	}
	for _, p := range providers {
		if _, exists := r.providers[p.Name()]; exists {
			continue
		}
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// Decide builds the ordered candidate chain for a request. Providers
// with an open breaker are excluded.
func (r *Router) Decide(req RoutingRequest) Decision {
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyFallback
	}

	var candidates []Candidate
	for _, name := range r.order {
		if !r.health.Available(name) {
			r.opts.Logger.Debug("Skipping provider with open breaker", "provider", name)
			continue
		}
		for _, model := range r.providers[name].Models() {
			candidates = append(candidates, Candidate{Provider: name, Model: model})
		}
	}

	r.sortByStrategy(candidates, strategy)
	candidates = r.applyHint(candidates, req)

	return Decision{Strategy: strategy, Candidates: candidates}
}

func (r *Router) sortByStrategy(candidates []Candidate, strategy Strategy) {
	switch strategy {
	case StrategyCost:
		sort.SliceStable(candidates, func(i, j int) bool {
			return r.cost(candidates[i].Model) < r.cost(candidates[j].Model)
		})
	case StrategyQuality:
		sort.SliceStable(candidates, func(i, j int) bool {
			return r.opts.Quality[candidates[i].Model] > r.opts.Quality[candidates[j].Model]
		})
	case StrategySpeed:
		sort.SliceStable(candidates, func(i, j int) bool {
			return r.speed(candidates[i]) < r.speed(candidates[j])
		})
	default:
		// Fallback keeps the configured provider order.
	}
}

func (r *Router) cost(model string) float64 {
	if c, ok := r.opts.Costs[model]; ok {
		return c
	}
	// Unknown models are assumed expensive so known ones win.
	return 999
}

// speed prefers observed median latency over the static rank table.
func (r *Router) speed(c Candidate) float64 {
	if median, ok := r.health.MedianLatency(c.Provider); ok {
		return float64(median)
	}
	if rank, ok := r.opts.SpeedRank[c.Model]; ok {
		// Static ranks sort after any live measurement.
		return float64(time.Hour) + float64(rank)
	}
	return float64(time.Hour) * 2
}

// applyHint moves candidates matching the request's provider and model
// hints to the front of the chain.
func (r *Router) applyHint(candidates []Candidate, req RoutingRequest) []Candidate {
	if req.Provider == "" && req.Model == "" {
		return candidates
	}
	matches := func(c Candidate) bool {
		if req.Provider != "" && c.Provider != req.Provider {
			return false
		}
		if req.Model != "" && c.Model != req.Model {
			return false
		}
		return true
	}
	pinned := make([]Candidate, 0, len(candidates))
	rest := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if matches(c) {
			pinned = append(pinned, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(pinned, rest...)
}

// Invoke executes the request against the decided chain. Transient
// failures back off and fail over to the next candidate; permanent
// failures skip ahead without backoff; configuration failures abort
// immediately. When the chain is exhausted an AllProvidersError wraps
// the last failure.
func (r *Router) Invoke(ctx context.Context, req RoutingRequest) (*Response, error) {
	return r.invoke(ctx, req, nil)
}

// InvokeStream is Invoke with streaming deltas. Failover only happens
// while no delta has been delivered yet; once output reached the
// caller a failure surfaces as an error.
func (r *Router) InvokeStream(ctx context.Context, req RoutingRequest, onDelta func(delta string)) (*Response, error) {
	if onDelta == nil {
		onDelta = func(string) {}
	}
	return r.invoke(ctx, req, onDelta)
}

func (r *Router) invoke(ctx context.Context, req RoutingRequest, onDelta func(string)) (*Response, error) {
	decision := r.Decide(req)
	if len(decision.Candidates) == 0 {
		return nil, &AllProvidersError{Attempts: 0, Last: ErrNoCandidates}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.InitialBackoff
	bo.MaxInterval = r.opts.MaxBackoff
	bo.MaxElapsedTime = 0

	var lastErr error
	retries := 0
	for i, cand := range decision.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		provider := r.providers[cand.Provider]
		start := time.Now()

		var resp *Response
		var err error
		delivered := false
		if onDelta == nil {
			resp, err = provider.Complete(ctx, cand.Model, req.Request)
		} else {
			resp, err = provider.CompleteStream(ctx, cand.Model, req.Request, func(delta string) {
				delivered = true
				onDelta(delta)
			})
		}
		latency := time.Since(start)

		if err == nil {
			r.health.RecordSuccess(cand.Provider, latency)
			resp.Provider = cand.Provider
			resp.Model = cand.Model
			resp.Retries = retries
			r.opts.Logger.Debug("Model call routed", "candidate", cand.String(), "strategy", decision.Strategy, "retries", retries, "latency", latency)
			return resp, nil
		}

		r.health.RecordFailure(cand.Provider)
		perr := asProviderError(cand, err)
		lastErr = perr
		r.opts.Logger.Warn("Candidate failed", "candidate", cand.String(), "class", perr.Class.String(), "error", err)

		if delivered {
			// Output already reached the caller, failover would
			// duplicate it.
			return nil, perr
		}

		switch perr.Class {
		case ClassConfig:
			return nil, perr
		case ClassPermanent:
			retries++
		default:
			retries++
			if i < len(decision.Candidates)-1 {
				if err := sleepBackoff(ctx, bo.NextBackOff()); err != nil {
					return nil, err
				}
			}
		}
	}
	return nil, &AllProvidersError{Attempts: retries, Last: lastErr}
}

// asProviderError normalizes any failure into a ProviderError.
// Deadline and cancellation errors count as transient so the next
// candidate still gets a chance on a fresh per-call timeout.
func asProviderError(cand Candidate, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	class := ClassTransient
	if errors.Is(err, context.Canceled) {
		class = ClassConfig
	}
	return &ProviderError{
		Provider: cand.Provider,
		Model:    cand.Model,
		Class:    class,
		Err:      fmt.Errorf("complete: %w", err),
	}
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
