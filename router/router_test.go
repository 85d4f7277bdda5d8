package router

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

func transientErr(provider string) error {
	return &ProviderError{Provider: provider, Class: ClassTransient, Status: 503, Err: fmt.Errorf("upstream overloaded")}
}

func fastBackoff(o *Options) {
	o.InitialBackoff = time.Millisecond
	o.MaxBackoff = 2 * time.Millisecond
}

func TestInvokeFallbackRecordsRetries(t *testing.T) {
	a := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{Err: transientErr("a")})
	b := NewScriptedProvider("b", []string{"model-b"}, ScriptStep{Err: transientErr("b")})
	c := NewScriptedProvider("c", []string{"model-c"}, ScriptStep{Response: &Response{Content: "ok"}})

	r := New([]Provider{a, b, c}, fastBackoff)
	resp, err := r.Invoke(context.Background(), RoutingRequest{
		Request:  Request{Messages: []core.Message{core.UserMessage("hi")}},
		Strategy: StrategyFallback,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "c", resp.Provider)
	assert.Equal(t, "model-c", resp.Model)
	assert.Equal(t, 2, resp.Retries, "two candidates failed before the third succeeded")
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, 1, c.Calls())
}

func TestInvokeAllProvidersUnavailable(t *testing.T) {
	a := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{Err: transientErr("a")})
	b := NewScriptedProvider("b", []string{"model-b"}, ScriptStep{Err: transientErr("b")})

	r := New([]Provider{a, b}, fastBackoff)
	_, err := r.Invoke(context.Background(), RoutingRequest{})

	var all *AllProvidersError
	require.True(t, errors.As(err, &all))
	assert.Equal(t, 2, all.Attempts)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr), "the last provider failure stays inspectable")
	assert.Equal(t, "b", perr.Provider)
}

func TestInvokeConfigErrorAbortsChain(t *testing.T) {
	a := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{
		Err: &ProviderError{Provider: "a", Class: ClassConfig, Status: 401, Err: fmt.Errorf("invalid api key")},
	})
	b := NewScriptedProvider("b", []string{"model-b"}, ScriptStep{Response: &Response{Content: "never"}})

	r := New([]Provider{a, b}, fastBackoff)
	_, err := r.Invoke(context.Background(), RoutingRequest{})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ClassConfig, perr.Class)
	assert.Equal(t, 0, b.Calls(), "a configuration failure must not fail over")
}

func TestInvokePermanentErrorSkipsWithoutBackoff(t *testing.T) {
	a := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{
		Err: &ProviderError{Provider: "a", Class: ClassPermanent, Status: 404, Err: fmt.Errorf("model not found")},
	})
	b := NewScriptedProvider("b", []string{"model-b"}, ScriptStep{Response: &Response{Content: "ok"}})

	r := New([]Provider{a, b}, fastBackoff)
	resp, err := r.Invoke(context.Background(), RoutingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "b", resp.Provider)
	assert.Equal(t, 1, resp.Retries)
}

func TestInvokeBreakerExcludesProvider(t *testing.T) {
	failing := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{Err: transientErr("a")})
	healthy := NewScriptedProvider("b", []string{"model-b"}, ScriptStep{Response: &Response{Content: "ok"}})

	r := New([]Provider{failing, healthy}, fastBackoff, func(o *Options) {
		o.Breaker = BreakerConfig{FailureThreshold: 2, Window: time.Minute, Cooldown: time.Minute}
	})

	for i := 0; i < 2; i++ {
		_, err := r.Invoke(context.Background(), RoutingRequest{})
		require.NoError(t, err)
	}
	require.Equal(t, 2, failing.Calls())

	_, err := r.Invoke(context.Background(), RoutingRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, failing.Calls(), "an open breaker removes the provider from routing")
}

func TestInvokeNoCandidates(t *testing.T) {
	r := New(nil)
	_, err := r.Invoke(context.Background(), RoutingRequest{})
	var all *AllProvidersError
	require.True(t, errors.As(err, &all))
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestDecideCostStrategy(t *testing.T) {
	openai := NewScriptedProvider("openai", []string{"gpt-4", "gpt-3.5-turbo"})
	anthropic := NewScriptedProvider("anthropic", []string{"claude-3-opus", "claude-3-haiku"})

	r := New([]Provider{openai, anthropic})
	decision := r.Decide(RoutingRequest{Strategy: StrategyCost})

	require.Len(t, decision.Candidates, 4)
	assert.Equal(t, "claude-3-haiku", decision.Candidates[0].Model)
	assert.Equal(t, "gpt-3.5-turbo", decision.Candidates[1].Model)
	assert.Equal(t, "claude-3-opus", decision.Candidates[2].Model)
	assert.Equal(t, "gpt-4", decision.Candidates[3].Model)
}

func TestDecideQualityStrategy(t *testing.T) {
	openai := NewScriptedProvider("openai", []string{"gpt-3.5-turbo", "gpt-4"})
	anthropic := NewScriptedProvider("anthropic", []string{"claude-3-haiku"})

	r := New([]Provider{openai, anthropic})
	decision := r.Decide(RoutingRequest{Strategy: StrategyQuality})

	require.Len(t, decision.Candidates, 3)
	assert.Equal(t, "gpt-4", decision.Candidates[0].Model)
	assert.Equal(t, "gpt-3.5-turbo", decision.Candidates[1].Model)
	assert.Equal(t, "claude-3-haiku", decision.Candidates[2].Model)
}

func TestDecideSpeedStrategyPrefersMeasuredLatency(t *testing.T) {
	slow := NewScriptedProvider("slow", []string{"gpt-4"})
	fast := NewScriptedProvider("fast", []string{"claude-3-opus"})

	r := New([]Provider{slow, fast})
	r.health.RecordSuccess("fast", 10*time.Millisecond)

	decision := r.Decide(RoutingRequest{Strategy: StrategySpeed})
	require.Len(t, decision.Candidates, 2)
	assert.Equal(t, "fast", decision.Candidates[0].Provider, "live latency beats the static rank")
}

func TestDecideHintPinsCandidate(t *testing.T) {
	openai := NewScriptedProvider("openai", []string{"gpt-4", "gpt-3.5-turbo"})
	anthropic := NewScriptedProvider("anthropic", []string{"claude-3-haiku"})

	r := New([]Provider{openai, anthropic})
	decision := r.Decide(RoutingRequest{Strategy: StrategyCost, Provider: "openai", Model: "gpt-4"})

	require.NotEmpty(t, decision.Candidates)
	assert.Equal(t, Candidate{Provider: "openai", Model: "gpt-4"}, decision.Candidates[0])
	assert.Len(t, decision.Candidates, 3, "the hint reorders, it does not drop candidates")
}

func TestInvokeStreamDeliversDeltas(t *testing.T) {
	p := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{Response: &Response{Content: "hello"}})
	r := New([]Provider{p})

	var deltas []string
	resp, err := r.InvokeStream(context.Background(), RoutingRequest{}, func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, []string{"hello"}, deltas)
}

func TestInvokeContextCancelled(t *testing.T) {
	p := NewScriptedProvider("a", []string{"model-a"}, ScriptStep{Response: &Response{Content: "ok"}})
	r := New([]Provider{p})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Invoke(ctx, RoutingRequest{})
	assert.Error(t, err)
}
