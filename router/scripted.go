package router

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedProvider replays canned responses and errors in order. It
// backs tests and demos that need deterministic model behavior.
type ScriptedProvider struct {
	name   string
	models []string

	mu      sync.Mutex
	script  []ScriptStep
	pos     int
	calls   int
	lastReq Request
}

// ScriptStep is one canned outcome of a ScriptedProvider.
type ScriptStep struct {
	Response *Response
	Err      error
}

// NewScriptedProvider creates a provider named name serving models,
// replying with the given steps in order. Once the script runs out it
// keeps replaying the final step.
func NewScriptedProvider(name string, models []string, steps ...ScriptStep) *ScriptedProvider {
	if len(models) == 0 {
		models = []string{"scripted-model"}
	}
	return &ScriptedProvider{name: name, models: models, script: steps}
}

// Name implements Provider.
func (p *ScriptedProvider) Name() string { return p.name }

// Models implements Provider.
func (p *ScriptedProvider) Models() []string { return p.models }

// Complete implements Provider.
func (p *ScriptedProvider) Complete(ctx context.Context, model string, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastReq = req
	if len(p.script) == 0 {
		return nil, fmt.Errorf("scripted provider %s has no script", p.name)
	}
	step := p.script[p.pos]
	if p.pos < len(p.script)-1 {
		p.pos++
	}
	if step.Err != nil {
		return nil, step.Err
	}
	// Copy so callers cannot mutate the script.
	resp := *step.Response
	resp.Model = model
	return &resp, nil
}

// CompleteStream implements Provider, delivering the canned content as
// a single delta.
func (p *ScriptedProvider) CompleteStream(ctx context.Context, model string, req Request, onDelta func(string)) (*Response, error) {
	resp, err := p.Complete(ctx, model, req)
	if err != nil {
		return nil, err
	}
	if resp.Content != "" && onDelta != nil {
		onDelta(resp.Content)
	}
	return resp, nil
}

// Calls returns how many completions were requested.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// LastRequest returns the most recent request received.
func (p *ScriptedProvider) LastRequest() Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReq
}
