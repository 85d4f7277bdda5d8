package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RunContext carries the state of a single run: identity, transcript,
// step budget, lifecycle status, and the event channel. The run loop
// owns it; Cancel and the read accessors may be called from other
// goroutines.
type RunContext struct {
	RunID     string
	SessionID string
	Config    AgentConfig

	ctx     context.Context
	emit    chan<- Event
	limiter *StepLimiter
	cancel  CancelFlag

	mu     sync.Mutex
	status Status
	steps  []Step
}

// NewRunContext builds the state for a new run. Events written via
// EmitEvent are delivered to emit until the run reaches a terminal
// status.
func NewRunContext(ctx context.Context, sessionID string, cfg AgentConfig, emit chan<- Event) *RunContext {
	return &RunContext{
		RunID:     NewID(),
		SessionID: sessionID,
		Config:    cfg,
		ctx:       ctx,
		emit:      emit,
		limiter:   NewStepLimiter(cfg.EffectiveMaxSteps()),
	}
}

// Context returns the context the run was started with.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// Status returns the current lifecycle status.
func (rc *RunContext) Status() Status {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.status
}

// SetStatus transitions the run. Terminal states are absorbing: the
// call reports false and leaves the status unchanged if the run
// already terminated.
func (rc *RunContext) SetStatus(s Status) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.status.IsTerminal() {
		return false
	}
	rc.status = s
	return true
}

// Cancel requests cancellation. It returns true exactly once, and only
// if the run has not already reached a terminal status.
func (rc *RunContext) Cancel() bool {
	rc.mu.Lock()
	terminal := rc.status.IsTerminal()
	rc.mu.Unlock()
	if terminal {
		return false
	}
	return rc.cancel.Cancel()
}

// Cancelled reports whether cancellation was requested.
func (rc *RunContext) Cancelled() bool { return rc.cancel.Cancelled() }

// AppendStep records a transcript step, consuming one unit of the step
// budget. Indices are assigned sequentially starting at zero. It
// returns a MaxStepsError when the budget is exhausted.
func (rc *RunContext) AppendStep(kind StepKind, name, input, output, errMsg string) (Step, error) {
	if err := rc.limiter.Take(); err != nil {
		return Step{}, err
	}
	rc.mu.Lock()
	step := Step{
		Index:     len(rc.steps),
		Kind:      kind,
		Name:      name,
		Input:     input,
		Output:    output,
		Err:       errMsg,
		Timestamp: time.Now(),
	}
	rc.steps = append(rc.steps, step)
	rc.mu.Unlock()
	return step, nil
}

// Steps returns a copy of the transcript so far.
func (rc *RunContext) Steps() []Step {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]Step, len(rc.steps))
	copy(out, rc.steps)
	return out
}

// StepCount returns the number of recorded steps.
func (rc *RunContext) StepCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.steps)
}

// EmitEvent delivers an event to the run's stream. It fails if the
// run's context is done before the event can be delivered.
func (rc *RunContext) EmitEvent(ev Event) error {
	select {
	case rc.emit <- ev:
		return nil
	case <-rc.ctx.Done():
		return fmt.Errorf("emit event %s for run %s: %w", ev.Type, rc.RunID, rc.ctx.Err())
	}
}
