package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunContext(t *testing.T, cfg AgentConfig) (*RunContext, chan Event) {
	t.Helper()
	emit := make(chan Event, 16)
	return NewRunContext(context.Background(), "session-1", cfg, emit), emit
}

func TestRunContextStepIndices(t *testing.T) {
	rc, _ := newTestRunContext(t, AgentConfig{ID: "a", MaxSteps: 5})

	for i := 0; i < 3; i++ {
		step, err := rc.AppendStep(StepModelCall, "", "in", "out", "")
		require.NoError(t, err)
		assert.Equal(t, i, step.Index)
	}

	steps := rc.Steps()
	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, i, s.Index, "indices must be strictly increasing without gaps")
	}
}

func TestRunContextStepBudget(t *testing.T) {
	rc, _ := newTestRunContext(t, AgentConfig{ID: "a", MaxSteps: 2})

	_, err := rc.AppendStep(StepModelCall, "", "", "", "")
	require.NoError(t, err)
	_, err = rc.AppendStep(StepToolCall, "calculator", "", "", "")
	require.NoError(t, err)

	_, err = rc.AppendStep(StepModelCall, "", "", "", "")
	var maxErr *MaxStepsError
	require.True(t, errors.As(err, &maxErr))
	assert.Equal(t, 2, rc.StepCount(), "transcript length equals the configured limit")
}

func TestRunContextTerminalStatusAbsorbing(t *testing.T) {
	rc, _ := newTestRunContext(t, AgentConfig{ID: "a"})

	assert.True(t, rc.SetStatus(StatusRunning))
	assert.True(t, rc.SetStatus(StatusCompleted))
	assert.False(t, rc.SetStatus(StatusFailed))
	assert.Equal(t, StatusCompleted, rc.Status())
}

func TestRunContextCancelAfterTerminal(t *testing.T) {
	rc, _ := newTestRunContext(t, AgentConfig{ID: "a"})

	rc.SetStatus(StatusCompleted)
	assert.False(t, rc.Cancel(), "cancel after a terminal status is a no-op")
	assert.False(t, rc.Cancelled())
}

func TestRunContextEmitEvent(t *testing.T) {
	rc, emit := newTestRunContext(t, AgentConfig{ID: "a"})

	ev := NewEvent(rc.RunID, EventRunStart)
	require.NoError(t, rc.EmitEvent(ev))

	got := <-emit
	assert.Equal(t, EventRunStart, got.Type)
	assert.Equal(t, rc.RunID, got.RunID)
	assert.NotEmpty(t, got.ID)
}

func TestRunContextEmitEventContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emit := make(chan Event) // unbuffered, nobody reading
	rc := NewRunContext(ctx, "session-1", AgentConfig{ID: "a"}, emit)

	err := rc.EmitEvent(NewEvent(rc.RunID, EventRunStart))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
