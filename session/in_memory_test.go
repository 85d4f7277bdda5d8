package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

func TestMessageStoreSaveAndHistory(t *testing.T) {
	s := NewInMemoryMessageStore()
	ctx := context.Background()

	require.NoError(t, s.SaveMessage(ctx, core.StoredMessage{SessionID: "s1", Role: core.RoleUser, Content: "hi"}))
	require.NoError(t, s.SaveMessage(ctx, core.StoredMessage{SessionID: "s1", Role: core.RoleAssistant, Content: "hello"}))
	require.NoError(t, s.SaveMessage(ctx, core.StoredMessage{SessionID: "s2", Role: core.RoleUser, Content: "other"}))

	history, err := s.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "hello", history[1].Content)
	assert.NotEmpty(t, history[0].ID)
	assert.False(t, history[0].CreatedAt.IsZero())
}

func TestMessageStoreEmptySession(t *testing.T) {
	s := NewInMemoryMessageStore()

	history, err := s.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMessageStoreRejectsEmptySessionID(t *testing.T) {
	s := NewInMemoryMessageStore()

	err := s.SaveMessage(context.Background(), core.StoredMessage{Role: core.RoleUser})
	var perr *core.PersistenceError
	require.True(t, errors.As(err, &perr))
}

func TestConfigStoreRoundTrip(t *testing.T) {
	s := NewInMemoryConfigStore()
	ctx := context.Background()

	cfg := core.AgentConfig{ID: "support", Model: "gpt-4", Tools: []string{"calculator"}}
	require.NoError(t, s.SaveAgentConfig(ctx, cfg))

	loaded, err := s.LoadAgentConfig(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, loaded.ID)
	assert.Equal(t, cfg.Tools, loaded.Tools)

	// Mutating the loaded copy must not leak into the store.
	loaded.Tools[0] = "changed"
	again, err := s.LoadAgentConfig(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, "calculator", again.Tools[0])
}

func TestConfigStoreUnknownAgent(t *testing.T) {
	s := NewInMemoryConfigStore()

	_, err := s.LoadAgentConfig(context.Background(), "missing")
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestConfigStoreValidatesOnSave(t *testing.T) {
	s := NewInMemoryConfigStore()

	err := s.SaveAgentConfig(context.Background(), core.AgentConfig{})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "id", verr.Field)
}
