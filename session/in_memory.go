package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
)

// InMemoryMessageStore keeps session transcripts in memory. Messages
// are returned in insertion order.
type InMemoryMessageStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.StoredMessage
}

// NewInMemoryMessageStore creates an empty message store.
func NewInMemoryMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{sessions: make(map[string][]core.StoredMessage)}
}

// SaveMessage implements core.MessageStore. Missing IDs and timestamps
// are filled in.
func (s *InMemoryMessageStore) SaveMessage(_ context.Context, msg core.StoredMessage) error {
	if msg.SessionID == "" {
		return &core.PersistenceError{Op: "save message", Err: fmt.Errorf("session id must not be empty")}
	}
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[msg.SessionID] = append(s.sessions[msg.SessionID], msg)
	return nil
}

// History implements core.MessageStore. An unknown session yields an
// empty history, not an error.
func (s *InMemoryMessageStore) History(_ context.Context, sessionID string) ([]core.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.sessions[sessionID]
	out := make([]core.StoredMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// InMemoryConfigStore keeps agent configurations in memory.
type InMemoryConfigStore struct {
	mu     sync.RWMutex
	agents map[string]core.AgentConfig
}

// NewInMemoryConfigStore creates an empty config store.
func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{agents: make(map[string]core.AgentConfig)}
}

// SaveAgentConfig implements core.ConfigStore.
func (s *InMemoryConfigStore) SaveAgentConfig(_ context.Context, cfg core.AgentConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[cfg.ID] = cloneConfig(cfg)
	return nil
}

// LoadAgentConfig implements core.ConfigStore.
func (s *InMemoryConfigStore) LoadAgentConfig(_ context.Context, agentID string) (core.AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.agents[agentID]
	if !ok {
		return core.AgentConfig{}, &core.ValidationError{Field: "agent_id", Value: agentID, Message: "agent not found"}
	}
	return cloneConfig(cfg), nil
}

func cloneConfig(cfg core.AgentConfig) core.AgentConfig {
	out := cfg
	out.Tools = append([]string(nil), cfg.Tools...)
	out.KnowledgeBases = append([]string(nil), cfg.KnowledgeBases...)
	return out
}
