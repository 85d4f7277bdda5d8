package core

import "context"

// ConfigStore resolves agent configurations by ID.
type ConfigStore interface {
	// LoadAgentConfig returns the configuration for the given agent.
	LoadAgentConfig(ctx context.Context, agentID string) (AgentConfig, error)

	// SaveAgentConfig creates or replaces an agent configuration.
	SaveAgentConfig(ctx context.Context, cfg AgentConfig) error
}

// MessageStore persists session transcripts across runs.
type MessageStore interface {
	// SaveMessage appends a message to its session's history.
	SaveMessage(ctx context.Context, msg StoredMessage) error

	// History returns the session's messages in insertion order.
	History(ctx context.Context, sessionID string) ([]StoredMessage, error)
}
