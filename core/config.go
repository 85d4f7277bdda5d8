package core

import "fmt"

// Default limits applied when an AgentConfig leaves them zero.
const (
	DefaultMaxSteps         = 10
	DefaultToolFailureLimit = 3
)

// AgentConfig declares an agent: which model serves it, which tools it
// may call, and which knowledge bases ground its answers.
type AgentConfig struct {
	ID           string  `json:"id" yaml:"id"`
	Provider     string  `json:"provider,omitempty" yaml:"provider"`
	Model        string  `json:"model,omitempty" yaml:"model"`
	Temperature  float64 `json:"temperature,omitempty" yaml:"temperature"`
	SystemPrompt string  `json:"system_prompt,omitempty" yaml:"system_prompt"`

	// RoutingStrategy selects how the router orders candidate models
	// (cost, speed, quality, fallback). Empty means fallback.
	RoutingStrategy string `json:"routing_strategy,omitempty" yaml:"routing_strategy"`

	// Tools lists the registry names the agent may invoke.
	Tools []string `json:"tools,omitempty" yaml:"tools"`

	// KnowledgeBases lists the retrieval namespaces the agent searches
	// before answering. RetrievalRequired makes a retrieval failure
	// fatal instead of degrading to an answer without grounding.
	RetrievalEnabled  bool     `json:"retrieval_enabled,omitempty" yaml:"retrieval_enabled"`
	RetrievalRequired bool     `json:"retrieval_required,omitempty" yaml:"retrieval_required"`
	KnowledgeBases    []string `json:"knowledge_bases,omitempty" yaml:"knowledge_bases"`

	// MaxSteps bounds the number of steps a single run may take.
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps"`

	// ToolFailureLimit bounds consecutive failures of a single tool
	// within one run before the run is aborted.
	ToolFailureLimit int `json:"tool_failure_limit,omitempty" yaml:"tool_failure_limit"`
}

// Validate checks the fields that must be present before a run starts.
func (c AgentConfig) Validate() error {
	if c.ID == "" {
		return &ValidationError{Field: "id", Message: "agent id is required"}
	}
	if c.MaxSteps < 0 {
		return &ValidationError{Field: "max_steps", Value: c.MaxSteps, Message: "must not be negative"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ValidationError{Field: "temperature", Value: c.Temperature, Message: "must be between 0 and 2"}
	}
	return nil
}

// EffectiveMaxSteps returns MaxSteps or the default when unset.
func (c AgentConfig) EffectiveMaxSteps() int {
	if c.MaxSteps > 0 {
		return c.MaxSteps
	}
	return DefaultMaxSteps
}

// EffectiveToolFailureLimit returns ToolFailureLimit or the default when unset.
func (c AgentConfig) EffectiveToolFailureLimit() int {
	if c.ToolFailureLimit > 0 {
		return c.ToolFailureLimit
	}
	return DefaultToolFailureLimit
}

func (c AgentConfig) String() string {
	return fmt.Sprintf("AgentConfig{ID: %s, Provider: %s, Model: %s, Tools: %d}", c.ID, c.Provider, c.Model, len(c.Tools))
}
