package core

import "time"

// StepKind identifies what a transcript step recorded.
type StepKind string

const (
	// StepModelCall is a round trip to a model provider.
	StepModelCall StepKind = "model_call"
	// StepToolCall is a tool invocation requested by the model.
	StepToolCall StepKind = "tool_call"
	// StepRetrieval is a knowledge base search.
	StepRetrieval StepKind = "retrieval"
	// StepFinalAnswer closes the transcript with the answer returned
	// to the caller.
	StepFinalAnswer StepKind = "final_answer"
)

// Step is one entry in a run transcript. Indices are assigned by the
// run context and are strictly increasing without gaps.
type Step struct {
	Index     int       `json:"index"`
	Kind      StepKind  `json:"kind"`
	Name      string    `json:"name,omitempty"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
