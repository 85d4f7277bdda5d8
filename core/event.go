package core

import "time"

// EventType identifies what a streamed event reports.
type EventType string

const (
	// EventRunStart opens every event stream.
	EventRunStart EventType = "run_start"
	// EventModelResponse reports a completed model round trip.
	EventModelResponse EventType = "model_response"
	// EventToolCall reports a tool invocation and its outcome.
	EventToolCall EventType = "tool_call"
	// EventRetrieval reports a knowledge base search and its hits.
	EventRetrieval EventType = "rag_retrieve"
	// EventRunFinish closes the stream with the final answer.
	EventRunFinish EventType = "run_finish"
	// EventRunError closes the stream after a fatal error.
	EventRunError EventType = "run_error"
	// EventRunCancelled closes the stream after cancellation.
	EventRunCancelled EventType = "run_cancelled"
)

// IsTerminal reports whether the event type closes the stream. Exactly
// one terminal event is emitted per run, always last.
func (t EventType) IsTerminal() bool {
	switch t {
	case EventRunFinish, EventRunError, EventRunCancelled:
		return true
	default:
		return false
	}
}

// ToolCallInfo describes one tool invocation carried by a tool_call event.
type ToolCallInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	OK        bool   `json:"ok"`
	Output    string `json:"output,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Citation points at a retrieved chunk that grounded the answer.
type Citation struct {
	ChunkID       string  `json:"chunk_id"`
	KnowledgeBase string  `json:"knowledge_base"`
	Source        string  `json:"source,omitempty"`
	Score         float64 `json:"score"`
}

// Event is one entry in a run's ordered event stream.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Type      EventType `json:"type"`
	StepIndex int       `json:"step_index,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Content carries model text for model_response and the final
	// answer for run_finish.
	Content string `json:"content,omitempty"`

	// Provider and Model identify which candidate served a
	// model_response event.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// ToolCall is set on tool_call events.
	ToolCall *ToolCallInfo `json:"tool_call,omitempty"`

	// Citations is set on rag_retrieve events and on run_finish when
	// retrieval grounded the answer.
	Citations []Citation `json:"citations,omitempty"`

	// Err is set on run_error events.
	Err string `json:"error,omitempty"`
}

// NewEvent builds an event stamped with a fresh ID and the current time.
func NewEvent(runID string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Type:      typ,
		Timestamp: time.Now(),
	}
}
