package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentcore/core"
)

// Provider is a model backend the router can dispatch to.
type Provider interface {
	// Name returns the provider's routing identity, e.g. "openai".
	Name() string

	// Models returns the models this provider serves, most preferred
	// first.
	Models() []string

	// Complete executes one model round trip.
	Complete(ctx context.Context, model string, req Request) (*Response, error)

	// CompleteStream executes one round trip, delivering text deltas
	// through onDelta as they arrive. The returned response carries
	// the final aggregated state.
	CompleteStream(ctx context.Context, model string, req Request, onDelta func(delta string)) (*Response, error)
}

// ToolDefinition advertises a callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is a provider-neutral completion request.
type Request struct {
	Messages    []core.Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption for one round trip.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-neutral completion result.
type Response struct {
	// Provider and Model identify the candidate that served the call.
	Provider string
	Model    string

	Content      string
	ToolCalls    []core.ToolCall
	FinishReason string
	Usage        Usage

	// Retries counts candidates that failed before this one succeeded.
	Retries int
}

// ErrorClass categorizes a provider failure for routing decisions.
type ErrorClass int

const (
	// ClassTransient failures (rate limits, timeouts, 5xx) are worth
	// retrying on the next candidate after backoff.
	ClassTransient ErrorClass = iota
	// ClassPermanent failures are bound to this candidate (for
	// example an unknown model); the chain continues without backoff.
	ClassPermanent
	// ClassConfig failures (bad credentials, malformed request) would
	// fail on every candidate and abort the chain immediately.
	ClassConfig
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ProviderError wraps a failure from a model backend with the
// classification the router acts on.
type ProviderError struct {
	Provider string
	Model    string
	Class    ErrorClass
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %s error: %v", e.Provider, e.Model, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying elsewhere.
func (e *ProviderError) Transient() bool { return e.Class == ClassTransient }

// ClassifyStatus maps an HTTP status code from a provider API to an
// error class. Adapters use it after errors.As on their SDK error.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == 401 || status == 403 || status == 400 || status == 422:
		return ClassConfig
	case status == 404:
		return ClassPermanent
	case status == 408 || status == 429 || status >= 500:
		return ClassTransient
	default:
		return ClassTransient
	}
}

// AllProvidersError reports that every candidate in a routing chain
// failed. Last preserves the final failure for inspection.
type AllProvidersError struct {
	Attempts int
	Last     error
}

func (e *AllProvidersError) Error() string {
	return fmt.Sprintf("all providers unavailable after %d attempts, last: %v", e.Attempts, e.Last)
}

func (e *AllProvidersError) Unwrap() error { return e.Last }

// ErrNoCandidates is returned when routing produces an empty chain,
// for example when every provider's breaker is open.
var ErrNoCandidates = errors.New("no routable candidates")
