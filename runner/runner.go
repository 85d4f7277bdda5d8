package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/retrieval"
	"github.com/hupe1980/agentcore/router"
	"github.com/hupe1980/agentcore/tool"
)

// Defaults applied when Options leave the corresponding field zero.
const (
	DefaultEventBufferSize  = 100
	DefaultModelCallTimeout = 60 * time.Second
	DefaultToolCallTimeout  = 15 * time.Second
	DefaultRetrievalTimeout = 10 * time.Second
	DefaultRetrievalTopK    = 5
)

// ModelRouter is the slice of the router the runner needs.
type ModelRouter interface {
	Invoke(ctx context.Context, req router.RoutingRequest) (*router.Response, error)
}

// Retriever is the slice of the retrieval pipeline the runner needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, knowledgeBases []string, topK int) ([]retrieval.Chunk, error)
	BuildContext(chunks []retrieval.Chunk) string
	HasKnowledgeBase(ctx context.Context, id string) bool
}

// Options configure a Runner.
type Options struct {
	// MessageStore persists session transcripts. Nil disables
	// persistence and history.
	MessageStore core.MessageStore

	// Retriever grounds runs against knowledge bases. Nil disables
	// retrieval; configs that require it fail validation.
	Retriever Retriever

	// EventBufferSize is the capacity of each run's event channel.
	EventBufferSize int

	// Per-call timeouts. Cancellation is cooperative, so these bound
	// how long an in-flight call can outlive a cancel request.
	ModelCallTimeout time.Duration
	ToolCallTimeout  time.Duration
	RetrievalTimeout time.Duration

	// RetrievalTopK is the number of chunks requested per run.
	RetrievalTopK int

	// Permission is the level runs invoke tools with.
	Permission tool.PermissionContext

	Logger logging.Logger
}

// Runner executes agent runs.
type Runner struct {
	router ModelRouter
	tools  *tool.Registry
	opts   Options

	mu     sync.RWMutex
	active map[string]*core.RunContext
}

// New creates a Runner over a router and tool registry.
func New(modelRouter ModelRouter, tools *tool.Registry, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize:  DefaultEventBufferSize,
		ModelCallTimeout: DefaultModelCallTimeout,
		ToolCallTimeout:  DefaultToolCallTimeout,
		RetrievalTimeout: DefaultRetrievalTimeout,
		RetrievalTopK:    DefaultRetrievalTopK,
		Permission:       tool.PermissionContext{Caller: "runner", Level: tool.LevelUser},
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if tools == nil {
		tools = tool.NewRegistry()
	}
	return &Runner{
		router: modelRouter,
		tools:  tools,
		opts:   opts,
		active: make(map[string]*core.RunContext),
	}
}

// Run is a handle to a started run. Events is closed after the
// terminal event; Err delivers at most one fatal error and is closed
// with the run.
type Run struct {
	ID     string
	Events <-chan core.Event
	Err    <-chan error
}

// Stream starts a run and returns its handle. Configuration problems
// (an invalid config, unknown tools, retrieval required without a
// retriever) are returned synchronously as a ValidationError before
// any model call is made.
func (r *Runner) Stream(ctx context.Context, sessionID string, cfg core.AgentConfig, message string) (*Run, error) {
	if err := r.validate(ctx, cfg, message); err != nil {
		return nil, err
	}

	events := make(chan core.Event, r.opts.EventBufferSize)
	errCh := make(chan error, 1)
	rc := core.NewRunContext(ctx, sessionID, cfg, events)

	r.mu.Lock()
	r.active[rc.RunID] = rc
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.active, rc.RunID)
			r.mu.Unlock()
			close(events)
			close(errCh)
		}()
		r.execute(rc, message, errCh)
	}()

	return &Run{ID: rc.RunID, Events: events, Err: errCh}, nil
}

// Result is the aggregate outcome of a synchronous run.
type Result struct {
	RunID     string
	Content   string
	ToolCalls []core.ToolCallInfo
	Citations []core.Citation
	StepCount int
	Provider  string
	Model     string
	Latency   time.Duration
}

// Run executes a run to completion and aggregates its event stream.
func (r *Runner) Run(ctx context.Context, sessionID string, cfg core.AgentConfig, message string) (*Result, error) {
	start := time.Now()
	run, err := r.Stream(ctx, sessionID, cfg, message)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: run.ID}
	cancelled := false
	for ev := range run.Events {
		switch ev.Type {
		case core.EventModelResponse:
			result.Provider = ev.Provider
			result.Model = ev.Model
		case core.EventToolCall:
			if ev.ToolCall != nil {
				result.ToolCalls = append(result.ToolCalls, *ev.ToolCall)
			}
		case core.EventRetrieval:
			result.Citations = append(result.Citations, ev.Citations...)
		case core.EventRunFinish:
			result.Content = ev.Content
			result.StepCount = ev.StepIndex
		case core.EventRunCancelled:
			cancelled = true
			result.StepCount = ev.StepIndex
		}
	}
	if err := <-run.Err; err != nil {
		return nil, err
	}
	if cancelled {
		return nil, fmt.Errorf("run %s was cancelled", run.ID)
	}
	result.Latency = time.Since(start)
	return result, nil
}

// Cancel requests cancellation of a running run. It returns true if
// the run exists and this call performed the transition. Cancellation
// is cooperative: an in-flight model or tool call finishes (bounded by
// its timeout) before the run terminates.
func (r *Runner) Cancel(runID string) bool {
	r.mu.RLock()
	rc, ok := r.active[runID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return rc.Cancel()
}

// ActiveRuns returns the IDs of runs that have not terminated yet.
func (r *Runner) ActiveRuns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	return out
}

func (r *Runner) validate(ctx context.Context, cfg core.AgentConfig, message string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if message == "" {
		return &core.ValidationError{Field: "message", Message: "message must not be empty"}
	}
	for _, name := range cfg.Tools {
		if !r.tools.Has(name) {
			return &core.ValidationError{Field: "tools", Value: name, Message: "tool is not registered"}
		}
	}
	if cfg.RetrievalEnabled && len(cfg.KnowledgeBases) > 0 {
		if r.opts.Retriever == nil {
			return &core.ValidationError{Field: "knowledge_bases", Message: "retrieval is not configured"}
		}
		for _, id := range cfg.KnowledgeBases {
			if !r.opts.Retriever.HasKnowledgeBase(ctx, id) {
				return &core.ValidationError{Field: "knowledge_bases", Value: id, Message: "knowledge base is unknown"}
			}
		}
	}
	if cfg.RetrievalRequired && !cfg.RetrievalEnabled {
		return &core.ValidationError{Field: "retrieval_required", Message: "retrieval_required needs retrieval_enabled"}
	}
	return nil
}
