package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/router"
)

// errCancelled signals cooperative cancellation inside the run loop.
var errCancelled = errors.New("run cancelled")

// ToolFailureError reports that a single tool failed too often within
// one run.
type ToolFailureError struct {
	Tool     string
	Failures int
	LastErr  string
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("tool %q failed %d times, last: %s", e.Tool, e.Failures, e.LastErr)
}

// execute drives one run to a terminal state and emits the terminal
// event. Exactly one of run_finish, run_error and run_cancelled closes
// the stream.
func (r *Runner) execute(rc *core.RunContext, message string, errCh chan<- error) {
	rc.SetStatus(core.StatusRunning)

	startEv := core.NewEvent(rc.RunID, core.EventRunStart)
	if err := rc.EmitEvent(startEv); err != nil {
		rc.SetStatus(core.StatusFailed)
		errCh <- err
		return
	}

	content, citations, err := r.run(rc, message)
	switch {
	case errors.Is(err, errCancelled):
		rc.SetStatus(core.StatusCancelled)
		ev := core.NewEvent(rc.RunID, core.EventRunCancelled)
		ev.StepIndex = rc.StepCount()
		_ = rc.EmitEvent(ev)
	case err != nil:
		rc.SetStatus(core.StatusFailed)
		ev := core.NewEvent(rc.RunID, core.EventRunError)
		ev.StepIndex = rc.StepCount()
		ev.Err = err.Error()
		_ = rc.EmitEvent(ev)
		errCh <- err
	default:
		rc.SetStatus(core.StatusCompleted)
		ev := core.NewEvent(rc.RunID, core.EventRunFinish)
		ev.StepIndex = rc.StepCount()
		ev.Content = content
		ev.Citations = citations
		_ = rc.EmitEvent(ev)
	}
}

// run executes the step loop and returns the final answer.
func (r *Runner) run(rc *core.RunContext, message string) (string, []core.Citation, error) {
	cfg := rc.Config
	logger := r.opts.Logger

	history, err := r.loadHistory(rc)
	if err != nil {
		return "", nil, err
	}
	if err := r.saveMessage(rc, core.RoleUser, message); err != nil {
		return "", nil, err
	}

	ragContext, citations, err := r.retrieve(rc, message)
	if err != nil {
		return "", nil, err
	}

	messages := make([]core.Message, 0, len(history)+2)
	if cfg.SystemPrompt != "" {
		messages = append(messages, core.SystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, history...)

	userContent := message
	if ragContext != "" {
		userContent = ragContext + "\n\nUser question: " + message
	}
	messages = append(messages, core.UserMessage(userContent))

	toolDefs := r.toolDefinitions(cfg.Tools)
	failures := make(map[string]int)

	for {
		if rc.Cancelled() {
			return "", nil, errCancelled
		}

		resp, err := r.callModel(rc, messages, toolDefs)
		if err != nil {
			return "", nil, err
		}

		if len(resp.ToolCalls) == 0 {
			step, err := rc.AppendStep(core.StepFinalAnswer, resp.Model, "", resp.Content, "")
			if err != nil {
				return "", nil, err
			}
			r.emitModelResponse(rc, step, resp)
			if err := r.saveMessage(rc, core.RoleAssistant, resp.Content); err != nil {
				return "", nil, err
			}
			return resp.Content, citations, nil
		}

		step, err := rc.AppendStep(core.StepModelCall, resp.Model, "", resp.Content, "")
		if err != nil {
			return "", nil, err
		}
		r.emitModelResponse(rc, step, resp)

		messages = append(messages, core.AssistantMessage(resp.Content, resp.ToolCalls...))
		for _, tc := range resp.ToolCalls {
			if rc.Cancelled() {
				return "", nil, errCancelled
			}
			observation, failure, fatal := r.callTool(rc, tc)
			if fatal != nil {
				return "", nil, fatal
			}
			if failure != "" {
				failures[tc.Name]++
				logger.Warn("Tool call failed", "run_id", rc.RunID, "tool", tc.Name, "failures", failures[tc.Name], "error", failure)
				if failures[tc.Name] >= cfg.EffectiveToolFailureLimit() {
					return "", nil, &ToolFailureError{Tool: tc.Name, Failures: failures[tc.Name], LastErr: failure}
				}
				observation = "Error: " + failure
			}
			messages = append(messages, core.ToolMessage(tc.ID, tc.Name, observation))
		}
	}
}

func (r *Runner) loadHistory(rc *core.RunContext) ([]core.Message, error) {
	if r.opts.MessageStore == nil {
		return nil, nil
	}
	stored, err := r.opts.MessageStore.History(rc.Context(), rc.SessionID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "load history", Err: err}
	}
	messages := make([]core.Message, 0, len(stored))
	for _, msg := range stored {
		// Only plain user and assistant turns feed the next run.
		if msg.Role != core.RoleUser && msg.Role != core.RoleAssistant {
			continue
		}
		messages = append(messages, core.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages, nil
}

func (r *Runner) saveMessage(rc *core.RunContext, role, content string) error {
	if r.opts.MessageStore == nil {
		return nil
	}
	err := r.opts.MessageStore.SaveMessage(rc.Context(), core.StoredMessage{
		SessionID: rc.SessionID,
		Role:      role,
		Content:   content,
		Metadata:  map[string]any{"run_id": rc.RunID, "agent_id": rc.Config.ID},
	})
	if err != nil {
		var perr *core.PersistenceError
		if errors.As(err, &perr) {
			return err
		}
		return &core.PersistenceError{Op: "save message", Err: err}
	}
	return nil
}

// retrieve grounds the run against its knowledge bases. Failures are
// fatal only when the config requires retrieval; otherwise the run
// degrades to an answer without grounding.
func (r *Runner) retrieve(rc *core.RunContext, query string) (string, []core.Citation, error) {
	cfg := rc.Config
	if !cfg.RetrievalEnabled || len(cfg.KnowledgeBases) == 0 || r.opts.Retriever == nil {
		return "", nil, nil
	}
	if rc.Cancelled() {
		return "", nil, errCancelled
	}

	ctx, cancel := context.WithTimeout(rc.Context(), r.opts.RetrievalTimeout)
	defer cancel()
	start := time.Now()
	chunks, err := r.opts.Retriever.Retrieve(ctx, query, cfg.KnowledgeBases, r.opts.RetrievalTopK)
	if err != nil {
		if cfg.RetrievalRequired {
			return "", nil, fmt.Errorf("required retrieval failed: %w", err)
		}
		r.opts.Logger.Warn("Retrieval failed, continuing without grounding", "run_id", rc.RunID, "error", err)
		ev := core.NewEvent(rc.RunID, core.EventRetrieval)
		ev.Err = err.Error()
		_ = rc.EmitEvent(ev)
		return "", nil, nil
	}

	citations := make([]core.Citation, 0, len(chunks))
	for _, c := range chunks {
		citations = append(citations, core.Citation{
			ChunkID:       c.ID,
			KnowledgeBase: c.KnowledgeBase,
			Source:        c.Source(),
			Score:         c.Score,
		})
	}

	step, err := rc.AppendStep(core.StepRetrieval, "", query, fmt.Sprintf("%d chunks", len(chunks)), "")
	if err != nil {
		return "", nil, err
	}
	ev := core.NewEvent(rc.RunID, core.EventRetrieval)
	ev.StepIndex = step.Index
	ev.Citations = citations
	_ = rc.EmitEvent(ev)

	r.opts.Logger.Info("Retrieval completed", "run_id", rc.RunID, "hits", len(chunks), "duration", time.Since(start))
	return r.opts.Retriever.BuildContext(chunks), citations, nil
}

// toolDefinitions renders the agent's registered tools into provider
// tool definitions.
func (r *Runner) toolDefinitions(names []string) []router.ToolDefinition {
	defs := make([]router.ToolDefinition, 0, len(names))
	for _, name := range names {
		desc, ok := r.tools.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, router.ToolDefinition{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.Schema(),
		})
	}
	return defs
}

func (r *Runner) callModel(rc *core.RunContext, messages []core.Message, toolDefs []router.ToolDefinition) (*router.Response, error) {
	cfg := rc.Config
	ctx, cancel := context.WithTimeout(rc.Context(), r.opts.ModelCallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := r.router.Invoke(ctx, router.RoutingRequest{
		Request: router.Request{
			Messages:    messages,
			Tools:       toolDefs,
			Temperature: cfg.Temperature,
		},
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Strategy: router.Strategy(cfg.RoutingStrategy),
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	r.opts.Logger.Debug("Model call completed", "run_id", rc.RunID, "provider", resp.Provider, "model", resp.Model, "tokens", resp.Usage.TotalTokens, "duration", time.Since(start))
	return resp, nil
}

func (r *Runner) emitModelResponse(rc *core.RunContext, step core.Step, resp *router.Response) {
	ev := core.NewEvent(rc.RunID, core.EventModelResponse)
	ev.StepIndex = step.Index
	ev.Content = resp.Content
	ev.Provider = resp.Provider
	ev.Model = resp.Model
	_ = rc.EmitEvent(ev)
}

// callTool invokes one model-requested tool. It returns the
// observation for the model, a failure description when the call did
// not succeed, and a fatal error when the step budget is exhausted.
func (r *Runner) callTool(rc *core.RunContext, tc core.ToolCall) (observation string, failure string, fatal error) {
	args := map[string]any{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			failure = fmt.Sprintf("arguments are not valid JSON: %v", err)
		}
	}

	if failure == "" {
		ctx, cancel := context.WithTimeout(rc.Context(), r.opts.ToolCallTimeout)
		start := time.Now()
		result, err := r.tools.Invoke(ctx, tc.Name, args, r.opts.Permission)
		cancel()
		switch {
		case err != nil:
			// Unknown tool, permission or argument errors become
			// observations so the model can correct itself.
			failure = err.Error()
		case !result.OK:
			failure = result.Err
		default:
			observation = payloadString(result.Payload)
		}
		r.opts.Logger.Debug("Tool call completed", "run_id", rc.RunID, "tool", tc.Name, "ok", failure == "", "duration", time.Since(start))
	}

	step, err := rc.AppendStep(core.StepToolCall, tc.Name, tc.Arguments, observation, failure)
	if err != nil {
		return "", "", err
	}
	ev := core.NewEvent(rc.RunID, core.EventToolCall)
	ev.StepIndex = step.Index
	ev.ToolCall = &core.ToolCallInfo{
		ID:        tc.ID,
		Name:      tc.Name,
		Arguments: tc.Arguments,
		OK:        failure == "",
		Output:    observation,
		Err:       failure,
	}
	_ = rc.EmitEvent(ev)
	return observation, failure, nil
}

func payloadString(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
