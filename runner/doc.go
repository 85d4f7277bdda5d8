// Package runner drives agent runs: it validates the agent
// configuration, grounds the request through the retrieval pipeline,
// loops model calls and tool executions until a final answer, and
// streams ordered events to the caller.
//
// Each run gets its own buffered event channel and error channel, both
// closed when the run reaches a terminal state. Exactly one terminal
// event (run_finish, run_error or run_cancelled) closes every stream.
// Runs are cancellable by ID; cancellation is cooperative and takes
// effect before the next model, tool or retrieval call.
package runner
