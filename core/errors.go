package core

import "fmt"

// ValidationError reports invalid caller input: a malformed agent
// config, an unknown tool reference, or a missing knowledge base. It is
// returned before any external call is made.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for field %q with value %v: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
}

// MaxStepsError reports that a run hit its step limit without reaching
// a final answer.
type MaxStepsError struct {
	Limit int
}

func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("max steps exceeded: run reached the limit of %d steps without a final answer", e.Limit)
}

// PersistenceError wraps a failed read or write against a backing
// store. Op names the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
