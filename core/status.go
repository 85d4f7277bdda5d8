package core

// Status describes the lifecycle state of a run.
type Status int

const (
	// StatusCreated is the initial state before the run loop starts.
	StatusCreated Status = iota
	// StatusRunning means the run loop is executing steps.
	StatusRunning
	// StatusCompleted means the run produced a final answer.
	StatusCompleted
	// StatusFailed means the run terminated with an error.
	StatusFailed
	// StatusCancelled means the run was cancelled by the caller.
	StatusCancelled
)

// IsTerminal reports whether the status is an absorbing state. A run in
// a terminal state never transitions again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
