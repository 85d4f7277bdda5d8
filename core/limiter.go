package core

import "sync"

// StepLimiter enforces the step budget of a single run. It is safe for
// concurrent use.
type StepLimiter struct {
	mu    sync.Mutex
	count int
	max   int
}

// NewStepLimiter returns a limiter that allows max steps.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Take consumes one step. It returns a MaxStepsError once the budget
// is exhausted, leaving the count at the limit.
func (l *StepLimiter) Take() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count >= l.max {
		return &MaxStepsError{Limit: l.max}
	}
	l.count++
	return nil
}

// Count returns the number of steps taken so far.
func (l *StepLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns how many steps are left in the budget.
func (l *StepLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max - l.count
}
