package core

import "sync/atomic"

// CancelFlag is a one-shot, monotonic cancellation marker. Once set it
// stays set; concurrent Cancel calls are safe and exactly one of them
// observes the transition.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel marks the flag. It returns true if this call performed the
// transition and false if the flag was already set.
func (f *CancelFlag) Cancel() bool {
	return f.set.CompareAndSwap(false, true)
}

// Cancelled reports whether the flag has been set.
func (f *CancelFlag) Cancelled() bool {
	return f.set.Load()
}
