package core

import "github.com/google/uuid"

// NewID returns a new unique identifier for runs, events, and messages.
func NewID() string {
	return uuid.NewString()
}
