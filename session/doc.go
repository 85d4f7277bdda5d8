// Package session provides in-memory implementations of the core
// persistence interfaces: a MessageStore for session transcripts and a
// ConfigStore for agent configurations. Both are safe for concurrent
// use and return copies so callers cannot mutate internal state.
package session
