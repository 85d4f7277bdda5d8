// Package logging provides a minimal logging interface and adapters for the
// agent runtime.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runner, router and retrieval pipeline use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RunLogger with contextual run/session helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewDefaultSlogLogger()
//	r := runner.New(router, tools, runner.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
