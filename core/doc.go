// Package core contains the shared data model of the agent execution
// runtime: run lifecycle state, steps, events, messages, agent
// configuration, and the error taxonomy used across packages.
//
// Everything in core is transport and provider agnostic. Higher level
// packages (runner, router, tool, retrieval) depend on core; core
// depends on nothing but the standard library and uuid.
package core
