// Package tool provides the typed tool registry: descriptors with JSON
// schema parameters, permission gated invocation with argument
// validation and panic recovery, and a small set of builtin tools.
//
// Registration errors (duplicate names), unknown tools, permission
// denials and invalid arguments are reported as Go errors from Invoke.
// Failures inside a tool's executor are not errors of the registry:
// they come back as a Result with OK set to false so the run loop can
// feed them to the model as observations.
package tool
