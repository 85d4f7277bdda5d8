package tool

import (
	"context"
	"fmt"
)

// Level is the permission required to invoke a tool. Callers with a
// lower level are denied before the executor runs.
type Level int

const (
	// LevelPublic tools are callable by anyone.
	LevelPublic Level = iota
	// LevelUser tools require an authenticated caller.
	LevelUser
	// LevelAdmin tools require elevated rights.
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelPublic:
		return "public"
	case LevelUser:
		return "user"
	case LevelAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Param describes one parameter of a tool.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, integer, boolean, array, object
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Descriptor declares a tool: its identity, parameters, and the
// permission level required to call it.
type Descriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
	Category    string  `json:"category,omitempty"`
	Permission  Level   `json:"permission,omitempty"`
}

// Schema renders the descriptor's parameters as a JSON schema object
// suitable for provider tool definitions.
func (d Descriptor) Schema() map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Executor is the function backing a tool. Args have already been
// validated against the descriptor's parameters when it is called.
type Executor func(ctx context.Context, args map[string]any) (any, error)

// Result is the outcome of a tool invocation. Executor failures and
// recovered panics are captured here rather than returned as errors.
type Result struct {
	OK      bool   `json:"ok"`
	Payload any    `json:"payload,omitempty"`
	Err     string `json:"error,omitempty"`
}

// PermissionContext identifies the caller of a tool invocation.
type PermissionContext struct {
	Caller string
	Level  Level
}

// DuplicateError reports an attempt to register a name twice.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownError reports an invocation of an unregistered tool.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// PermissionError reports a caller below the tool's required level.
type PermissionError struct {
	Name     string
	Required Level
	Got      Level
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("tool %q requires %s permission, caller has %s", e.Name, e.Required, e.Got)
}

// ArgumentError reports arguments that failed schema validation.
type ArgumentError struct {
	Tool    string
	Field   string
	Value   any
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q for tool %q: %s", e.Field, e.Tool, e.Message)
}
