package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the tools available to agents. It is safe for
// concurrent use; reads do not block other reads.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registration
}

type registration struct {
	desc Descriptor
	exec Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool. Registering an already registered name returns
// a DuplicateError; the registry never silently overwrites.
func (r *Registry) Register(desc Descriptor, exec Executor) error {
	if desc.Name == "" {
		return fmt.Errorf("register tool: name must not be empty")
	}
	if exec == nil {
		return fmt.Errorf("register tool %q: executor must not be nil", desc.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return &DuplicateError{Name: desc.Name}
	}
	r.tools[desc.Name] = registration{desc: desc, exec: exec}
	return nil
}

// Get returns the descriptor for a registered tool.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	return reg.desc, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns all descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, reg := range r.tools {
		out = append(out, reg.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs a tool. Unknown tools, permission denials and argument
// validation failures are returned as errors; failures inside the
// executor, including panics, come back as a Result with OK false.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, pc PermissionContext) (Result, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, &UnknownError{Name: name}
	}
	if pc.Level < reg.desc.Permission {
		return Result{}, &PermissionError{Name: name, Required: reg.desc.Permission, Got: pc.Level}
	}
	if err := validateArgs(reg.desc, args); err != nil {
		return Result{}, err
	}
	return safeExecute(ctx, name, reg.exec, args), nil
}

func safeExecute(ctx context.Context, name string, exec Executor, args map[string]any) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{OK: false, Err: fmt.Sprintf("tool %q panicked: %v", name, rec)}
		}
	}()
	payload, err := exec(ctx, args)
	if err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	return Result{OK: true, Payload: payload}
}
