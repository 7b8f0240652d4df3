package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Result is the outcome of a dispatch. Exactly one of Value or Err is meaningful.
type Result struct {
	Value any
	Err   error
}

// IsError reports whether the dispatch failed.
func (r Result) IsError() bool { return r.Err != nil }

type entry struct {
	def    ToolDefinition
	schema *jsonschema.Schema
}

// Registry maps tool names to definitions in registration order.
// Re-registering a name replaces the definition and keeps its original position.
type Registry struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[string, *entry]
	frozen  bool
}

// NewRegistry returns an empty registry with defs registered in order.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{entries: orderedmap.New[string, *entry]()}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register inserts or replaces a tool. The input schema is compiled up front so
// a broken schema fails here rather than on first call.
func (r *Registry) Register(def ToolDefinition) error {
	if def.Name == "" {
		return errors.New("tool name must not be empty")
	}
	if def.Function == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if len(bytes.TrimSpace(def.InputSchema)) == 0 {
		def.InputSchema = emptyObjectSchema
	}
	def.InputSchema = cloneRaw(def.InputSchema)

	schema, err := jsonschema.CompileString(def.Name+".schema.json", string(def.InputSchema))
	if err != nil {
		return fmt.Errorf("tool %q: invalid input schema: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	r.entries.Set(def.Name, &entry{def: def, schema: schema})
	return nil
}

// Freeze stops further registration. It is safe to call more than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries.Len()
}

// List returns descriptors in registration order. Handlers are not invoked.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.def.Descriptor())
	}
	return out
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (ToolDefinition, bool) {
	e, ok := r.lookup(name)
	if !ok {
		return ToolDefinition{}, false
	}
	return e.def, true
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries.Get(name)
}

// Dispatch validates args against the tool's schema and runs its handler.
// Empty or null args are treated as an empty object.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (res Result) {
	e, ok := r.lookup(name)
	if !ok {
		return Result{Err: fmt.Errorf("%w: %q", ErrUnknownTool, name)}
	}

	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		args = json.RawMessage(`{}`)
	}

	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return Result{Err: &ValidationError{Tool: name, Err: fmt.Errorf("arguments are not valid JSON: %w", err)}}
	}
	if err := e.schema.Validate(instance); err != nil {
		return Result{Err: &ValidationError{Tool: name, Err: err}}
	}

	defer func() {
		if p := recover(); p != nil {
			res = Result{Err: &HandlerError{Tool: name, Err: fmt.Errorf("panic: %v", p)}}
		}
	}()

	v, err := e.def.Function(ctx, args)
	if err != nil {
		return Result{Err: &HandlerError{Tool: name, Err: err}}
	}
	return Result{Value: v}
}
