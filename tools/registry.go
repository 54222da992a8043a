package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vinayprograms/slideagent/errors"
)

// Tool represents an executable in-process tool.
type Tool interface {
	// Name returns the tool name.
	Name() string
	// Description returns a description for the oracle.
	Description() string
	// Params returns the ordered parameter declarations.
	Params() []Param
	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args Args) (interface{}, error)
}

// Registry holds tools in registration order. It serves the same catalog
// whether the agent calls it directly or through the MCP server.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates a registry with the built-in math tools.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.registerBuiltins()
	return r
}

// NewEmptyRegistry creates a registry with no tools.
func NewEmptyRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// registerBuiltins registers the math tools.
func (r *Registry) registerBuiltins() {
	r.Register(&addTool{})
	r.Register(&subtractTool{})
	r.Register(&multiplyTool{})
	r.Register(&divideTool{})
	r.Register(&powerTool{})
	r.Register(&sqrtTool{})
	r.Register(&charCodesTool{})
	r.Register(&expSumTool{})
}

// Register adds a tool to the registry, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
	delete(r.schemas, t.Name())
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has returns true if the registry has a tool with the given name.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	return r.Get(name) != nil
}

// Descriptors returns the catalog in registration order.
func (r *Registry) Descriptors(ctx context.Context) ([]Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Params:      t.Params(),
		})
	}
	return defs, nil
}

// Call validates the arguments against the tool's schema, executes it and
// normalizes the outcome. Validation and execution failures are tool-side
// errors and come back as error results; only an unknown name is an error.
func (r *Registry) Call(ctx context.Context, name string, args Arguments) (Result, error) {
	t := r.Get(name)
	if t == nil {
		return Result{}, errors.UnknownTool(name)
	}
	return r.execute(ctx, t, []byte(args.JSON()))
}

// CallJSON is Call for arguments that arrive as a JSON object, as they do
// over MCP.
func (r *Registry) CallJSON(ctx context.Context, name string, raw json.RawMessage) (Result, error) {
	t := r.Get(name)
	if t == nil {
		return Result{}, errors.UnknownTool(name)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	return r.execute(ctx, t, raw)
}

func (r *Registry) execute(ctx context.Context, t Tool, raw []byte) (Result, error) {
	schema, err := r.schemaFor(t)
	if err != nil {
		return Result{}, errors.Wrap(err, "compile schema for "+t.Name())
	}

	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return ErrorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if err := schema.Validate(decoded); err != nil {
		return ErrorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	args, ok := decoded.(map[string]interface{})
	if !ok {
		return ErrorResult("arguments must be an object"), nil
	}

	out, err := t.Execute(ctx, Args(args))
	if err != nil {
		return ErrorResult(err.Error()), nil
	}
	return FromValue(out), nil
}

// schemaFor compiles and caches the parameter schema of a tool.
func (r *Registry) schemaFor(t Tool) (*jsonschema.Schema, error) {
	r.mu.RLock()
	s, ok := r.schemas[t.Name()]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	d := Descriptor{Name: t.Name(), Params: t.Params()}
	raw, err := d.Schema()
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := t.Name() + ".json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	s, err = c.Compile(url)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.schemas[t.Name()] = s
	r.mu.Unlock()
	return s, nil
}
