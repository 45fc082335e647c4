package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry manages registered tools and their renderers.
// It is safe for concurrent use; readers observe either the state before or
// after a concurrent update, never a mix.
//
// Registrations are keyed by (agent, name). Registering the same key again
// replaces the previous entry, so repeated registration with identical input
// leaves the registry unchanged.
type Registry struct {
	mu     sync.RWMutex
	tools  map[Key]Tool
	logger *slog.Logger

	// dynamic renderers come from RegisterRenderer and Tool.Render.
	dynamic map[Key]RendererRegistration
	// fromTool marks dynamic renderers installed by a tool registration, so
	// unregistering the tool removes them too.
	fromTool map[Key]bool
	// static renderers are replaced wholesale by SetRenderers.
	static map[Key]RendererRegistration
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for override warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:    make(map[Key]Tool),
		dynamic:  make(map[Key]RendererRegistration),
		fromTool: make(map[Key]bool),
		static:   make(map[Key]RendererRegistration),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces a tool. The parameter schema, if any, is compiled
// first; an invalid schema leaves the registry untouched.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return ErrEmptyName
	}
	schema, err := compileSchema(t.Name, t.Parameters)
	if err != nil {
		return err
	}
	t.schema = schema
	key := t.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[key]; exists {
		r.logger.Warn("tool: replacing registered tool", "tool", t.Name, "agent_id", key.AgentID)
	}
	r.tools[key] = t

	switch {
	case t.Render != nil:
		r.dynamic[key] = RendererRegistration{Name: t.Name, AgentID: t.AgentID, Render: t.Render}
		r.fromTool[key] = true
	case r.fromTool[key]:
		delete(r.dynamic, key)
		delete(r.fromTool, key)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Add registers one or more tools and returns the registry for chaining.
// Panics if any tool fails to register.
//
// Example:
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("getWeather", "Get weather", weatherFn),
//	    tool.Func("search", "Search the docs", searchFn),
//	)
func (r *Registry) Add(tools ...Tool) *Registry {
	for _, t := range tools {
		r.MustRegister(t)
	}
	return r
}

// Unregister removes the tool registered under name for agentID (empty for
// the global registration). A renderer installed through Tool.Render goes
// with it. Reports whether a tool was removed.
func (r *Registry) Unregister(name, agentID string) bool {
	key := KeyFor(name, agentID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[key]; !ok {
		return false
	}
	delete(r.tools, key)
	if r.fromTool[key] {
		delete(r.dynamic, key)
		delete(r.fromTool, key)
	}
	return true
}

// Get returns the tool registered under exactly key.
func (r *Registry) Get(key Key) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[key]
	return t, ok
}

// Lookup returns the tool that serves a call to name from agentID: the
// agent-scoped registration if present, otherwise the global one.
func (r *Registry) Lookup(name, agentID string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if agentID != "" && agentID != Wildcard {
		if t, ok := r.tools[Key{AgentID: agentID, Name: name}]; ok {
			return t, true
		}
	}
	t, ok := r.tools[Key{AgentID: Wildcard, Name: name}]
	return t, ok
}

// Tools returns all registered tools ordered by key.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		a, b := tools[i].Key(), tools[j].Key()
		if a.AgentID != b.AgentID {
			return a.AgentID < b.AgentID
		}
		return a.Name < b.Name
	})
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Validate checks args against t's parameter schema. Tools without a schema
// accept any arguments.
func (r *Registry) Validate(t Tool, args any) error {
	schema := t.schema
	if schema == nil && len(t.Parameters) > 0 {
		var err error
		if schema, err = compileSchema(t.Name, t.Parameters); err != nil {
			return err
		}
	}
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := schema.Validate(args); err != nil {
		return &ErrInvalidArguments{Name: t.Name, Err: err}
	}
	return nil
}

// Run validates the call's arguments and invokes t's handler. Handler errors
// and panics are returned as *ErrToolExecution.
func (r *Registry) Run(ctx context.Context, t Tool, call Call) (result any, err error) {
	if t.Handler == nil {
		return nil, &ErrToolExecution{Name: t.Name, Err: fmt.Errorf("no handler")}
	}
	if err := r.Validate(t, call.Args); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool: handler panicked",
				"tool", t.Name, "tool_call_id", call.ID, "panic", p, "stack", string(debug.Stack()))
			result = nil
			err = &ErrToolExecution{Name: t.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	result, err = t.Handler(ctx, call)
	if err != nil {
		return nil, &ErrToolExecution{Name: t.Name, Err: err}
	}
	return result, nil
}

// Execute resolves call.Name for call.AgentID and runs it.
func (r *Registry) Execute(ctx context.Context, call Call) (any, error) {
	t, ok := r.Lookup(call.Name, call.AgentID)
	if !ok {
		return nil, &ErrToolNotFound{Name: call.Name, AgentID: call.AgentID}
	}
	return r.Run(ctx, t, call)
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &ErrInvalidSchema{Name: name, Err: err}
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, &ErrInvalidSchema{Name: name, Err: err}
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, &ErrInvalidSchema{Name: name, Err: err}
	}
	return schema, nil
}
