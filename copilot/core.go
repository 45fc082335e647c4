package copilot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/executor"
	"github.com/spetersoncode/aguikit/reducer"
	"github.com/spetersoncode/aguikit/store"
	"github.com/spetersoncode/aguikit/tool"
)

// Core wires a tool registry, a snapshot store and a handler coordinator.
// It is safe for concurrent use.
type Core struct {
	registry    *tool.Registry
	store       *store.Store
	coordinator *executor.Coordinator
	logger      *slog.Logger

	mu     sync.Mutex
	agents map[string]*Agent
}

type config struct {
	logger    *slog.Logger
	registry  prometheus.Registerer
	adapter   store.Adapter
	ctx       context.Context
	idGen     func() string
	renderers []tool.RendererRegistration
}

// Option configures a Core.
type Option func(*config)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics registers tool execution metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithAdapter persists thread transcripts through a.
func WithAdapter(a store.Adapter) Option {
	return func(c *config) {
		c.adapter = a
	}
}

// WithContext sets the parent context of tool handler invocations.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithIDGenerator sets the generator for synthesized result message ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		c.idGen = fn
	}
}

// WithRenderToolCalls installs the static renderer list at construction.
func WithRenderToolCalls(list []tool.RendererRegistration) Option {
	return func(c *config) {
		c.renderers = list
	}
}

// New creates a Core and starts its coordinator.
func New(opts ...Option) *Core {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	storeOpts := []store.Option{store.WithLogger(cfg.logger)}
	if cfg.adapter != nil {
		storeOpts = append(storeOpts, store.WithAdapter(cfg.adapter))
	}
	execOpts := []executor.Option{executor.WithLogger(cfg.logger)}
	if cfg.registry != nil {
		execOpts = append(execOpts, executor.WithMetrics(cfg.registry))
	}
	if cfg.ctx != nil {
		execOpts = append(execOpts, executor.WithContext(cfg.ctx))
	}
	if cfg.idGen != nil {
		execOpts = append(execOpts, executor.WithIDGenerator(cfg.idGen))
	}

	c := &Core{
		registry: tool.NewRegistry(tool.WithLogger(cfg.logger)),
		store:    store.New(storeOpts...),
		logger:   cfg.logger,
		agents:   make(map[string]*Agent),
	}
	if len(cfg.renderers) > 0 {
		c.registry.SetRenderers(cfg.renderers)
	}
	c.coordinator = executor.New(c.store, c.registry, execOpts...)
	c.coordinator.Start()
	return c
}

// Registry returns the tool registry.
func (c *Core) Registry() *tool.Registry { return c.registry }

// Store returns the snapshot store.
func (c *Core) Store() *store.Store { return c.store }

// Coordinator returns the handler coordinator.
func (c *Core) Coordinator() *executor.Coordinator { return c.coordinator }

// AddTool registers t, replacing any tool with the same name and agent.
// A tool with a Render function also becomes a renderer for its key.
func (c *Core) AddTool(t tool.Tool) error {
	return c.registry.Register(t)
}

// RemoveTool unregisters the tool name, global unless an agent id is given.
// Calls already executing finish and their results are still applied; no
// new calls are started for the tool.
func (c *Core) RemoveTool(name string, agentID ...string) bool {
	return c.registry.Unregister(name, first(agentID))
}

// SetRenderToolCalls replaces the static renderer list. Renderers added
// through AddTool keep precedence over it.
func (c *Core) SetRenderToolCalls(list []tool.RendererRegistration) {
	c.registry.SetRenderers(list)
}

// AddRenderer registers a dynamic renderer.
func (c *Core) AddRenderer(rr tool.RendererRegistration) error {
	return c.registry.RegisterRenderer(rr)
}

// RemoveRenderer unregisters a dynamic renderer.
func (c *Core) RemoveRenderer(name string, agentID ...string) bool {
	return c.registry.UnregisterRenderer(name, first(agentID))
}

// ResolveRenderer returns the renderer that applies to call for agentID.
func (c *Core) ResolveRenderer(agentID string, call *ai.ToolCall) (tool.RendererRegistration, bool) {
	if call == nil {
		return tool.RendererRegistration{}, false
	}
	return c.registry.ResolveRenderer(call.Name, agentID)
}

// RenderToolCall resolves the renderer for call and invokes it. Reports
// false when no renderer applies.
func (c *Core) RenderToolCall(agentID string, call *ai.ToolCall) (any, bool) {
	rr, ok := c.ResolveRenderer(agentID, call)
	if !ok || rr.Render == nil {
		return nil, false
	}
	return rr.Render(tool.PropsFor(agentID, call)), true
}

// Agent returns the handle for agentID, creating it on first use.
func (c *Core) Agent(agentID string) *Agent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.agents[agentID]; ok {
		return a
	}
	a := &Agent{core: c, id: agentID}
	c.agents[agentID] = a
	return a
}

// Subscribe registers sub for one thread. The returned function removes
// it; calling it more than once is a no-op.
func (c *Core) Subscribe(key ai.ThreadKey, sub Subscriber) (unsubscribe func()) {
	return c.store.Subscribe(key, sub.listener(c.store.Get(key)))
}

// SubscribeAll registers sub for every thread.
func (c *Core) SubscribeAll(sub Subscriber) (unsubscribe func()) {
	return c.store.SubscribeAll(sub.listener(nil))
}

// RunIDsForThread returns the run ids of a thread in start order.
func (c *Core) RunIDsForThread(agentID, threadID string) []string {
	return c.store.RunIDs(ai.ThreadKey{AgentID: agentID, ThreadID: threadID})
}

// RunState returns the shared state recorded for one run of a thread.
func (c *Core) RunState(agentID, threadID, runID string) (any, bool) {
	return c.store.RunState(ai.ThreadKey{AgentID: agentID, ThreadID: threadID}, runID)
}

// Snapshot returns the latest snapshot for key.
func (c *Core) Snapshot(key ai.ThreadKey) *reducer.Snapshot {
	return c.store.Get(key)
}

// Close stops the coordinator and waits for running handlers.
func (c *Core) Close() {
	c.coordinator.Close()
	c.coordinator.Wait()
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
