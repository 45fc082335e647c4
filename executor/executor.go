// Package executor runs locally registered tool handlers for tool calls the
// agent streams into the store.
//
// The Coordinator watches every published snapshot. When a tool call's
// arguments are complete and a handler is registered for it, the call is
// marked executing, the handler runs in its own goroutine, and its result is
// dispatched back as a TOOL_CALL_RESULT. Handlers never block the store or
// each other.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/reducer"
	"github.com/spetersoncode/aguikit/store"
	"github.com/spetersoncode/aguikit/tool"
	"github.com/tidwall/sjson"
)

// Coordinator executes tool handlers for complete tool calls.
type Coordinator struct {
	store    *store.Store
	registry *tool.Registry
	logger   *slog.Logger
	metrics  *Metrics
	ctx      context.Context
	newID    func() string

	mu          sync.Mutex
	inFlight    map[callKey]struct{}
	unsubscribe func()
	wg          sync.WaitGroup
}

type callKey struct {
	thread ai.ThreadKey
	callID string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithMetrics registers execution metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Coordinator) {
		c.metrics = NewMetrics(reg)
	}
}

// WithContext sets the context handed to handlers. Cancelling it cancels
// in-flight handlers.
func WithContext(ctx context.Context) Option {
	return func(c *Coordinator) {
		c.ctx = ctx
	}
}

// WithIDGenerator sets how result message ids are generated.
// The default is a random UUID.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		c.newID = fn
	}
}

// New creates a Coordinator for s and r. Call Start to begin executing.
func New(s *store.Store, r *tool.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    s,
		registry: r,
		logger:   slog.Default(),
		ctx:      context.Background(),
		newID:    uuid.NewString,
		inFlight: make(map[callKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics returns the coordinator's metrics, or nil if none were configured.
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// Start subscribes to every thread in the store and picks up calls that are
// already waiting. Calling Start twice is a no-op.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.unsubscribe = c.store.SubscribeAll(c.onSnapshot)
	c.mu.Unlock()

	for _, key := range c.store.Keys() {
		c.onSnapshot(key, c.store.Get(key))
	}
}

// Close stops picking up new calls. Handlers already running complete and
// still publish their results.
func (c *Coordinator) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Wait blocks until every started handler has published its result.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// onSnapshot runs under the store's per-key lock, so it only claims calls
// and leaves the work to goroutines. The key's generation is captured here so
// a result can tell whether the thread was retired while its handler ran.
func (c *Coordinator) onSnapshot(key ai.ThreadKey, snap *reducer.Snapshot) {
	gen := c.store.Generation(key)
	for _, call := range snap.PendingToolCalls() {
		if !call.ArgsDone || call.Status != ai.StatusInProgress || call.Restored {
			continue
		}
		t, ok := c.registry.Lookup(call.Name, key.AgentID)
		if !ok || t.Handler == nil {
			continue
		}
		if !c.claim(key, call.ID) {
			continue
		}
		c.wg.Add(1)
		go c.execute(key, gen, call, t)
	}
}

// claim marks a call as in flight. Reports false if it already is. Once the
// result is dispatched the call is no longer in progress, so the claim is
// released and a call that reappears after a reset runs again.
func (c *Coordinator) claim(key ai.ThreadKey, callID string) bool {
	ck := callKey{thread: key, callID: callID}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[ck]; ok {
		return false
	}
	c.inFlight[ck] = struct{}{}
	return true
}

func (c *Coordinator) release(key ai.ThreadKey, callID string) {
	c.mu.Lock()
	delete(c.inFlight, callKey{thread: key, callID: callID})
	c.mu.Unlock()
}

func (c *Coordinator) execute(key ai.ThreadKey, gen uint64, call *ai.ToolCall, t tool.Tool) {
	defer c.wg.Done()
	defer c.release(key, call.ID)

	log := c.logger.With(
		"agent_id", key.AgentID,
		"thread_id", key.ThreadID,
		"run_id", call.RunID,
		"tool", t.Name,
		"tool_call_id", call.ID,
	)

	c.store.Dispatch(key, event.NewToolCallExecuting(call.ID))
	c.metrics.started()
	start := time.Now()

	out, err := c.registry.Run(c.ctx, t, tool.Call{
		ID:       call.ID,
		Name:     call.Name,
		AgentID:  key.AgentID,
		ThreadID: key.ThreadID,
		RunID:    call.RunID,
		Args:     call.ArgsMap(),
		ArgsRaw:  call.ArgsRaw,
	})

	outcome := OutcomeSuccess
	var content string
	if err == nil {
		content, err = encodeResult(out)
	}
	if err != nil {
		var argErr *tool.ErrInvalidArguments
		if errors.As(err, &argErr) {
			outcome = OutcomeInvalidArguments
		} else {
			outcome = OutcomeError
		}
		log.Warn("executor: tool failed", "error", err)
		content = errorResult(err)
	}

	res := event.NewToolCallResult(c.newID(), call.ID, content)
	res.IsError = err != nil
	res.FollowUp = tool.Bool(t.FollowUpEnabled())
	live, dispatchErr := c.store.DispatchAt(context.Background(), key, gen, res)
	switch {
	case dispatchErr != nil:
		log.Warn("executor: failed to save result of retired thread", "error", dispatchErr)
	case !live:
		log.Debug("executor: thread retired while tool ran, result kept out of the live snapshot")
	}

	elapsed := time.Since(start)
	c.metrics.finished(t.Name, outcome, elapsed)
	log.Debug("executor: tool completed", "outcome", outcome, "duration", elapsed)
}

// encodeResult renders a handler result in its protocol string form.
func encodeResult(v any) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	case json.RawMessage:
		return string(r), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

// errorResult builds the {"error": "..."} payload sent for failed handlers.
func errorResult(err error) string {
	out, setErr := sjson.Set("", "error", err.Error())
	if setErr != nil {
		return `{"error":"tool failed"}`
	}
	return out
}
