package tool

import (
	"context"
	"sync"
	"time"
)

// ResponseBroker backs human-in-the-loop tools: the tool's handler blocks
// until the UI answers the call through Respond.
//
// Usage:
//
//	broker := tool.NewResponseBroker()
//	core.AddTool(tool.Tool{
//	    Name:    "confirmBooking",
//	    Handler: broker.Handler(),
//	    Render:  confirmDialog, // calls broker.Respond(props.ToolCallID, answer)
//	})
type ResponseBroker struct {
	mu        sync.Mutex
	pending   map[string]chan any
	timeout   time.Duration
	onRequest func(call Call)
}

// BrokerOption configures a ResponseBroker.
type BrokerOption func(*ResponseBroker)

// WithResponseTimeout sets how long a handler waits for a response.
// Zero disables the timeout.
func WithResponseTimeout(d time.Duration) BrokerOption {
	return func(b *ResponseBroker) {
		b.timeout = d
	}
}

// WithOnRequest sets a callback invoked when a handler starts waiting.
func WithOnRequest(fn func(call Call)) BrokerOption {
	return func(b *ResponseBroker) {
		b.onRequest = fn
	}
}

// NewResponseBroker creates a ResponseBroker. The default timeout is 5 minutes.
func NewResponseBroker(opts ...BrokerOption) *ResponseBroker {
	b := &ResponseBroker{
		pending: make(map[string]chan any),
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler returns a Handler that waits for Respond, context cancellation or
// the timeout, whichever comes first.
func (b *ResponseBroker) Handler() Handler {
	return func(ctx context.Context, call Call) (any, error) {
		return b.wait(ctx, call)
	}
}

// Respond delivers the result for a waiting tool call.
// Returns *ErrNoPendingResponse if no handler is waiting for toolCallID.
func (b *ResponseBroker) Respond(toolCallID string, result any) error {
	b.mu.Lock()
	ch, ok := b.pending[toolCallID]
	if ok {
		delete(b.pending, toolCallID)
	}
	b.mu.Unlock()

	if !ok {
		return &ErrNoPendingResponse{ToolCallID: toolCallID}
	}
	ch <- result
	return nil
}

// Pending returns the ids of tool calls waiting for a response.
func (b *ResponseBroker) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	return ids
}

// HasPending reports whether any handler is waiting.
func (b *ResponseBroker) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) > 0
}

func (b *ResponseBroker) wait(ctx context.Context, call Call) (any, error) {
	// Buffered so Respond never blocks once it has claimed the entry.
	ch := make(chan any, 1)

	b.mu.Lock()
	b.pending[call.ID] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.pending[call.ID] == ch {
			delete(b.pending, call.ID)
		}
		b.mu.Unlock()
	}()

	if b.onRequest != nil {
		b.onRequest(call)
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrResponseTimeout
		}
		return nil, ctx.Err()
	}
}
