package copilot

import (
	"context"
	"fmt"
	"sync"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/agui"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/reducer"
)

// Agent is the handle UI bindings use to feed one agent's event streams
// into the core. An empty thread id refers to the agent's current thread.
type Agent struct {
	core *Core
	id   string

	mu       sync.Mutex
	threadID string
}

// ID returns the agent id.
func (a *Agent) ID() string { return a.id }

// Key returns the thread key of threadID for this agent.
func (a *Agent) Key(threadID string) ai.ThreadKey {
	return ai.ThreadKey{AgentID: a.id, ThreadID: a.thread(threadID)}
}

// ThreadID returns the current thread id.
func (a *Agent) ThreadID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threadID
}

func (a *Agent) thread(threadID string) string {
	if threadID != "" {
		return threadID
	}
	return a.ThreadID()
}

// Ingest reduces e into the thread and returns the resulting snapshot.
// The first thread ingested into becomes current if none is set.
func (a *Agent) Ingest(threadID string, e event.Event) *reducer.Snapshot {
	if threadID != "" {
		a.mu.Lock()
		if a.threadID == "" {
			a.threadID = threadID
		}
		a.mu.Unlock()
	}
	return a.core.store.Dispatch(a.Key(threadID), e)
}

// IngestAGUI converts an AG-UI SDK event and ingests it.
func (a *Agent) IngestAGUI(threadID string, ev events.Event) (*reducer.Snapshot, error) {
	e, err := agui.FromEvent(ev)
	if err != nil {
		return nil, err
	}
	return a.Ingest(threadID, e), nil
}

// Run ingests events from ch until it is closed or ctx is cancelled.
func (a *Agent) Run(ctx context.Context, threadID string, ch <-chan event.Event) error {
	logger := a.core.logger.With("agent_id", a.id, "thread_id", a.thread(threadID))
	n := 0
	for {
		select {
		case <-ctx.Done():
			logger.Debug("agent: stream cancelled", "events", n)
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				logger.Debug("agent: stream ended", "events", n)
				return nil
			}
			a.Ingest(threadID, e)
			n++
		}
	}
}

// Snapshot returns the latest snapshot of the thread.
func (a *Agent) Snapshot(threadID string) *reducer.Snapshot {
	return a.core.store.Get(a.Key(threadID))
}

// RunIDs returns the run ids of the thread in start order.
func (a *Agent) RunIDs(threadID string) []string {
	return a.core.store.RunIDs(a.Key(threadID))
}

// Input builds the RunAgentInput for the next run of the thread, offering
// every tool this agent may call.
func (a *Agent) Input(threadID, runID string) agui.RunAgentInput {
	tools := agui.FromTools(a.id, a.core.registry.Tools())
	return agui.NewRunAgentInput(a.Snapshot(threadID), runID, tools)
}

// SwitchThread makes threadID current. The history of the previous thread
// is retired, and the new thread's persisted transcript, if any, is
// restored unless the thread is already live. Handlers still running for
// the previous thread write their results to its transcript.
func (a *Agent) SwitchThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		return fmt.Errorf("copilot: switch thread: %w", ai.ErrEmptyThreadID)
	}

	a.mu.Lock()
	prev := a.threadID
	a.threadID = threadID
	a.mu.Unlock()

	if prev == threadID {
		return nil
	}
	if prev != "" {
		prevKey := ai.ThreadKey{AgentID: a.id, ThreadID: prev}
		if len(a.core.store.Get(prevKey).Messages) > 0 {
			if err := a.core.store.Save(ctx, prevKey); err != nil {
				a.core.logger.Warn("copilot: failed to save thread", "thread", prevKey.String(), "error", err)
			}
		}
		a.core.store.Retire(prevKey)
	}

	key := ai.ThreadKey{AgentID: a.id, ThreadID: threadID}
	if a.core.store.Live(key) {
		return nil
	}
	if _, err := a.core.store.Restore(ctx, key); err != nil {
		return fmt.Errorf("copilot: restore %s: %w", key, err)
	}
	return nil
}
