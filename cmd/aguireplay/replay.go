package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/copilot"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/reducer"
	"github.com/tidwall/gjson"
)

const defaultAgentID = "default"

// replayOptions are the per-invocation settings of a replay.
type replayOptions struct {
	AgentID  string
	ThreadID string
	Execute  bool
	Timeout  time.Duration
	// Select is a gjson path applied to tool results when printing.
	Select string
	JSON   bool
}

// replayer feeds a recorded stream through a Core.
type replayer struct {
	core   *copilot.Core
	agent  *copilot.Agent
	opts   replayOptions
	logger *slog.Logger
	cancel context.CancelFunc
}

func newReplayer(ctx context.Context, logger *slog.Logger, m *Manifest, opts replayOptions) (*replayer, error) {
	if m == nil {
		m = &Manifest{}
	}
	if opts.AgentID == "" {
		opts.AgentID = m.Agent
	}
	if opts.AgentID == "" {
		opts.AgentID = defaultAgentID
	}

	// Handlers get their own context so Close can stop them after a timeout.
	ctx, cancel := context.WithCancel(ctx)
	core := copilot.New(
		copilot.WithLogger(logger),
		copilot.WithContext(ctx),
		copilot.WithRenderToolCalls(m.RendererDefs()),
	)

	tools, err := m.ToolDefs()
	if err != nil {
		cancel()
		core.Close()
		return nil, err
	}
	for _, t := range tools {
		if !opts.Execute {
			t.Handler = nil
		}
		if err := core.AddTool(t); err != nil {
			cancel()
			core.Close()
			return nil, err
		}
	}

	return &replayer{
		core:   core,
		agent:  core.Agent(opts.AgentID),
		opts:   opts,
		logger: logger,
		cancel: cancel,
	}, nil
}

// Close cancels handlers that are still running and waits for them.
func (r *replayer) Close() {
	r.cancel()
	r.core.Close()
}

// Replay decodes every event from in, ingests them in order and waits for
// local tool handlers to finish. A stream without RUN_STARTED is wrapped in
// a synthetic run.
func (r *replayer) Replay(ctx context.Context, in io.Reader) (*reducer.Snapshot, error) {
	evs, err := readEvents(in)
	if err != nil {
		return nil, err
	}

	threadID := r.opts.ThreadID
	if threadID == "" {
		threadID = firstThreadID(evs)
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}
	log := r.logger.With("agent_id", r.agent.ID(), "thread_id", threadID)

	var runID string
	if !hasRunStart(evs) {
		runID = uuid.NewString()
		log.Debug("replay: wrapping stream in a run", "run_id", runID)
		r.agent.Ingest(threadID, event.NewRunStarted(threadID, runID))
	}

	for _, e := range evs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.agent.Ingest(threadID, e)
	}

	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	if runID != "" {
		r.agent.Ingest(threadID, event.NewRunFinished(threadID, runID))
	}

	snap := r.agent.Snapshot(threadID)
	log.Info("replay: done", "events", len(evs), "messages", len(snap.Messages), "tool_calls", len(snap.ToolCalls))
	return snap, nil
}

func (r *replayer) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.core.Coordinator().Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.Timeout):
		return fmt.Errorf("tool handlers still running after %s", r.opts.Timeout)
	}
}

// Print writes snap to w, as a transcript or as a MESSAGES_SNAPSHOT.
func (r *replayer) Print(w io.Writer, snap *reducer.Snapshot) error {
	if r.opts.JSON {
		data, err := json.MarshalIndent(event.NewMessagesSnapshot(snap.WireMessages()), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for _, m := range snap.Messages {
		switch {
		case m.Role == ai.RoleTool:
			continue
		case m.Role == ai.RoleActivity:
			data, _ := json.Marshal(m.Structured)
			fmt.Fprintf(w, "activity(%s): %s\n", m.ActivityType, data)
		case m.Content != "":
			fmt.Fprintf(w, "%s: %s\n", m.Role, m.Content)
		}
		for _, ref := range m.ToolCalls {
			if c, ok := snap.ToolCall(ref.ID); ok {
				fmt.Fprintf(w, "  -> %s\n", r.describe(c))
			}
		}
	}

	for _, id := range snap.RunIDs() {
		run, _ := snap.Run(id)
		switch {
		case run.Err != nil:
			fmt.Fprintf(w, "run %s: error: %s\n", id, run.Err.Message)
		case run.Finished:
			fmt.Fprintf(w, "run %s: finished\n", id)
		default:
			fmt.Fprintf(w, "run %s: running\n", id)
		}
	}
	if snap.Err != nil && snap.Err.RunID == "" {
		fmt.Fprintf(w, "error: %s\n", snap.Err.Message)
	}
	return nil
}

func (r *replayer) describe(c *ai.ToolCall) string {
	if out, ok := r.core.RenderToolCall(r.agent.ID(), c); ok {
		if s, ok := out.(string); ok {
			return s
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]", c.Name, c.ArgsRaw, c.Status)
	if c.Status == ai.StatusComplete {
		result := c.Result
		if r.opts.Select != "" && gjson.Valid(result) {
			result = gjson.Get(result, r.opts.Select).String()
		}
		if c.IsError {
			b.WriteString(" error:")
		}
		b.WriteString(" ")
		b.WriteString(result)
	}
	return b.String()
}

func readEvents(in io.Reader) ([]event.Event, error) {
	reader := event.NewReader(in)
	var evs []event.Event
	for {
		e, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return evs, nil
		}
		if err != nil {
			return nil, err
		}
		evs = append(evs, e)
	}
}

func firstThreadID(evs []event.Event) string {
	for _, e := range evs {
		if e.ThreadID != "" {
			return e.ThreadID
		}
	}
	return ""
}

func hasRunStart(evs []event.Event) bool {
	for _, e := range evs {
		if e.Type == event.RunStarted {
			return true
		}
	}
	return false
}
