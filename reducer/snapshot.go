// Package reducer folds AG-UI events into immutable thread snapshots.
//
// Reduce is a pure function: it never mutates its input snapshot and never
// fails. Each call returns either the same snapshot (the event changed
// nothing) or a new one that reuses every Message, ToolCall and Run pointer
// the event did not touch. UI layers can therefore compare pointers to find
// what changed:
//
//	next := reducer.Reduce(prev, ev)
//	if next == prev {
//	    return // nothing to re-render
//	}
//	for i, m := range next.Messages {
//	    if i < len(prev.Messages) && prev.Messages[i] == m {
//	        continue // untouched
//	    }
//	    rerender(m)
//	}
package reducer

import (
	ai "github.com/spetersoncode/aguikit"
)

// Snapshot is the state of one thread after some prefix of its event stream.
// A Snapshot and everything reachable from it must be treated as read-only.
type Snapshot struct {
	Key ai.ThreadKey

	// Messages is the transcript in arrival order.
	Messages []*ai.Message

	// ToolCalls lists every tool call in first-seen order.
	ToolCalls []*ai.ToolCall

	// Runs is the thread's run history in start order.
	Runs []*ai.Run

	// CurrentRunID is the most recently started run.
	CurrentRunID string

	// Running is true between RUN_STARTED and RUN_FINISHED/RUN_ERROR.
	Running bool

	// Err is the terminal error of the current run, if it failed.
	Err *ai.RunError

	// State is the latest shared state (STATE_SNAPSHOT plus STATE_DELTA).
	State any

	// StopFollowUp is set when a locally executed tool with follow-up
	// disabled completed during the current run. The run driver must not
	// request another agent turn automatically. Cleared by RUN_STARTED.
	StopFollowUp bool

	// Version counts the changes applied since the snapshot was created.
	Version uint64

	msgIndex  map[string]int
	callIndex map[string]int
	runIndex  map[string]int

	openMessageID  string
	openToolCallID string
}

// New returns the empty snapshot for a thread.
func New(key ai.ThreadKey) *Snapshot {
	return &Snapshot{
		Key:       key,
		msgIndex:  map[string]int{},
		callIndex: map[string]int{},
		runIndex:  map[string]int{},
	}
}

// Message returns the message with the given id.
func (s *Snapshot) Message(id string) (*ai.Message, bool) {
	i, ok := s.msgIndex[id]
	if !ok {
		return nil, false
	}
	return s.Messages[i], true
}

// ToolCall returns the tool call with the given id.
func (s *Snapshot) ToolCall(id string) (*ai.ToolCall, bool) {
	i, ok := s.callIndex[id]
	if !ok {
		return nil, false
	}
	return s.ToolCalls[i], true
}

// Run returns the run with the given id.
func (s *Snapshot) Run(id string) (*ai.Run, bool) {
	i, ok := s.runIndex[id]
	if !ok {
		return nil, false
	}
	return s.Runs[i], true
}

// CurrentRun returns the most recently started run.
func (s *Snapshot) CurrentRun() (*ai.Run, bool) {
	if s.CurrentRunID == "" {
		return nil, false
	}
	return s.Run(s.CurrentRunID)
}

// RunIDs returns the thread's run ids in start order.
func (s *Snapshot) RunIDs() []string {
	ids := make([]string, len(s.Runs))
	for i, r := range s.Runs {
		ids[i] = r.RunID
	}
	return ids
}

// PendingToolCalls returns the calls that are not yet complete.
func (s *Snapshot) PendingToolCalls() []*ai.ToolCall {
	var out []*ai.ToolCall
	for _, c := range s.ToolCalls {
		if c.Status != ai.StatusComplete {
			out = append(out, c)
		}
	}
	return out
}
