package copilot

import (
	"sync"

	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/reducer"
	"github.com/spetersoncode/aguikit/store"
)

// Subscriber receives snapshot notifications. Nil callbacks are skipped.
//
// OnRunFinished and OnRunError are derived from consecutive snapshots: they
// fire once when a run ends, after OnSnapshot for the snapshot that ended it.
// Callbacks run synchronously under the thread's lock and must not ingest
// into the same thread.
type Subscriber struct {
	OnSnapshot    func(s *reducer.Snapshot)
	OnRunFinished func(s *reducer.Snapshot, runID string)
	OnRunError    func(s *reducer.Snapshot, err *ai.RunError)
}

// listener adapts s to a store listener. initial is the snapshot the
// subscriber is assumed to have seen already.
func (s Subscriber) listener(initial *reducer.Snapshot) store.Listener {
	var mu sync.Mutex
	seen := make(map[ai.ThreadKey]*reducer.Snapshot)
	if initial != nil {
		seen[initial.Key] = initial
	}

	return func(key ai.ThreadKey, snap *reducer.Snapshot) {
		mu.Lock()
		prev := seen[key]
		seen[key] = snap
		mu.Unlock()

		if s.OnSnapshot != nil {
			s.OnSnapshot(snap)
		}
		s.transitions(prev, snap)
	}
}

func (s Subscriber) transitions(prev, next *reducer.Snapshot) {
	if next.Err != nil && (prev == nil || prev.Err != next.Err) {
		if s.OnRunError != nil {
			s.OnRunError(next, next.Err)
		}
		return
	}
	if prev == nil || !prev.Running || next.Running {
		return
	}
	run, ok := next.Run(prev.CurrentRunID)
	if !ok || !run.Finished {
		return
	}
	if s.OnRunFinished != nil {
		s.OnRunFinished(next, run.RunID)
	}
}
