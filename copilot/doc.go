// Package copilot is the registration surface UI bindings talk to.
//
// A Core owns one tool registry, one snapshot store and one handler
// coordinator. Bindings register tools and renderers as components mount,
// feed agent event streams in through an Agent handle, and subscribe to the
// snapshots of the threads they display:
//
//	core := copilot.New(copilot.WithLogger(logger))
//	defer core.Close()
//
//	agent := core.Agent("weather")
//	core.Subscribe(agent.Key("thread-1"), copilot.Subscriber{
//	    OnSnapshot:    func(s *reducer.Snapshot) { render(s) },
//	    OnRunFinished: func(s *reducer.Snapshot, runID string) { done(runID) },
//	})
//
// Tool calls the agent streams for a registered handler are executed as
// soon as their arguments end; the result is ingested back into the thread
// as a TOOL_CALL_RESULT.
package copilot
