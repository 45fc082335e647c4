// Package aguikit is the framework-independent core of an AG-UI chat SDK.
//
// It turns an ordered stream of AG-UI protocol events into immutable,
// structurally shared snapshots of a thread's transcript and in-flight tool
// calls, decides which renderer applies to a tool call, and runs locally
// registered tool handlers, feeding their results back into the stream.
//
// This root package holds the data model shared by every subpackage:
// [Message], [ToolCall], [Status], [Run] and [ThreadKey]. The moving parts
// live in subpackages:
//
//   - jsonpartial: tolerant parser for streamed, truncated JSON arguments
//   - event: the AG-UI wire event and its decoding
//   - reducer: the pure run reducer producing [reducer.Snapshot] values
//   - tool: tool and renderer registrations, renderer resolution
//   - store: per-thread snapshot store with subscriptions
//   - executor: runs tool handlers and feeds results back
//   - agui: bridge to the AG-UI Go SDK event types
//   - copilot: facade exposing the registration API used by UI bindings
//
// # Quick Start
//
//	core := copilot.New()
//	defer core.Close()
//
//	core.AddTool(tool.Tool{
//	    Name: "getWeather",
//	    Handler: func(ctx context.Context, call tool.Call) (any, error) {
//	        return map[string]any{"temperature": 22}, nil
//	    },
//	})
//
//	agent := core.Agent("weather")
//	unsubscribe := core.Subscribe(agent.Key("thread-1"), copilot.Subscriber{
//	    OnSnapshot: func(s *reducer.Snapshot) { render(s) },
//	})
//	defer unsubscribe()
//
//	for ev := range events {
//	    agent.Ingest("thread-1", ev)
//	}
package aguikit
