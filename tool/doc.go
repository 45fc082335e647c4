// Package tool holds the frontend tool registry and renderer resolver.
//
// A Tool is something the agent can call that the frontend knows about. It
// may carry a local Handler, which the executor runs once the call's
// arguments are complete, and a RenderFunc that draws the call in the UI.
//
// # Registration
//
// Tools and renderers are keyed by (agent, name). An empty agent id means
// the registration applies to every agent. Registering the same key again
// replaces the earlier entry:
//
//	registry := tool.NewRegistry()
//	registry.MustRegister(tool.Func("getWeather", "Get the weather",
//	    func(ctx context.Context, args WeatherArgs) (any, error) {
//	        return lookup(ctx, args.Location)
//	    }))
//
// # Renderers
//
// Renderers live in two layers. The dynamic layer is fed by RegisterRenderer
// and by tools that set Render; the static layer is replaced wholesale by
// SetRenderers. ResolveRenderer tries, in order:
//
//	(agent, name)   exact match
//	(*,     name)   any agent
//	(agent, *)      agent-wide wildcard
//	(*,     *)      global wildcard
//
// and at each level prefers the dynamic layer.
//
// # Human in the loop
//
// ResponseBroker turns a tool into a question for the user: its handler
// blocks until the UI calls Respond with the answer.
package tool
