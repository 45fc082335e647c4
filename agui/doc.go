// Package agui connects aguikit to the AG-UI Go SDK.
//
// AG-UI (Agent-User Interface) is an open, event-based protocol that
// standardizes how agents stream to user-facing applications. This package
// converts between the SDK's events package and event.Event, so streams
// produced by any AG-UI agent can be reduced, and synthesized events can be
// sent back upstream.
//
// The package does NOT provide HTTP transport. Decode the agent's stream with
// event.Reader or the SDK, and post RunAgentInput however the agent expects.
//
// # Events
//
//	e, err := agui.FromEvent(sdkEvent) // SDK -> event.Event
//	sdkEvent := agui.ToEvent(e)        // event.Event -> SDK, nil if local-only
//
// # Run input
//
// NewRunAgentInput builds the request for the next run from a thread's
// snapshot and the tools the agent may call:
//
//	input := agui.NewRunAgentInput(snap, "", agui.FromTools("weather", registry.Tools()))
//
// # Human in the loop
//
// HandleResponseJSON routes a UI answer to a tool.ResponseBroker.
//
// Conversion functions are stateless and safe for concurrent use.
package agui
