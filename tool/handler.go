package tool

import (
	"context"
)

// Call is a complete tool call handed to a Handler.
type Call struct {
	// ID is the tool call id assigned by the agent.
	ID   string
	Name string

	// AgentID and ThreadID identify the conversation the call belongs to.
	AgentID  string
	ThreadID string
	RunID    string

	// Args is the parsed arguments object.
	Args map[string]any

	// ArgsRaw is the complete arguments JSON as streamed by the agent.
	ArgsRaw string
}

// Handler executes a tool call locally and returns its result.
// A string result is sent to the agent as-is; anything else is encoded as
// JSON. The context is cancelled when the owning coordinator shuts down.
type Handler func(ctx context.Context, call Call) (any, error)

// TypedHandler is a Handler whose arguments are decoded into T.
type TypedHandler[T any] func(ctx context.Context, args T) (any, error)
