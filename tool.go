package aguikit

// Status is the lifecycle state of a tool call.
// Transitions only move forward: InProgress, then optionally Executing, then Complete.
type Status int

const (
	// StatusInProgress means arguments are streaming or the call awaits a result.
	StatusInProgress Status = iota
	// StatusExecuting means a local handler is running for the call.
	StatusExecuting
	// StatusComplete means a result is attached. Terminal.
	StatusComplete
)

// String returns the status name used in logs and JSON.
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "inProgress"
	case StatusExecuting:
		return "executing"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Advance returns the later of s and next. A call never moves backwards.
func (s Status) Advance(next Status) Status {
	if next > s {
		return next
	}
	return s
}

// ToolCall is the reducer's view of a tool invocation requested by the agent.
// Like Message, a published ToolCall is never mutated.
type ToolCall struct {
	// ID is unique within a run and assigned by the agent.
	ID   string `json:"id"`
	Name string `json:"name"`
	// ParentMessageID is the assistant message that issued the call.
	ParentMessageID string `json:"parentMessageId,omitempty"`
	// RunID is the run during which the call was first seen.
	RunID string `json:"runId,omitempty"`
	// ArgsRaw is the accumulated argument delta buffer.
	ArgsRaw string `json:"argsRaw"`
	// Args is the best-effort parse of ArgsRaw (see package jsonpartial).
	Args any `json:"args,omitempty"`
	// ArgsDone is set once TOOL_CALL_END was seen.
	ArgsDone bool   `json:"argsDone"`
	Status   Status `json:"status"`
	// Result is the tool result in its protocol string form.
	Result  string `json:"result,omitempty"`
	IsError bool   `json:"isError,omitempty"`
	// Restored is set for calls rebuilt from a MESSAGES_SNAPSHOT. They are
	// history, not requests, and are never executed locally.
	Restored bool `json:"restored,omitempty"`
}

// Clone returns a shallow copy of c.
func (c *ToolCall) Clone() *ToolCall {
	cp := *c
	return &cp
}

// ArgsMap returns Args as an object, or an empty map when the arguments are
// not (yet) an object.
func (c *ToolCall) ArgsMap() map[string]any {
	if m, ok := c.Args.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
