// Package event defines the AG-UI wire event consumed by the run reducer.
// Type values and JSON field names are the AG-UI protocol's own, so events
// recorded from any AG-UI backend decode without translation.
package event

import "time"

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStarted fires when an agent run begins.
	RunStarted Type = "RUN_STARTED"

	// RunFinished fires when the run completes successfully.
	RunFinished Type = "RUN_FINISHED"

	// RunError fires when the run ends with an unrecoverable error.
	RunError Type = "RUN_ERROR"
)

// Step lifecycle events
const (
	StepStarted  Type = "STEP_STARTED"
	StepFinished Type = "STEP_FINISHED"
)

// Text message events
const (
	// TextMessageStart opens an assistant message.
	TextMessageStart Type = "TEXT_MESSAGE_START"

	// TextMessageContent carries a content delta, or full content.
	TextMessageContent Type = "TEXT_MESSAGE_CONTENT"

	// TextMessageEnd closes a message.
	TextMessageEnd Type = "TEXT_MESSAGE_END"

	// TextMessageChunk is the convenience form that may open a message and
	// append to it in one event.
	TextMessageChunk Type = "TEXT_MESSAGE_CHUNK"
)

// Tool call events
const (
	// ToolCallStart opens a tool call (contains the tool name).
	ToolCallStart Type = "TOOL_CALL_START"

	// ToolCallArgs appends an arguments fragment.
	ToolCallArgs Type = "TOOL_CALL_ARGS"

	// ToolCallEnd marks the end of argument streaming.
	ToolCallEnd Type = "TOOL_CALL_END"

	// ToolCallChunk may open a call and append arguments in one event.
	ToolCallChunk Type = "TOOL_CALL_CHUNK"

	// ToolCallResult carries the tool result.
	ToolCallResult Type = "TOOL_CALL_RESULT"

	// ToolCallExecuting is local-only: the executor emits it when a
	// registered handler starts. It never appears on the wire.
	ToolCallExecuting Type = "TOOL_CALL_EXECUTING"
)

// State, snapshot and pass-through events
const (
	StateSnapshot    Type = "STATE_SNAPSHOT"
	StateDelta       Type = "STATE_DELTA"
	MessagesSnapshot Type = "MESSAGES_SNAPSHOT"
	ActivitySnapshot Type = "ACTIVITY_SNAPSHOT"
	ActivityDelta    Type = "ACTIVITY_DELTA"
	Raw              Type = "RAW"
	Custom           Type = "CUSTOM"
)

// Thinking events are accepted and ignored by the reducer.
const (
	ThinkingStart              Type = "THINKING_START"
	ThinkingEnd                Type = "THINKING_END"
	ThinkingTextMessageStart   Type = "THINKING_TEXT_MESSAGE_START"
	ThinkingTextMessageContent Type = "THINKING_TEXT_MESSAGE_CONTENT"
	ThinkingTextMessageEnd     Type = "THINKING_TEXT_MESSAGE_END"
)

// Event is one AG-UI protocol event. Only the fields relevant to Type are set.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// Timestamp is the protocol timestamp in milliseconds, 0 if absent.
	Timestamp int64

	// ThreadID and RunID are set on run lifecycle events.
	ThreadID    string
	RunID       string
	ParentRunID string

	// MessageID identifies the message for text, result and activity events.
	MessageID string

	// Role is the message role on TEXT_MESSAGE_START/CHUNK and TOOL_CALL_RESULT.
	Role string

	// Delta is the appended text fragment (text content or tool arguments).
	Delta string

	// Content is full replacement content. Nil when absent, which lets the
	// reducer tell "no content field" from "empty content".
	Content *string

	// ToolCallID, ToolCallName and ParentMessageID are set on tool call events.
	ToolCallID      string
	ToolCallName    string
	ParentMessageID string

	// Snapshot is the STATE_SNAPSHOT payload.
	Snapshot any

	// Patches is the STATE_DELTA or ACTIVITY_DELTA JSON Patch.
	Patches []Patch

	// Messages is the MESSAGES_SNAPSHOT payload.
	Messages []Message

	// Name and Value are set on CUSTOM events.
	Name  string
	Value any

	// ActivityType and Activity are set on ACTIVITY_SNAPSHOT events.
	ActivityType string
	Activity     any

	// Message and Code are set on RUN_ERROR events.
	Message string
	Code    string

	// Result is the RUN_FINISHED result payload.
	Result any

	// IsError marks a locally synthesized error result.
	IsError bool

	// FollowUp is set on locally synthesized results. A false value tells
	// the run driver not to request another agent turn.
	FollowUp *bool
}

// Message is a transcript entry carried by MESSAGES_SNAPSHOT.
type Message struct {
	ID         string
	Role       string
	Content    string
	Structured any
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolCall is a tool call carried inside a snapshot message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Emit stamps e and sends it on ch without blocking. Returns false when the
// channel is full and the event was dropped.
func Emit(ch chan<- Event, e Event) bool {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}
