package event

// Constructors for the events the reducer consumes. They mirror the AG-UI
// SDK's NewXxxEvent helpers but build this package's Event.

// NewRunStarted creates a RUN_STARTED event.
func NewRunStarted(threadID, runID string) Event {
	return Event{Type: RunStarted, ThreadID: threadID, RunID: runID}
}

// NewRunFinished creates a RUN_FINISHED event.
func NewRunFinished(threadID, runID string) Event {
	return Event{Type: RunFinished, ThreadID: threadID, RunID: runID}
}

// NewRunError creates a RUN_ERROR event.
func NewRunError(message, code string) Event {
	return Event{Type: RunError, Message: message, Code: code}
}

// NewTextMessageStart creates a TEXT_MESSAGE_START event.
func NewTextMessageStart(messageID, role string) Event {
	return Event{Type: TextMessageStart, MessageID: messageID, Role: role}
}

// NewTextMessageContent creates a TEXT_MESSAGE_CONTENT event carrying a delta.
func NewTextMessageContent(messageID, delta string) Event {
	return Event{Type: TextMessageContent, MessageID: messageID, Delta: delta}
}

// NewTextMessageReplace creates a TEXT_MESSAGE_CONTENT event carrying the
// full content of the message at this point.
func NewTextMessageReplace(messageID, content string) Event {
	return Event{Type: TextMessageContent, MessageID: messageID, Content: &content}
}

// NewTextMessageChunk creates a TEXT_MESSAGE_CHUNK event.
func NewTextMessageChunk(messageID, role, delta string) Event {
	return Event{Type: TextMessageChunk, MessageID: messageID, Role: role, Delta: delta}
}

// NewTextMessageEnd creates a TEXT_MESSAGE_END event.
func NewTextMessageEnd(messageID string) Event {
	return Event{Type: TextMessageEnd, MessageID: messageID}
}

// NewToolCallStart creates a TOOL_CALL_START event.
func NewToolCallStart(toolCallID, name, parentMessageID string) Event {
	return Event{Type: ToolCallStart, ToolCallID: toolCallID, ToolCallName: name, ParentMessageID: parentMessageID}
}

// NewToolCallArgs creates a TOOL_CALL_ARGS event.
func NewToolCallArgs(toolCallID, delta string) Event {
	return Event{Type: ToolCallArgs, ToolCallID: toolCallID, Delta: delta}
}

// NewToolCallChunk creates a TOOL_CALL_CHUNK event.
func NewToolCallChunk(toolCallID, name, parentMessageID, delta string) Event {
	return Event{Type: ToolCallChunk, ToolCallID: toolCallID, ToolCallName: name, ParentMessageID: parentMessageID, Delta: delta}
}

// NewToolCallEnd creates a TOOL_CALL_END event.
func NewToolCallEnd(toolCallID string) Event {
	return Event{Type: ToolCallEnd, ToolCallID: toolCallID}
}

// NewToolCallResult creates a TOOL_CALL_RESULT event.
func NewToolCallResult(messageID, toolCallID, content string) Event {
	return Event{Type: ToolCallResult, MessageID: messageID, ToolCallID: toolCallID, Content: &content, Role: "tool"}
}

// NewToolCallExecuting creates the local TOOL_CALL_EXECUTING event.
func NewToolCallExecuting(toolCallID string) Event {
	return Event{Type: ToolCallExecuting, ToolCallID: toolCallID}
}

// NewStateSnapshot creates a STATE_SNAPSHOT event.
func NewStateSnapshot(snapshot any) Event {
	return Event{Type: StateSnapshot, Snapshot: snapshot}
}

// NewStateDelta creates a STATE_DELTA event.
func NewStateDelta(ops ...Patch) Event {
	return Event{Type: StateDelta, Patches: ops}
}

// NewMessagesSnapshot creates a MESSAGES_SNAPSHOT event.
func NewMessagesSnapshot(msgs []Message) Event {
	return Event{Type: MessagesSnapshot, Messages: msgs}
}

// NewCustom creates a CUSTOM event.
func NewCustom(name string, value any) Event {
	return Event{Type: Custom, Name: name, Value: value}
}
