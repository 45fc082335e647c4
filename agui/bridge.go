package agui

import (
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/spetersoncode/aguikit/event"
)

// FromEvent converts an AG-UI SDK event into an event.Event.
// The SDK event is serialized with its own ToJSON and decoded by
// event.Decode, so field names stay exactly as on the wire.
func FromEvent(ev events.Event) (event.Event, error) {
	if ev == nil {
		return event.Event{}, fmt.Errorf("agui: nil event")
	}
	data, err := ev.ToJSON()
	if err != nil {
		return event.Event{}, fmt.Errorf("agui: serialize %s: %w", ev.Type(), err)
	}
	e, err := event.Decode(data)
	if err != nil {
		return event.Event{}, fmt.Errorf("agui: decode %s: %w", ev.Type(), err)
	}
	return e, nil
}

// ToEvent converts an event.Event into the matching AG-UI SDK event.
// Returns nil for local-only events (TOOL_CALL_EXECUTING) and for types
// this bridge does not emit.
func ToEvent(e event.Event) events.Event {
	switch e.Type {
	// Run lifecycle
	case event.RunStarted:
		return events.NewRunStartedEvent(e.ThreadID, e.RunID)
	case event.RunFinished:
		return events.NewRunFinishedEvent(e.ThreadID, e.RunID)
	case event.RunError:
		return events.NewRunErrorEvent(e.Message)

	// Message lifecycle
	case event.TextMessageStart:
		role := e.Role
		if role == "" {
			role = RoleAssistant
		}
		return events.NewTextMessageStartEvent(e.MessageID, events.WithRole(role))
	case event.TextMessageContent:
		if e.Content != nil {
			// The SDK content event only carries deltas.
			return nil
		}
		return events.NewTextMessageContentEvent(e.MessageID, e.Delta)
	case event.TextMessageEnd:
		return events.NewTextMessageEndEvent(e.MessageID)

	// Tool call lifecycle
	case event.ToolCallStart:
		return events.NewToolCallStartEvent(e.ToolCallID, e.ToolCallName)
	case event.ToolCallArgs:
		return events.NewToolCallArgsEvent(e.ToolCallID, e.Delta)
	case event.ToolCallEnd:
		return events.NewToolCallEndEvent(e.ToolCallID)
	case event.ToolCallResult:
		messageID := e.MessageID
		if messageID == "" {
			messageID = events.GenerateMessageID()
		}
		content := ""
		if e.Content != nil {
			content = *e.Content
		}
		return events.NewToolCallResultEvent(messageID, e.ToolCallID, content)

	// Snapshots
	case event.MessagesSnapshot:
		return events.NewMessagesSnapshotEvent(FromMessages(e.Messages))

	// Local only
	case event.ToolCallExecuting:
		return nil

	default:
		return nil
	}
}
