package agui

import (
	"encoding/json"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/spetersoncode/aguikit/event"
)

// Role constants matching AG-UI protocol.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleTool      = "tool"
)

// FromMessages converts snapshot messages to AG-UI messages, for
// MESSAGES_SNAPSHOT events and RunAgentInput.
func FromMessages(msgs []event.Message) []events.Message {
	result := make([]events.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, FromMessage(msg))
	}
	return result
}

// FromMessage converts a single snapshot message to an AG-UI message.
// Structured content is sent as its JSON text.
func FromMessage(msg event.Message) events.Message {
	m := events.Message{
		ID:   msg.ID,
		Role: msg.Role,
	}

	switch {
	case msg.Structured != nil:
		if data, err := json.Marshal(msg.Structured); err == nil {
			content := string(data)
			m.Content = &content
		}
	case msg.Content != "":
		content := msg.Content
		m.Content = &content
	}

	// Convert tool calls (for assistant messages)
	if len(msg.ToolCalls) > 0 {
		m.ToolCalls = make([]events.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			m.ToolCalls[i] = events.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: events.Function{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			}
		}
	}

	// Tool result messages
	if msg.ToolCallID != "" {
		id := msg.ToolCallID
		m.ToolCallID = &id
	}

	return m
}

// ToMessages converts AG-UI messages to snapshot messages.
func ToMessages(msgs []events.Message) []event.Message {
	result := make([]event.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, ToMessage(msg))
	}
	return result
}

// ToMessage converts a single AG-UI message to a snapshot message.
func ToMessage(msg events.Message) event.Message {
	m := event.Message{
		ID:   msg.ID,
		Role: msg.Role,
	}
	if msg.Content != nil {
		m.Content = *msg.Content
	}
	if msg.ToolCallID != nil {
		m.ToolCallID = *msg.ToolCallID
	}
	for _, tc := range msg.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, event.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return m
}
