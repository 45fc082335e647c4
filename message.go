package aguikit

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleTool      Role = "tool"
	RoleActivity  Role = "activity"
)

// ParseRole converts an AG-UI role string to a Role.
// Unknown or empty roles map to RoleAssistant, since messages created
// lazily by the protocol stream are produced by the agent.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper, RoleTool, RoleActivity:
		return Role(s)
	default:
		return RoleAssistant
	}
}

// ToolCallRef links an assistant message to a tool call it issued.
type ToolCallRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is one entry of a thread transcript.
//
// A Message handed out in a snapshot is never mutated. Every content update
// produces a new Message with the same ID that replaces the old pointer in
// the snapshot's message slice; sibling messages keep their identity.
type Message struct {
	// ID is stable for the life of the message.
	ID   string `json:"id"`
	Role Role   `json:"role"`
	// Content is the accumulated text content.
	Content string `json:"content,omitempty"`
	// Structured holds non-text content (activity payloads, snapshot content
	// that was not a plain string).
	Structured any `json:"structured,omitempty"`
	// ToolCalls lists the tool calls issued by an assistant message.
	ToolCalls []ToolCallRef `json:"toolCalls,omitempty"`
	// ToolCallID is set on tool-role messages carrying a tool result.
	ToolCallID string `json:"toolCallId,omitempty"`
	// Name is an optional author name.
	Name string `json:"name,omitempty"`
	// ActivityType names the kind of activity for RoleActivity messages.
	ActivityType string `json:"activityType,omitempty"`
	// Finished is set once TEXT_MESSAGE_END was seen.
	Finished bool `json:"-"`
}

// Clone returns a shallow copy of m with its own ToolCalls slice.
func (m *Message) Clone() *Message {
	c := *m
	if m.ToolCalls != nil {
		c.ToolCalls = make([]ToolCallRef, len(m.ToolCalls))
		copy(c.ToolCalls, m.ToolCalls)
	}
	return &c
}

// HasToolCall reports whether the message references the given tool call.
func (m *Message) HasToolCall(id string) bool {
	for _, ref := range m.ToolCalls {
		if ref.ID == id {
			return true
		}
	}
	return false
}
