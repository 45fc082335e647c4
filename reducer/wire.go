package reducer

import (
	"github.com/spetersoncode/aguikit/event"
)

// WireMessages returns the transcript in MESSAGES_SNAPSHOT form. Tool call
// arguments are the raw streamed text, so reducing the result into an empty
// snapshot rebuilds the same messages and tool calls.
func (s *Snapshot) WireMessages() []event.Message {
	out := make([]event.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		wm := event.Message{
			ID:         m.ID,
			Role:       string(m.Role),
			Content:    m.Content,
			Structured: m.Structured,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, ref := range m.ToolCalls {
			tc := event.ToolCall{ID: ref.ID, Name: ref.Name}
			if c, ok := s.ToolCall(ref.ID); ok {
				tc.Arguments = c.ArgsRaw
			}
			wm.ToolCalls = append(wm.ToolCalls, tc)
		}
		out = append(out, wm)
	}
	return out
}
