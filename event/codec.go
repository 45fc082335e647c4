package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidJSON is returned when event data is not valid JSON.
var ErrInvalidJSON = errors.New("event: invalid JSON")

// ErrMissingType is returned when event data has no "type" field.
var ErrMissingType = errors.New("event: missing type")

// Decode parses one AG-UI event from its JSON form.
//
// Field meaning depends on the type: "delta" is a string fragment for text
// and tool events but a JSON Patch for STATE_DELTA and ACTIVITY_DELTA;
// "content" is a string for messages and results but an object for
// ACTIVITY_SNAPSHOT. Unknown fields are ignored.
func Decode(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return Event{}, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	typ := doc.Get("type")
	if typ.String() == "" {
		return Event{}, ErrMissingType
	}

	e := Event{
		Type:            Type(typ.String()),
		Timestamp:       doc.Get("timestamp").Int(),
		ThreadID:        doc.Get("threadId").String(),
		RunID:           doc.Get("runId").String(),
		ParentRunID:     doc.Get("parentRunId").String(),
		MessageID:       doc.Get("messageId").String(),
		Role:            doc.Get("role").String(),
		ToolCallID:      doc.Get("toolCallId").String(),
		ToolCallName:    doc.Get("toolCallName").String(),
		ParentMessageID: doc.Get("parentMessageId").String(),
		Name:            doc.Get("name").String(),
		Message:         doc.Get("message").String(),
		Code:            doc.Get("code").String(),
		ActivityType:    doc.Get("activityType").String(),
	}

	switch e.Type {
	case StateDelta, ActivityDelta:
		if d := doc.Get("delta"); d.IsArray() {
			if err := json.Unmarshal([]byte(d.Raw), &e.Patches); err != nil {
				return Event{}, fmt.Errorf("event: decode %s patch: %w", e.Type, err)
			}
		}
	default:
		e.Delta = doc.Get("delta").String()
	}

	if c := doc.Get("content"); c.Exists() {
		switch {
		case c.Type == gjson.String:
			s := c.String()
			e.Content = &s
		case e.Type == ActivitySnapshot:
			e.Activity = c.Value()
		default:
			// Non-string result content keeps its JSON text.
			s := c.Raw
			e.Content = &s
		}
	}
	if s := doc.Get("snapshot"); s.Exists() {
		e.Snapshot = s.Value()
	}
	if v := doc.Get("value"); v.Exists() {
		e.Value = v.Value()
	}
	if r := doc.Get("result"); r.Exists() {
		e.Result = r.Value()
	}
	if r := doc.Get("event"); r.Exists() && e.Type == Raw {
		e.Value = r.Value()
	}
	if msgs := doc.Get("messages"); msgs.IsArray() {
		e.Messages = decodeMessages(msgs)
	}
	return e, nil
}

func decodeMessages(msgs gjson.Result) []Message {
	var out []Message
	msgs.ForEach(func(_, m gjson.Result) bool {
		msg := Message{
			ID:         m.Get("id").String(),
			Role:       m.Get("role").String(),
			Name:       m.Get("name").String(),
			ToolCallID: m.Get("toolCallId").String(),
		}
		if c := m.Get("content"); c.Type == gjson.String {
			msg.Content = c.String()
		} else if c.Exists() && c.Type != gjson.Null {
			msg.Structured = c.Value()
		}
		m.Get("toolCalls").ForEach(func(_, tc gjson.Result) bool {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:        tc.Get("id").String(),
				Name:      tc.Get("function.name").String(),
				Arguments: tc.Get("function.arguments").String(),
			})
			return true
		})
		out = append(out, msg)
		return true
	})
	return out
}

// UnmarshalJSON implements json.Unmarshaler using Decode.
func (e *Event) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// MarshalJSON encodes the event with AG-UI field names. Empty fields are
// omitted. Local-only fields (IsError, FollowUp) are not encoded.
func (e Event) MarshalJSON() ([]byte, error) {
	out := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, path, v)
	}
	setString := func(path, v string) {
		if v != "" {
			set(path, v)
		}
	}

	set("type", string(e.Type))
	if e.Timestamp != 0 {
		set("timestamp", e.Timestamp)
	}
	setString("threadId", e.ThreadID)
	setString("runId", e.RunID)
	setString("parentRunId", e.ParentRunID)
	setString("messageId", e.MessageID)
	setString("role", e.Role)
	setString("toolCallId", e.ToolCallID)
	setString("toolCallName", e.ToolCallName)
	setString("parentMessageId", e.ParentMessageID)
	setString("name", e.Name)
	setString("message", e.Message)
	setString("code", e.Code)
	setString("activityType", e.ActivityType)

	switch {
	case len(e.Patches) > 0:
		set("delta", e.Patches)
	case e.Delta != "":
		set("delta", e.Delta)
	}
	if e.Content != nil {
		set("content", *e.Content)
	} else if e.Activity != nil {
		set("content", e.Activity)
	}
	if e.Snapshot != nil {
		set("snapshot", e.Snapshot)
	}
	if e.Value != nil {
		set("value", e.Value)
	}
	if e.Result != nil {
		set("result", e.Result)
	}
	if len(e.Messages) > 0 {
		set("messages", encodeMessages(e.Messages))
	}
	if err != nil {
		return nil, fmt.Errorf("event: encode %s: %w", e.Type, err)
	}
	return out, nil
}

func encodeMessages(msgs []Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		wire := map[string]any{"id": m.ID, "role": m.Role}
		switch {
		case m.Structured != nil:
			wire["content"] = m.Structured
		case m.Content != "":
			wire["content"] = m.Content
		}
		if m.Name != "" {
			wire["name"] = m.Name
		}
		if m.ToolCallID != "" {
			wire["toolCallId"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]any, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				calls[i] = map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": tc.Arguments,
					},
				}
			}
			wire["toolCalls"] = calls
		}
		out = append(out, wire)
	}
	return out
}

// Reader decodes a recorded event stream. It accepts both JSON Lines and
// Server-Sent Events framing ("data: {...}" lines); SSE "event:", "id:" and
// comment lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{scanner: s}
}

// Next returns the next event, or io.EOF at the end of input.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		text := string(line)
		switch {
		case strings.HasPrefix(text, "data:"):
			line = bytes.TrimSpace(line[len("data:"):])
		case strings.HasPrefix(text, "event:"), strings.HasPrefix(text, "id:"),
			strings.HasPrefix(text, "retry:"), strings.HasPrefix(text, ":"):
			continue
		}
		e, err := Decode(line)
		if err != nil {
			return Event{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return e, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
