package agui

import (
	"encoding/json"

	"github.com/spetersoncode/aguikit/tool"
)

// ResponseInput is the user's answer to a human-in-the-loop tool call, as
// posted by the UI.
type ResponseInput struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result,omitempty"`
	Cancelled  bool            `json:"cancelled,omitempty"`
}

// ParseResponseInput parses a response from JSON.
func ParseResponseInput(data []byte) (*ResponseInput, error) {
	var input ResponseInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Value returns the result handed to the waiting handler. A string result is
// unwrapped; any other JSON is passed through unchanged. A cancelled response
// becomes {"cancelled":true}.
func (r *ResponseInput) Value() any {
	if r.Cancelled {
		return map[string]any{"cancelled": true}
	}
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return r.Result
}

// HandleResponse delivers a response to the broker.
func HandleResponse(broker *tool.ResponseBroker, input *ResponseInput) error {
	return broker.Respond(input.ToolCallID, input.Value())
}

// HandleResponseJSON processes a JSON-encoded response.
func HandleResponseJSON(broker *tool.ResponseBroker, data []byte) error {
	input, err := ParseResponseInput(data)
	if err != nil {
		return err
	}
	return HandleResponse(broker, input)
}
