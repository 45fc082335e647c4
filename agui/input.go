package agui

import (
	"encoding/json"
	"errors"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/spetersoncode/aguikit/reducer"
)

// RunAgentInput is the AG-UI request body the frontend sends to start an
// agent run. It is transport-agnostic.
type RunAgentInput struct {
	ThreadID       string           `json:"threadId"`
	RunID          string           `json:"runId"`
	Messages       []events.Message `json:"messages"`
	Tools          []Tool           `json:"tools"`
	Context        []any            `json:"context"`
	State          any              `json:"state,omitempty"`
	ForwardedProps any              `json:"forwardedProps,omitempty"`
}

// ErrNoThreadID is returned when the input has no thread id.
var ErrNoThreadID = errors.New("agui: no thread id provided")

// NewRunAgentInput builds the request for the next run of a thread from its
// current snapshot. An empty runID is generated.
func NewRunAgentInput(snap *reducer.Snapshot, runID string, tools []Tool) RunAgentInput {
	if runID == "" {
		runID = events.GenerateRunID()
	}
	if tools == nil {
		tools = []Tool{}
	}
	return RunAgentInput{
		ThreadID: snap.Key.ThreadID,
		RunID:    runID,
		Messages: FromMessages(snap.WireMessages()),
		Tools:    tools,
		Context:  []any{},
		State:    snap.State,
	}
}

// Validate checks the fields an agent needs.
func (r *RunAgentInput) Validate() error {
	if r.ThreadID == "" {
		return ErrNoThreadID
	}
	return nil
}

// DecodeState decodes raw state into a typed struct.
// Returns the zero value of T if state is nil.
func DecodeState[T any](state any) (T, error) {
	var result T
	if state == nil {
		return result, nil
	}

	// Re-marshal and unmarshal to get proper typing
	data, err := json.Marshal(state)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}

	return result, nil
}
