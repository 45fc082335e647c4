package agui

import (
	"context"
	"encoding/json"
	"testing"

	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/reducer"
	"github.com/spetersoncode/aguikit/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageConversion(t *testing.T) {
	msgs := []event.Message{
		{ID: "u1", Role: "user", Content: "Weather in Paris?"},
		{ID: "a1", Role: "assistant", ToolCalls: []event.ToolCall{
			{ID: "tc1", Name: "getWeather", Arguments: `{"location":"Paris"}`},
		}},
		{ID: "r1", Role: "tool", ToolCallID: "tc1", Content: "sunny"},
	}

	wire := FromMessages(msgs)
	require.Len(t, wire, 3)

	t.Run("content", func(t *testing.T) {
		require.NotNil(t, wire[0].Content)
		assert.Equal(t, "Weather in Paris?", *wire[0].Content)
		assert.Nil(t, wire[1].Content)
	})

	t.Run("tool calls", func(t *testing.T) {
		require.Len(t, wire[1].ToolCalls, 1)
		assert.Equal(t, "function", wire[1].ToolCalls[0].Type)
		assert.Equal(t, "getWeather", wire[1].ToolCalls[0].Function.Name)
	})

	t.Run("tool result", func(t *testing.T) {
		require.NotNil(t, wire[2].ToolCallID)
		assert.Equal(t, "tc1", *wire[2].ToolCallID)
	})

	t.Run("round trip", func(t *testing.T) {
		assert.Equal(t, msgs, ToMessages(wire))
	})

	t.Run("structured content is sent as JSON", func(t *testing.T) {
		m := FromMessage(event.Message{ID: "x", Role: "activity", Structured: map[string]any{"a": 1}})
		require.NotNil(t, m.Content)
		assert.JSONEq(t, `{"a":1}`, *m.Content)
	})
}

func TestFromTools(t *testing.T) {
	noop := func(ctx context.Context, call tool.Call) (any, error) { return nil, nil }
	tools := []tool.Tool{
		{Name: "search", Description: "global search", Handler: noop},
		{Name: "search", AgentID: "docs", Description: "docs search"},
		{Name: "chart", AgentID: "bi"},
		{Name: "clock", Parameters: json.RawMessage(`{"type":"object"}`)},
	}

	t.Run("agent-scoped hides global", func(t *testing.T) {
		got := FromTools("docs", tools)
		assert.Equal(t, []string{"search", "clock"}, ToolNames(got))
		assert.Equal(t, "docs search", got[0].Description)
	})

	t.Run("other agents see the global tool", func(t *testing.T) {
		got := FromTools("weather", tools)
		assert.Equal(t, []string{"search", "clock"}, ToolNames(got))
		assert.Equal(t, "global search", got[0].Description)
		assert.JSONEq(t, `{"type":"object"}`, string(got[1].Parameters))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, FromTools("x", nil))
	})
}

func TestParseTools(t *testing.T) {
	raw := []any{
		map[string]any{"name": "getWeather", "description": "Get weather", "parameters": map[string]any{"type": "object"}},
	}
	tools, err := ParseTools(raw)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "getWeather", tools[0].Name)
	assert.JSONEq(t, `{"type":"object"}`, string(tools[0].Parameters))

	none, err := ParseTools(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNewRunAgentInput(t *testing.T) {
	key := ai.ThreadKey{AgentID: "weather", ThreadID: "thread-1"}
	snap := reducer.New(key)
	for _, e := range []event.Event{
		event.NewTextMessageChunk("u1", "user", "hi"),
		event.NewStateSnapshot(map[string]any{"city": "Paris"}),
	} {
		snap = reducer.Reduce(snap, e)
	}

	input := NewRunAgentInput(snap, "run-2", nil)
	require.NoError(t, input.Validate())
	assert.Equal(t, "thread-1", input.ThreadID)
	assert.Equal(t, "run-2", input.RunID)
	require.Len(t, input.Messages, 1)
	assert.Equal(t, "user", input.Messages[0].Role)
	assert.NotNil(t, input.Tools)

	data, err := json.Marshal(input)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"threadId":"thread-1"`)

	t.Run("generates run id", func(t *testing.T) {
		assert.NotEmpty(t, NewRunAgentInput(snap, "", nil).RunID)
	})

	t.Run("missing thread", func(t *testing.T) {
		bad := RunAgentInput{}
		assert.ErrorIs(t, bad.Validate(), ErrNoThreadID)
	})

	t.Run("decode state", func(t *testing.T) {
		type cityState struct {
			City string `json:"city"`
		}
		st, err := DecodeState[cityState](input.State)
		require.NoError(t, err)
		assert.Equal(t, "Paris", st.City)

		zero, err := DecodeState[cityState](nil)
		require.NoError(t, err)
		assert.Equal(t, cityState{}, zero)
	})
}
