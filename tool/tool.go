package tool

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Wildcard matches any agent (in Key.AgentID) or any tool name (in Key.Name).
const Wildcard = "*"

// Key identifies a registration. An empty AgentID is normalized to Wildcard,
// meaning the registration applies to every agent.
type Key struct {
	AgentID string
	Name    string
}

// KeyFor returns the normalized key for a tool name and optional agent id.
func KeyFor(name, agentID string) Key {
	if agentID == "" {
		agentID = Wildcard
	}
	return Key{AgentID: agentID, Name: name}
}

// String returns "agent/name".
func (k Key) String() string {
	return k.AgentID + "/" + k.Name
}

// Tool is a frontend-executable tool: a name the agent can call, an optional
// local handler, and an optional renderer for the call.
type Tool struct {
	// Name is the tool name the agent uses in TOOL_CALL_START.
	Name string

	// AgentID scopes the tool to one agent. Empty means every agent.
	AgentID string

	Description string

	// Parameters is the JSON Schema for the arguments object. It is compiled
	// when the tool is registered.
	Parameters json.RawMessage

	// Handler runs the tool locally. A tool without a handler is render-only.
	Handler Handler

	// Render, when set, is registered as the tool's renderer.
	Render RenderFunc

	// FollowUp controls whether the agent is asked for another turn after
	// the handler's result. Nil means true.
	FollowUp *bool

	schema *jsonschema.Schema
}

// Key returns the registration key of t.
func (t Tool) Key() Key {
	return KeyFor(t.Name, t.AgentID)
}

// FollowUpEnabled reports whether a result from t should trigger a follow-up
// agent turn.
func (t Tool) FollowUpEnabled() bool {
	return t.FollowUp == nil || *t.FollowUp
}

// Bool returns a pointer to b, for Tool.FollowUp.
func Bool(b bool) *bool {
	return &b
}
