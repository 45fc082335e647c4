package tool

import (
	ai "github.com/spetersoncode/aguikit"
)

// RenderProps is what a renderer sees of a tool call. Output of a renderer is
// opaque to this package.
type RenderProps struct {
	ToolCallID string
	Name       string
	AgentID    string

	// Args is the best-effort parse of the arguments streamed so far.
	Args     map[string]any
	ArgsDone bool
	Status   ai.Status

	// Result is set once Status is complete.
	Result  string
	IsError bool
}

// PropsFor builds the render props for a tool call issued by agentID.
func PropsFor(agentID string, c *ai.ToolCall) RenderProps {
	return RenderProps{
		ToolCallID: c.ID,
		Name:       c.Name,
		AgentID:    agentID,
		Args:       c.ArgsMap(),
		ArgsDone:   c.ArgsDone,
		Status:     c.Status,
		Result:     c.Result,
		IsError:    c.IsError,
	}
}

// RenderFunc produces the UI for a tool call.
type RenderFunc func(props RenderProps) any

// RendererRegistration binds a RenderFunc to a tool name and agent. Name may
// be Wildcard to match every tool; an empty AgentID matches every agent.
type RendererRegistration struct {
	Name    string
	AgentID string
	Render  RenderFunc
}

// Key returns the registration key of rr.
func (rr RendererRegistration) Key() Key {
	return KeyFor(rr.Name, rr.AgentID)
}

// RegisterRenderer adds or replaces a renderer in the dynamic layer.
func (r *Registry) RegisterRenderer(rr RendererRegistration) error {
	if rr.Name == "" {
		return ErrEmptyName
	}
	key := rr.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dynamic[key]; exists {
		r.logger.Warn("tool: replacing registered renderer", "tool", rr.Name, "agent_id", key.AgentID)
	}
	r.dynamic[key] = rr
	delete(r.fromTool, key)
	return nil
}

// UnregisterRenderer removes a renderer from the dynamic layer. Reports
// whether one was removed.
func (r *Registry) UnregisterRenderer(name, agentID string) bool {
	key := KeyFor(name, agentID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dynamic[key]; !ok {
		return false
	}
	delete(r.dynamic, key)
	delete(r.fromTool, key)
	return true
}

// SetRenderers replaces the static renderer layer. For duplicate keys the
// later entry wins. Entries without a name are skipped.
func (r *Registry) SetRenderers(list []RendererRegistration) {
	static := make(map[Key]RendererRegistration, len(list))
	for _, rr := range list {
		if rr.Name == "" {
			continue
		}
		static[rr.Key()] = rr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.static = static
}

// ResolveRenderer picks the renderer for a call to name from agentID.
//
// Candidates are tried from most to least specific: (agent, name),
// (any agent, name), (agent, any tool), (any agent, any tool). At each level
// a dynamic registration wins over the static list.
func (r *Registry) ResolveRenderer(name, agentID string) (RendererRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range candidateKeys(name, agentID) {
		if rr, ok := r.dynamic[key]; ok {
			return rr, true
		}
		if rr, ok := r.static[key]; ok {
			return rr, true
		}
	}
	return RendererRegistration{}, false
}

func candidateKeys(name, agentID string) []Key {
	scoped := agentID != "" && agentID != Wildcard
	keys := make([]Key, 0, 4)
	if scoped {
		keys = append(keys, Key{AgentID: agentID, Name: name})
	}
	keys = append(keys, Key{AgentID: Wildcard, Name: name})
	if scoped {
		keys = append(keys, Key{AgentID: agentID, Name: Wildcard})
	}
	return append(keys, Key{AgentID: Wildcard, Name: Wildcard})
}
