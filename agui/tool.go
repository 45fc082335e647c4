package agui

import (
	"encoding/json"

	"github.com/spetersoncode/aguikit/tool"
)

// Tool is a frontend tool definition as sent to the agent in RunAgentInput.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FromTools converts the registered tools an agent may call to AG-UI tool
// definitions. Tools scoped to other agents are skipped, and an
// agent-scoped tool hides a global tool of the same name.
func FromTools(agentID string, tools []tool.Tool) []Tool {
	if len(tools) == 0 {
		return nil
	}

	scoped := make(map[string]bool)
	for _, t := range tools {
		if t.AgentID != "" && t.AgentID == agentID {
			scoped[t.Name] = true
		}
	}

	var result []Tool
	for _, t := range tools {
		switch {
		case t.AgentID != "" && t.AgentID != agentID:
			continue
		case t.AgentID == "" && scoped[t.Name]:
			continue
		}
		result = append(result, Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return result
}

// ParseTools parses a slice of any (from JSON unmarshaling) into Tool structs.
func ParseTools(raw []any) ([]Tool, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	// Re-marshal and unmarshal to get proper typing
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var tools []Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, err
	}

	return tools, nil
}

// ToolNames extracts the names from a slice of tools.
func ToolNames(tools []Tool) []string {
	if len(tools) == 0 {
		return nil
	}

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
