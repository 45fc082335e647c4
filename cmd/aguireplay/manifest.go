package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spetersoncode/aguikit/tool"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Manifest describes the frontend tools to register for a replay. Each tool
// answers with a canned result, so recorded streams can be replayed without
// the real frontend.
//
//	agent: weather
//	tools:
//	  - name: getWeather
//	    parameters:
//	      type: object
//	      properties:
//	        location: {type: string}
//	    result: {temperature: 22}
//	    delay: 200ms
//	renderers:
//	  - name: "*"
//	    label: tool
type Manifest struct {
	Agent     string         `yaml:"agent"`
	Tools     []ToolSpec     `yaml:"tools"`
	Renderers []RendererSpec `yaml:"renderers"`
}

// ToolSpec is one tool entry of a manifest.
type ToolSpec struct {
	Name        string         `yaml:"name"`
	Agent       string         `yaml:"agent"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`

	// Result is returned as is.
	Result any `yaml:"result"`
	// Echo is a gjson path into the call arguments whose value is returned
	// instead of Result.
	Echo string `yaml:"echo"`
	// Error makes the handler fail with this message.
	Error string        `yaml:"error"`
	Delay time.Duration `yaml:"delay"`

	FollowUp *bool `yaml:"followUp"`
}

// RendererSpec is one static renderer entry. The renderer prints Label
// followed by the call's name and status.
type RendererSpec struct {
	Name  string `yaml:"name"`
	Agent string `yaml:"agent"`
	Label string `yaml:"label"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, t := range m.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("manifest: tool %d has no name", i)
		}
	}
	return &m, nil
}

// ToolDefs converts the tool entries to registrations.
func (m *Manifest) ToolDefs() ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(m.Tools))
	for _, spec := range m.Tools {
		var params json.RawMessage
		if spec.Parameters != nil {
			data, err := json.Marshal(spec.Parameters)
			if err != nil {
				return nil, fmt.Errorf("manifest: tool %s parameters: %w", spec.Name, err)
			}
			params = data
		}
		tools = append(tools, tool.Tool{
			Name:        spec.Name,
			AgentID:     spec.Agent,
			Description: spec.Description,
			Parameters:  params,
			Handler:     spec.handler(),
			FollowUp:    spec.FollowUp,
		})
	}
	return tools, nil
}

// RendererDefs converts the renderer entries to static registrations.
func (m *Manifest) RendererDefs() []tool.RendererRegistration {
	list := make([]tool.RendererRegistration, 0, len(m.Renderers))
	for _, spec := range m.Renderers {
		label := spec.Label
		if label == "" {
			label = "tool"
		}
		list = append(list, tool.RendererRegistration{
			Name:    spec.Name,
			AgentID: spec.Agent,
			Render: func(p tool.RenderProps) any {
				return fmt.Sprintf("[%s] %s %s", label, p.Name, p.Status)
			},
		})
	}
	return list
}

func (s ToolSpec) handler() tool.Handler {
	return func(ctx context.Context, call tool.Call) (any, error) {
		if s.Delay > 0 {
			select {
			case <-time.After(s.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if s.Error != "" {
			return nil, errors.New(s.Error)
		}
		if s.Echo != "" {
			return gjson.Get(call.ArgsRaw, s.Echo).Value(), nil
		}
		return s.Result, nil
	}
}
