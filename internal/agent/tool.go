package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool is a function the model may call.
type Tool interface {
	Declaration() FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

type HandlerFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

type FuncTool struct {
	decl FunctionDeclaration
	fn   HandlerFunc
}

func NewFuncTool(name, description string, params *Schema, fn HandlerFunc) *FuncTool {
	return &FuncTool{
		decl: FunctionDeclaration{Name: name, Description: description, Parameters: params},
		fn:   fn,
	}
}

func (t *FuncTool) Declaration() FunctionDeclaration { return t.decl }

func (t *FuncTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, args)
}

// AgentTool exposes a sub-agent as a single tool taking a free-text request.
// The sub-agent sees no prior history, only the request.
type AgentTool struct {
	agent *Agent
}

func NewAgentTool(a *Agent) *AgentTool { return &AgentTool{agent: a} }

func (t *AgentTool) Declaration() FunctionDeclaration {
	return FunctionDeclaration{
		Name:        t.agent.Name,
		Description: t.agent.Description,
		Parameters: &Schema{
			Type: TypeObject,
			Properties: map[string]*Schema{
				"request": {Type: TypeString, Description: "What the assistant should do, with every detail it needs."},
			},
			Required: []string{"request"},
		},
	}
}

func (t *AgentTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	request, _ := args["request"].(string)
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("%s: request is required", t.agent.Name)
	}
	text, err := t.agent.Run(ctx, nil, request)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": text}, nil
}

// ToMap converts a JSON-serializable value into the generic object shape
// tool responses use.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
