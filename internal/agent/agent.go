// Package agent runs an LLM-driven tool loop: send the conversation, execute
// the function calls the model asks for, feed the results back, and stop at
// the first plain-text answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/agent/memory"
)

const DefaultMaxSteps = 10

var ErrMaxSteps = errors.New("agent: step limit reached without a final answer")

// Turn is one persisted message of a conversation. Role is "user" or
// "assistant".
type Turn struct {
	Role string
	Text string
}

type Agent struct {
	Name        string
	Description string
	Instruction string
	Model       Model
	Tools       []Tool
	MaxSteps    int

	// Memory, when set with PreloadMemory, is searched with the prompt and
	// the hits are appended to the instruction before the first call.
	Memory        memory.Searcher
	PreloadMemory bool
}

func (a *Agent) Run(ctx context.Context, history []Turn, prompt string) (string, error) {
	if a.Model == nil {
		return "", fmt.Errorf("agent %s: no model configured", a.Name)
	}
	log := zerolog.Ctx(ctx).With().Str("agent", a.Name).Logger()

	tools := make(map[string]Tool, len(a.Tools))
	decls := make([]FunctionDeclaration, 0, len(a.Tools))
	for _, t := range a.Tools {
		d := t.Declaration()
		tools[d.Name] = t
		decls = append(decls, d)
	}

	contents := make([]Content, 0, len(history)+1)
	for _, turn := range history {
		if turn.Role == "assistant" {
			contents = append(contents, ModelText(turn.Text))
		} else {
			contents = append(contents, UserText(turn.Text))
		}
	}
	contents = append(contents, UserText(prompt))

	req := &Request{
		SystemInstruction: a.instruction(ctx, log, prompt),
		Contents:          contents,
		Tools:             decls,
	}

	steps := a.MaxSteps
	if steps <= 0 {
		steps = DefaultMaxSteps
	}
	for step := 0; step < steps; step++ {
		resp, err := a.Model.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", a.Name, err)
		}
		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			return resp.Content.Text(), nil
		}

		modelTurn := resp.Content
		modelTurn.Role = RoleModel
		req.Contents = append(req.Contents, modelTurn)

		parts := make([]Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, Part{FunctionResponse: &FunctionResponse{
				Name:     call.Name,
				Response: a.call(ctx, log, tools, call),
			}})
		}
		req.Contents = append(req.Contents, Content{Role: RoleUser, Parts: parts})
	}
	return "", ErrMaxSteps
}

// call runs one tool. Failures are reported to the model, not to the caller.
func (a *Agent) call(ctx context.Context, log zerolog.Logger, tools map[string]Tool, call FunctionCall) map[string]any {
	tool, ok := tools[call.Name]
	if !ok {
		log.Warn().Str("tool", call.Name).Msg("model called unknown tool")
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	}
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	out, err := tool.Call(ctx, args)
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Name).Msg("tool call failed")
		return map[string]any{"error": err.Error()}
	}
	log.Debug().Str("tool", call.Name).Msg("tool call")
	if out == nil {
		out = map[string]any{}
	}
	return out
}

func (a *Agent) instruction(ctx context.Context, log zerolog.Logger, prompt string) string {
	if !a.PreloadMemory || a.Memory == nil {
		return a.Instruction
	}
	inv := InvocationFrom(ctx)
	if inv.UserID == "" {
		return a.Instruction
	}
	entries, err := a.Memory.Search(ctx, inv.AppName, inv.UserID, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("preload memory failed")
		return a.Instruction
	}
	if len(entries) == 0 {
		return a.Instruction
	}

	var b strings.Builder
	b.WriteString(a.Instruction)
	b.WriteString("\n\nThe following content is from your previous conversations with the user.\n")
	b.WriteString("They may be useful for answering the user's current query.\n<PAST_CONVERSATIONS>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s: %s\n", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Author, e.Text)
	}
	b.WriteString("</PAST_CONVERSATIONS>")
	return b.String()
}
