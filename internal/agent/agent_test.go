package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthline/healthline/internal/agent/memory"
	"github.com/healthline/healthline/internal/platform/auth"
)

// scriptedModel replays responses in order and records every request.
type scriptedModel struct {
	mu        sync.Mutex
	responses []Content
	err       error
	requests  []*Request
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(_ context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *req
	snapshot.Contents = append([]Content(nil), req.Contents...)
	m.requests = append(m.requests, &snapshot)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &Response{Content: ModelText("")}, nil
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return &Response{Content: next}, nil
}

func callPart(name string, args map[string]any) Content {
	return Content{Role: RoleModel, Parts: []Part{{FunctionCall: &FunctionCall{Name: name, Args: args}}}}
}

func TestRun_TextOnly(t *testing.T) {
	m := &scriptedModel{responses: []Content{ModelText("hello there")}}
	a := &Agent{Name: "a", Instruction: "be nice", Model: m}

	out, err := a.Run(context.Background(), []Turn{{Role: "user", Text: "hi"}, {Role: "assistant", Text: "hey"}}, "how are you")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	require.Len(t, m.requests, 1)
	req := m.requests[0]
	assert.Equal(t, "be nice", req.SystemInstruction)
	require.Len(t, req.Contents, 3)
	assert.Equal(t, RoleUser, req.Contents[0].Role)
	assert.Equal(t, RoleModel, req.Contents[1].Role)
	assert.Equal(t, "how are you", req.Contents[2].Text())
}

func TestRun_ExecutesToolCalls(t *testing.T) {
	var gotArgs map[string]any
	echoTool := NewFuncTool("echo", "echo args", &Schema{Type: TypeObject},
		func(_ context.Context, args map[string]any) (map[string]any, error) {
			gotArgs = args
			return map[string]any{"echoed": args["word"]}, nil
		})
	failing := NewFuncTool("fail", "always fails", nil,
		func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		})

	m := &scriptedModel{responses: []Content{
		{Role: RoleModel, Parts: []Part{
			{FunctionCall: &FunctionCall{Name: "echo", Args: map[string]any{"word": "ping"}}},
			{FunctionCall: &FunctionCall{Name: "fail"}},
			{FunctionCall: &FunctionCall{Name: "missing"}},
		}},
		ModelText("done"),
	}}
	a := &Agent{Name: "a", Model: m, Tools: []Tool{echoTool, failing}}

	out, err := a.Run(context.Background(), nil, "go")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, "ping", gotArgs["word"])

	require.Len(t, m.requests, 2)
	assert.Len(t, m.requests[0].Tools, 2)
	second := m.requests[1].Contents
	require.Len(t, second, 3)
	responses := second[2].Parts
	require.Len(t, responses, 3)
	assert.Equal(t, map[string]any{"echoed": "ping"}, responses[0].FunctionResponse.Response)
	assert.Equal(t, "boom", responses[1].FunctionResponse.Response["error"])
	assert.Contains(t, responses[2].FunctionResponse.Response["error"], "unknown tool")
}

func TestRun_MaxSteps(t *testing.T) {
	loop := make([]Content, 5)
	for i := range loop {
		loop[i] = callPart("identify_user", nil)
	}
	m := &scriptedModel{responses: loop}
	a := &Agent{Name: "a", Model: m, Tools: []Tool{IdentifyUserTool()}, MaxSteps: 3}

	_, err := a.Run(context.Background(), nil, "loop")
	assert.ErrorIs(t, err, ErrMaxSteps)
	assert.Len(t, m.requests, 3)
}

func TestRun_ModelError(t *testing.T) {
	a := &Agent{Name: "a", Model: &scriptedModel{err: errors.New("unavailable")}}
	_, err := a.Run(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestIdentifyUserTool(t *testing.T) {
	ctx := auth.WithCaller(context.Background(), auth.NewCaller("jane.doe", "Jane Doe", "patient"))
	out, err := IdentifyUserTool().Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status": "success", "user_name": "jane.doe", "full_name": "Jane Doe", "role": "patient",
	}, out)

	out, err = IdentifyUserTool().Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "guest_user", out["user_name"])
	assert.Equal(t, "guest", out["role"])
}

func TestAgentTool_RunsSubAgent(t *testing.T) {
	sub := &Agent{Name: "db_assistant", Description: "records", Model: &scriptedModel{responses: []Content{ModelText("created patient 7")}}}
	tool := NewAgentTool(sub)

	decl := tool.Declaration()
	assert.Equal(t, "db_assistant", decl.Name)
	assert.Equal(t, []string{"request"}, decl.Parameters.Required)

	out, err := tool.Call(context.Background(), map[string]any{"request": "create a patient"})
	require.NoError(t, err)
	assert.Equal(t, "created patient 7", out["result"])

	_, err = tool.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestPreloadMemory(t *testing.T) {
	mem := memory.NewInMemory()
	ctx := context.Background()
	require.NoError(t, mem.AddSession(ctx, memory.Session{
		AppName: ConciergeApp, UserID: "jane", ID: "old",
		Entries: []memory.Entry{{Author: "user", Text: "I am allergic to penicillin", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}},
	}))

	m := &scriptedModel{responses: []Content{ModelText("noted")}}
	a := &Agent{Name: "a", Instruction: "base", Model: m, Memory: mem, PreloadMemory: true}

	ctx = WithInvocation(ctx, Invocation{AppName: ConciergeApp, UserID: "jane", SessionID: "new"})
	_, err := a.Run(ctx, nil, "can I take penicillin?")
	require.NoError(t, err)

	instr := m.requests[0].SystemInstruction
	assert.True(t, strings.HasPrefix(instr, "base"))
	assert.Contains(t, instr, "allergic to penicillin")

	// other users see nothing
	m2 := &scriptedModel{responses: []Content{ModelText("ok")}}
	a.Model = m2
	_, err = a.Run(WithInvocation(context.Background(), Invocation{AppName: ConciergeApp, UserID: "bob"}), nil, "penicillin")
	require.NoError(t, err)
	assert.Equal(t, "base", m2.requests[0].SystemInstruction)
}

func TestLoadMemoryTool(t *testing.T) {
	mem := memory.NewInMemory()
	ctx := context.Background()
	require.NoError(t, mem.AddSession(ctx, memory.Session{
		AppName: DoctorApp, UserID: "drwho", ID: "s",
		Entries: []memory.Entry{{Author: "user", Text: "patient 4 has asthma"}},
	}))

	ctx = WithInvocation(ctx, Invocation{AppName: DoctorApp, UserID: "drwho"})
	out, err := LoadMemoryTool(mem).Call(ctx, map[string]any{"query": "asthma"})
	require.NoError(t, err)
	memories, ok := out["memories"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, memories, 1)
	assert.Equal(t, "patient 4 has asthma", memories[0]["text"])
}

func TestPersonas(t *testing.T) {
	cfg := PersonaConfig{Model: &scriptedModel{}, Memory: memory.NewInMemory(), MaxSteps: 4}
	for _, build := range []func(PersonaConfig) (*Agent, error){NewConcierge, NewDoctorAssistant} {
		a, err := build(cfg)
		require.NoError(t, err)
		assert.NotEmpty(t, a.Instruction)
		assert.True(t, a.PreloadMemory)

		var names []string
		for _, tool := range a.Tools {
			names = append(names, tool.Declaration().Name)
		}
		assert.ElementsMatch(t, []string{"identify_user", "db_assistant", "load_memory"}, names)
	}
}
