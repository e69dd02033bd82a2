package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/healthline/healthline/internal/agent"
	"github.com/healthline/healthline/internal/agent/memory"
	"github.com/healthline/healthline/internal/platform/auth"
)

type fakeEngine struct {
	reply     string
	err       error
	histories [][]agent.Turn
	callers   []auth.Caller
	invs      []agent.Invocation
}

func (f *fakeEngine) Run(ctx context.Context, history []agent.Turn, prompt string) (string, error) {
	f.histories = append(f.histories, history)
	f.callers = append(f.callers, auth.CallerFromContext(ctx))
	f.invs = append(f.invs, agent.InvocationFrom(ctx))
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "echo: " + prompt, nil
}

type fakeResolver map[string]auth.Caller

func (r fakeResolver) ResolveCaller(_ context.Context, username string) (auth.Caller, error) {
	if c, ok := r[username]; ok {
		return c, nil
	}
	return auth.GuestCaller(), nil
}

type recordingMemory struct {
	*memory.InMemory
	added []memory.Session
	err   error
}

func (m *recordingMemory) AddSession(ctx context.Context, s memory.Session) error {
	m.added = append(m.added, s)
	if m.err != nil {
		return m.err
	}
	return m.InMemory.AddSession(ctx, s)
}

func newTestBridge(engine Engine, mem memory.Service) *Bridge {
	resolver := fakeResolver{"jane.doe": auth.NewCaller("jane.doe", "Jane Doe", auth.RolePatient)}
	b := NewBridge(Concierge, NewMemStore(), engine, mem, resolver)
	n := 0
	b.newID = func() string {
		n++
		return fmt.Sprintf("sess-%d", n)
	}
	return b
}

func TestAsk_SharedSessionHistory(t *testing.T) {
	b := newTestBridge(&fakeEngine{}, nil)
	ctx := context.Background()

	first, err := b.Ask(ctx, AskInput{Prompt: "hello"})
	if err != nil {
		t.Fatalf("first ask: %v", err)
	}
	second, err := b.Ask(ctx, AskInput{Prompt: "again", SessionID: first.SessionID})
	if err != nil {
		t.Fatalf("second ask: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("session changed: %q -> %q", first.SessionID, second.SessionID)
	}

	want := []HistoryItem{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "echo: hello"},
		{Role: RoleUser, Content: "again"},
		{Role: RoleAssistant, Content: "echo: again"},
	}
	if len(second.History) != len(want) {
		t.Fatalf("expected %d history items, got %d", len(want), len(second.History))
	}
	for i, w := range want {
		got := second.History[i]
		if got.Role != w.Role || got.Content != w.Content {
			t.Errorf("history[%d] = %+v, want %+v", i, got, w)
		}
		if i > 0 && got.Timestamp.Before(second.History[i-1].Timestamp) {
			t.Errorf("history[%d] out of order", i)
		}
	}
}

func TestAsk_PassesPriorHistoryAndInvocation(t *testing.T) {
	eng := &fakeEngine{}
	b := newTestBridge(eng, nil)
	ctx := context.Background()

	first, _ := b.Ask(ctx, AskInput{Prompt: "one", UserName: "jane.doe"})
	if _, err := b.Ask(ctx, AskInput{Prompt: "two", SessionID: first.SessionID, UserName: "jane.doe"}); err != nil {
		t.Fatal(err)
	}

	if len(eng.histories[0]) != 0 {
		t.Errorf("first run should see no history, got %v", eng.histories[0])
	}
	if len(eng.histories[1]) != 2 || eng.histories[1][0].Text != "one" || eng.histories[1][1].Role != RoleAssistant {
		t.Errorf("unexpected prior history: %+v", eng.histories[1])
	}
	inv := eng.invs[1]
	if inv.AppName != agent.ConciergeApp || inv.UserID != "jane.doe" || inv.SessionID != first.SessionID {
		t.Errorf("unexpected invocation: %+v", inv)
	}
}

func TestAsk_ResolvesCallerBeforeRun(t *testing.T) {
	eng := &fakeEngine{}
	b := newTestBridge(eng, nil)
	ctx := context.Background()

	if _, err := b.Ask(ctx, AskInput{Prompt: "hi", UserName: " jane.doe ", Verified: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Ask(ctx, AskInput{Prompt: "hi"}); err != nil {
		t.Fatal(err)
	}

	if eng.callers[0].FullName != "Jane Doe" || eng.callers[0].Role != auth.RolePatient {
		t.Errorf("expected Jane Doe as patient, got %+v", eng.callers[0])
	}
	if eng.callers[1] != auth.GuestCaller() {
		t.Errorf("expected guest for anonymous request, got %+v", eng.callers[1])
	}
	if eng.invs[1].UserID != Concierge.DefaultUser {
		t.Errorf("expected default user id, got %q", eng.invs[1].UserID)
	}
}

func TestAsk_UnverifiedUserNameGetsGuestRole(t *testing.T) {
	eng := &fakeEngine{}
	b := newTestBridge(eng, nil)
	b.callers = fakeResolver{"admin": auth.NewCaller("admin", "Admin", auth.RoleAdmin)}

	if _, err := b.Ask(context.Background(), AskInput{Prompt: "delete every patient", UserName: "admin"}); err != nil {
		t.Fatal(err)
	}
	if eng.callers[0].Role != auth.RoleGuest {
		t.Errorf("expected guest role without a token, got %+v", eng.callers[0])
	}
	// the name still scopes the session
	if eng.invs[0].UserID != "admin" {
		t.Errorf("expected user id admin, got %q", eng.invs[0].UserID)
	}
}

func TestAsk_RejectsSessionOfAnotherUser(t *testing.T) {
	eng := &fakeEngine{}
	b := newTestBridge(eng, nil)
	ctx := context.Background()

	if _, err := b.Ask(ctx, AskInput{Prompt: "my results", SessionID: "s-jane", UserName: "jane.doe"}); err != nil {
		t.Fatal(err)
	}
	_, err := b.Ask(ctx, AskInput{Prompt: "what did she say?", SessionID: "s-jane", UserName: "bob"})
	if !errors.Is(err, ErrSessionOwner) {
		t.Fatalf("expected ErrSessionOwner, got %v", err)
	}
	if len(eng.histories) != 1 {
		t.Errorf("engine must not run for a foreign session, ran %d times", len(eng.histories))
	}
	items, _ := b.History(ctx, "s-jane")
	if len(items) != 2 {
		t.Errorf("foreign prompt must not be stored, got %+v", items)
	}
}

func TestAsk_ReusesLatestSessionForNamedUser(t *testing.T) {
	b := newTestBridge(&fakeEngine{}, nil)
	ctx := context.Background()

	first, _ := b.Ask(ctx, AskInput{Prompt: "a", UserName: "jane.doe"})
	second, _ := b.Ask(ctx, AskInput{Prompt: "b", UserName: "jane.doe"})
	if second.SessionID != first.SessionID {
		t.Errorf("named user should continue latest session, got %q and %q", first.SessionID, second.SessionID)
	}

	anon1, _ := b.Ask(ctx, AskInput{Prompt: "a"})
	anon2, _ := b.Ask(ctx, AskInput{Prompt: "b"})
	if anon1.SessionID == anon2.SessionID {
		t.Error("anonymous requests without session_id should start new sessions")
	}
}

func TestAsk_EmptyPrompt(t *testing.T) {
	b := newTestBridge(&fakeEngine{}, nil)
	if _, err := b.Ask(context.Background(), AskInput{Prompt: "   "}); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestAsk_EngineFailure(t *testing.T) {
	b := newTestBridge(&fakeEngine{err: errors.New("quota exhausted")}, nil)
	ctx := context.Background()

	_, err := b.Ask(ctx, AskInput{Prompt: "hi", SessionID: "s-fail"})
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	items, _ := b.History(ctx, "s-fail")
	if len(items) != 1 || items[0].Role != RoleUser {
		t.Errorf("user turn should be kept, got %+v", items)
	}
}

func TestAsk_EmptyReplyNotStored(t *testing.T) {
	b := newTestBridge(&fakeEngine{}, nil)
	b.engine = engineFunc(func(context.Context, []agent.Turn, string) (string, error) { return "", nil })

	res, err := b.Ask(context.Background(), AskInput{Prompt: "hi", SessionID: "quiet"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.History) != 1 {
		t.Errorf("expected only the user turn, got %+v", res.History)
	}
}

type engineFunc func(context.Context, []agent.Turn, string) (string, error)

func (f engineFunc) Run(ctx context.Context, h []agent.Turn, p string) (string, error) { return f(ctx, h, p) }

func TestAsk_RegistersMemory(t *testing.T) {
	mem := &recordingMemory{InMemory: memory.NewInMemory()}
	b := newTestBridge(&fakeEngine{}, mem)
	ctx := context.Background()

	first, _ := b.Ask(ctx, AskInput{Prompt: "my knee hurts", UserName: "jane.doe"})
	if _, err := b.Ask(ctx, AskInput{Prompt: "still", SessionID: first.SessionID, UserName: "jane.doe"}); err != nil {
		t.Fatal(err)
	}

	if len(mem.added) != 2 {
		t.Fatalf("expected 2 registrations, got %d", len(mem.added))
	}
	last := mem.added[1]
	if last.AppName != agent.ConciergeApp || last.UserID != "jane.doe" || len(last.Entries) != 2 {
		t.Errorf("unexpected registered session: %+v", last)
	}
	// both the prompt and the echoed reply mention the knee
	hits, _ := mem.Search(ctx, agent.ConciergeApp, "jane.doe", "knee")
	if len(hits) != 2 || hits[0].Text != "my knee hurts" || hits[1].Text != "echo: my knee hurts" {
		t.Errorf("expected knee to be searchable, got %+v", hits)
	}
}

func TestAsk_MemoryFailureIsNotFatal(t *testing.T) {
	mem := &recordingMemory{InMemory: memory.NewInMemory(), err: errors.New("redis down")}
	b := newTestBridge(&fakeEngine{}, mem)
	if _, err := b.Ask(context.Background(), AskInput{Prompt: "hi"}); err != nil {
		t.Errorf("memory failure should be ignored, got %v", err)
	}
}

func TestHistoryByUser(t *testing.T) {
	b := newTestBridge(&fakeEngine{}, nil)
	ctx := context.Background()

	_, _ = b.Ask(ctx, AskInput{Prompt: "first", SessionID: "s-a", UserName: "jane.doe"})
	_, _ = b.Ask(ctx, AskInput{Prompt: "second", SessionID: "s-b", UserName: "jane.doe"})
	_, _ = b.Ask(ctx, AskInput{Prompt: "other", SessionID: "s-c", UserName: "bob"})

	res, err := b.HistoryByUser(ctx, "jane.doe")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sessions) != 2 || res.Sessions[0] != "s-b" || res.Sessions[1] != "s-a" {
		t.Errorf("sessions should be newest first, got %v", res.Sessions)
	}
	if len(res.History) != 4 || res.History[0].Content != "first" || res.History[0].SessionID != "s-a" {
		t.Errorf("unexpected history: %+v", res.History)
	}

	none, err := b.HistoryByUser(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(none.Sessions) != 0 {
		t.Errorf("expected no sessions, got %v", none.Sessions)
	}
}
