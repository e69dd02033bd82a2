package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/agent"
	"github.com/healthline/healthline/internal/agent/memory"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/crud"
)

var (
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrSessionOwner is returned when a session_id belongs to another user.
	ErrSessionOwner = errors.New("session belongs to another user")
)

// EngineError wraps a failure of the conversational engine, as opposed to a
// storage failure.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return "conversation engine: " + e.Err.Error() }

func (e *EngineError) Unwrap() error { return e.Err }

type Engine interface {
	Run(ctx context.Context, history []agent.Turn, prompt string) (string, error)
}

type CallerResolver interface {
	ResolveCaller(ctx context.Context, username string) (auth.Caller, error)
}

// Bridge joins stateless chat requests to persisted sessions, the caller
// identity and the memory index of one persona.
type Bridge struct {
	persona Persona
	store   Store
	engine  Engine
	memory  memory.Service
	callers CallerResolver
	newID   func() string
}

// NewBridge wires a persona. mem and callers may be nil.
func NewBridge(p Persona, store Store, engine Engine, mem memory.Service, callers CallerResolver) *Bridge {
	return &Bridge{
		persona: p,
		store:   store,
		engine:  engine,
		memory:  mem,
		callers: callers,
		newID:   uuid.NewString,
	}
}

func (b *Bridge) Persona() Persona { return b.persona }

type AskInput struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
	UserName  string `json:"user_name"`
	// Verified is set when UserName comes from a bearer token. A name taken
	// from the body still scopes sessions and memory but only gets guest
	// permissions.
	Verified bool `json:"-"`
}

type AskResult struct {
	Response  string        `json:"response"`
	SessionID string        `json:"session_id"`
	History   []HistoryItem `json:"history"`
}

func (b *Bridge) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	log := zerolog.Ctx(ctx)

	named := strings.TrimSpace(in.UserName)
	userID := named
	if userID == "" {
		userID = b.persona.DefaultUser
	}
	caller := auth.GuestCaller()
	if named != "" && in.Verified {
		caller = b.resolve(ctx, userID)
	}
	ctx = auth.WithCaller(ctx, caller)

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" && named != "" {
		latest, err := b.store.LatestSession(ctx, userID)
		switch {
		case err == nil:
			sessionID = latest.ID
		case !errors.Is(err, crud.ErrNotFound):
			return nil, err
		}
	}
	if sessionID == "" {
		sessionID = b.newID()
	}

	sess, err := b.store.EnsureSession(ctx, sessionID, b.persona.AppName, userID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		log.Warn().Str("session_id", sessionID).Str("user_id", userID).Msg("session owned by another user")
		return nil, ErrSessionOwner
	}

	prior, err := b.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	b.remember(ctx, userID, sessionID, prior)

	if _, err := b.store.Append(ctx, sessionID, RoleUser, in.Prompt); err != nil {
		return nil, err
	}

	history := make([]agent.Turn, 0, len(prior))
	for _, m := range prior {
		history = append(history, agent.Turn{Role: m.Role, Text: m.Content})
	}
	runCtx := agent.WithInvocation(ctx, agent.Invocation{AppName: b.persona.AppName, UserID: userID, SessionID: sessionID})
	reply, err := b.engine.Run(runCtx, history, in.Prompt)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Str("persona", b.persona.Key).Msg("engine run failed")
		return nil, &EngineError{Err: err}
	}

	if reply != "" {
		if _, err := b.store.Append(ctx, sessionID, RoleAssistant, reply); err != nil {
			return nil, err
		}
	}

	items, err := b.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &AskResult{Response: reply, SessionID: sessionID, History: items}, nil
}

// resolve never fails the request; lookup errors degrade to guest.
func (b *Bridge) resolve(ctx context.Context, userID string) auth.Caller {
	if b.callers == nil {
		return auth.GuestCaller()
	}
	c, err := b.callers.ResolveCaller(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("resolve caller failed, continuing as guest")
		return auth.GuestCaller()
	}
	return c
}

func (b *Bridge) remember(ctx context.Context, userID, sessionID string, msgs []*Message) {
	if b.memory == nil {
		return
	}
	entries := make([]memory.Entry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, memory.Entry{Author: m.Role, Text: m.Content, Timestamp: m.CreatedAt})
	}
	err := b.memory.AddSession(ctx, memory.Session{
		AppName: b.persona.AppName,
		UserID:  userID,
		ID:      sessionID,
		Entries: entries,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("register session with memory failed")
	}
}

func (b *Bridge) History(ctx context.Context, sessionID string) ([]HistoryItem, error) {
	msgs, err := b.store.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]HistoryItem, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryItem{Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt})
	}
	return out, nil
}

// HistoryByUser returns the user's sessions newest first and their messages
// in creation order.
func (b *Bridge) HistoryByUser(ctx context.Context, userID string) (*UserHistory, error) {
	sessions, err := b.store.SessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	out := &UserHistory{UserID: userID, Sessions: make([]string, 0, len(sessions)), History: []UserHistoryItem{}}
	if len(sessions) == 0 {
		return out, nil
	}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, s.ID)
	}
	msgs, err := b.store.Messages(ctx, out.Sessions...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, m := range msgs {
		out.History = append(out.History, UserHistoryItem{
			SessionID: m.SessionID, Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt,
		})
	}
	return out, nil
}
