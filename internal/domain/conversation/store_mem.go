package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/healthline/healthline/internal/platform/crud"
)

type memStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	sessions []*Session
	byID     map[string]*Session
	messages []*Message
	nextID   int64
}

// NewMemStore keeps one persona's conversations in process memory.
func NewMemStore() Store {
	return &memStore{now: time.Now, byID: make(map[string]*Session)}
}

func (s *memStore) EnsureSession(_ context.Context, sessionID, appName, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byID[sessionID]; ok {
		cp := *sess
		return &cp, nil
	}
	sess := &Session{ID: sessionID, AppName: appName, UserID: userID, CreatedAt: s.now()}
	s.sessions = append(s.sessions, sess)
	s.byID[sessionID] = sess
	cp := *sess
	return &cp, nil
}

func (s *memStore) LatestSession(ctx context.Context, userID string) (*Session, error) {
	list, _ := s.SessionsByUser(ctx, userID)
	if len(list) == 0 {
		return nil, crud.ErrNotFound
	}
	return list[0], nil
}

// SessionsByUser walks creation order backwards, which is newest first.
func (s *memStore) SessionsByUser(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if s.sessions[i].UserID == userID {
			cp := *s.sessions[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) Append(_ context.Context, sessionID, role, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sessionID]; !ok {
		return nil, crud.ErrInvalidReference
	}
	s.nextID++
	m := &Message{ID: s.nextID, SessionID: sessionID, Role: role, Content: content, CreatedAt: s.now()}
	s.messages = append(s.messages, m)
	cp := *m
	return &cp, nil
}

func (s *memStore) Messages(_ context.Context, sessionIDs ...string) ([]*Message, error) {
	want := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Message
	for _, m := range s.messages {
		if want[m.SessionID] {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}
