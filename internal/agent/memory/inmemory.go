package memory

import (
	"context"
	"sort"
	"sync"
)

type sessionKey struct {
	app, user, session string
}

// InMemory keeps sessions for the life of the process.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[sessionKey][]Entry
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[sessionKey][]Entry)}
}

func (m *InMemory) AddSession(_ context.Context, s Session) error {
	entries := make([]Entry, len(s.Entries))
	copy(entries, s.Entries)

	m.mu.Lock()
	m.sessions[sessionKey{s.AppName, s.UserID, s.ID}] = entries
	m.mu.Unlock()
	return nil
}

// Search returns matching entries of every session the user has in appName,
// oldest first.
func (m *InMemory) Search(_ context.Context, appName, userID, query string) ([]Entry, error) {
	match := matcher(query)

	m.mu.RLock()
	var out []Entry
	for k, entries := range m.sessions {
		if k.app != appName || k.user != userID {
			continue
		}
		for _, e := range entries {
			if match(e) {
				out = append(out, e)
			}
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
