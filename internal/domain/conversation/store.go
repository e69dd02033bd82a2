package conversation

import "context"

// Store persists one persona's sessions and messages. Messages are
// append-only and come back ordered by creation time, ties by id.
type Store interface {
	// EnsureSession creates the session on first use and returns it.
	EnsureSession(ctx context.Context, sessionID, appName, userID string) (*Session, error)
	// LatestSession returns crud.ErrNotFound when the user has no sessions.
	LatestSession(ctx context.Context, userID string) (*Session, error)
	// SessionsByUser lists the user's sessions, newest first.
	SessionsByUser(ctx context.Context, userID string) ([]*Session, error)
	Append(ctx context.Context, sessionID, role, content string) (*Message, error)
	Messages(ctx context.Context, sessionIDs ...string) ([]*Message, error)
}
