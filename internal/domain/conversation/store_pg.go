package conversation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/platform/db"
)

// Table names are fixed per persona key; they never come from requests.
var pgTables = map[string][2]string{
	"concierge": {"conversation_sessions_concierge", "conversation_messages_concierge"},
	"doctor":    {"conversation_sessions_doctor", "conversation_messages_doctor"},
}

type pgStore struct {
	pool     *pgxpool.Pool
	sessions string
	messages string
}

func NewPGStore(pool *pgxpool.Pool, p Persona) (Store, error) {
	t, ok := pgTables[p.Key]
	if !ok {
		return nil, fmt.Errorf("no conversation tables for persona %q", p.Key)
	}
	return &pgStore{pool: pool, sessions: t[0], messages: t[1]}, nil
}

func (s *pgStore) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.pool)
}

func (s *pgStore) EnsureSession(ctx context.Context, sessionID, appName, userID string) (*Session, error) {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO `+s.sessions+` (session_id, app_name, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO NOTHING`,
		sessionID, appName, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}
	sess, err := scanSession(s.conn(ctx).QueryRow(ctx,
		`SELECT session_id, app_name, user_id, created_at FROM `+s.sessions+` WHERE session_id = $1`, sessionID))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return sess, nil
}

func (s *pgStore) LatestSession(ctx context.Context, userID string) (*Session, error) {
	sess, err := scanSession(s.conn(ctx).QueryRow(ctx, `
		SELECT session_id, app_name, user_id, created_at FROM `+s.sessions+`
		WHERE user_id = $1
		ORDER BY created_at DESC, session_id DESC
		LIMIT 1`, userID))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return sess, nil
}

func (s *pgStore) SessionsByUser(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT session_id, app_name, user_id, created_at FROM `+s.sessions+`
		WHERE user_id = $1
		ORDER BY created_at DESC, session_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *pgStore) Append(ctx context.Context, sessionID, role, content string) (*Message, error) {
	m := &Message{SessionID: sessionID, Role: role, Content: content}
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO `+s.messages+` (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		sessionID, role, content,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, db.WriteError(err)
	}
	return m, nil
}

func (s *pgStore) Messages(ctx context.Context, sessionIDs ...string) ([]*Message, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, session_id, role, content, created_at FROM `+s.messages+`
		WHERE session_id = ANY($1)
		ORDER BY created_at, id`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.AppName, &s.UserID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
