package conversation

import (
	"time"

	"github.com/healthline/healthline/internal/agent"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Persona selects the agent, the session/message tables and the memory
// scope of a chat route.
type Persona struct {
	Key         string
	AppName     string
	DefaultUser string
}

var (
	Concierge = Persona{Key: "concierge", AppName: agent.ConciergeApp, DefaultUser: "guest_user"}
	Doctor    = Persona{Key: "doctor", AppName: agent.DoctorApp, DefaultUser: "doctor_user"}
)

type Session struct {
	ID        string    `json:"session_id"`
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryItem struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type UserHistoryItem struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type UserHistory struct {
	UserID   string            `json:"user_id"`
	Sessions []string          `json:"sessions"`
	History  []UserHistoryItem `json:"history"`
}
