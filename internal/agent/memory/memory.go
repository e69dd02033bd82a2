// Package memory indexes finished conversation turns so that later sessions
// of the same user can recall them by keyword.
package memory

import (
	"context"
	"strings"
	"time"
	"unicode"
)

type Entry struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the unit registered with the index. Registering the same
// session again replaces its entries.
type Session struct {
	AppName string  `json:"app_name"`
	UserID  string  `json:"user_id"`
	ID      string  `json:"id"`
	Entries []Entry `json:"entries"`
}

type Searcher interface {
	Search(ctx context.Context, appName, userID, query string) ([]Entry, error)
}

type Service interface {
	Searcher
	AddSession(ctx context.Context, s Session) error
}

// words splits s into lowercased letter/digit runs.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matcher reports whether an entry shares at least one word with the query.
func matcher(query string) func(Entry) bool {
	want := make(map[string]bool)
	for _, w := range words(query) {
		want[w] = true
	}
	return func(e Entry) bool {
		for _, w := range words(e.Text) {
			if want[w] {
				return true
			}
		}
		return false
	}
}
