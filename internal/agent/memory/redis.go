package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "memory"
	scanBatch = 100
)

// Redis stores each session as one JSON value under
// memory:<app>:<user>:<session>, expiring after ttl. Each name is
// query-escaped, so a user called "alice:x" cannot fall under the key
// pattern of "alice".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis uses client; a ttl of zero keeps entries forever.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func sessionKeyOf(app, user, session string) string {
	return strings.Join([]string{keyPrefix, url.QueryEscape(app), url.QueryEscape(user), url.QueryEscape(session)}, ":")
}

// userPattern matches every session key of one user. Escaped names contain
// neither separators nor glob metacharacters.
func userPattern(app, user string) string {
	return strings.Join([]string{keyPrefix, url.QueryEscape(app), url.QueryEscape(user), "*"}, ":")
}

func (r *Redis) AddSession(ctx context.Context, s Session) error {
	data, err := json.Marshal(s.Entries)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, sessionKeyOf(s.AppName, s.UserID, s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", s.ID, err)
	}
	return nil
}

func (r *Redis) Search(ctx context.Context, appName, userID, query string) ([]Entry, error) {
	match := matcher(query)
	var out []Entry

	iter := r.client.Scan(ctx, 0, userPattern(appName, userID), scanBatch).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			// expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", iter.Val(), err)
		}
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		for _, e := range entries {
			if match(e) {
				out = append(out, e)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan memory keys: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
