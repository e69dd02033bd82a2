package agent

import (
	"context"
	"strings"

	"github.com/healthline/healthline/internal/agent/memory"
	"github.com/healthline/healthline/internal/platform/auth"
)

// IdentifyUserTool reports the caller bound to the request.
func IdentifyUserTool() Tool {
	return NewFuncTool(
		"identify_user",
		"Return the current user's username, full name and role.",
		&Schema{Type: TypeObject},
		func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			c := auth.CallerFromContext(ctx)
			return map[string]any{
				"status":    "success",
				"user_name": c.UserName,
				"full_name": c.FullName,
				"role":      c.Role,
			}, nil
		},
	)
}

// LoadMemoryTool searches earlier conversations of the current user.
func LoadMemoryTool(search memory.Searcher) Tool {
	return NewFuncTool(
		"load_memory",
		"Load memories from earlier conversations with the current user that match the query.",
		&Schema{
			Type: TypeObject,
			Properties: map[string]*Schema{
				"query": {Type: TypeString, Description: "Keywords to look for."},
			},
			Required: []string{"query"},
		},
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)
			inv := InvocationFrom(ctx)
			memories := []map[string]any{}
			if strings.TrimSpace(query) != "" && inv.UserID != "" {
				entries, err := search.Search(ctx, inv.AppName, inv.UserID, query)
				if err != nil {
					return nil, err
				}
				for _, e := range entries {
					memories = append(memories, map[string]any{
						"author":    e.Author,
						"text":      e.Text,
						"timestamp": e.Timestamp,
					})
				}
			}
			return map[string]any{"memories": memories}, nil
		},
	)
}
