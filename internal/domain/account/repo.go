package account

import (
	"context"

	"github.com/healthline/healthline/internal/platform/crud"
)

type UserRepository interface {
	crud.Repository[User, UserPatch]
	// GetByUsername returns crud.ErrNotFound when no account has that name.
	GetByUsername(ctx context.Context, username string) (*User, error)
}

type AccessRepository interface {
	crud.Repository[Access, AccessPatch]
	ListByUser(ctx context.Context, userID int64) ([]*Access, error)
}
