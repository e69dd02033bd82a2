package account

import (
	"context"

	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/memstore"
)

type userMemRepo struct {
	*memstore.Table[User, UserPatch]
}

func NewUserMemRepo(s *memstore.Store) UserRepository {
	return userMemRepo{memstore.NewTable(s,
		func(u *User, id int64) { u.ID = id },
		(*User).Apply,
		memstore.Unique(func(a, b *User) bool { return a.Username == b.Username }),
		memstore.Named[User]("users"),
		memstore.References("patients", func(u *User) int64 { return memstore.Optional(u.PatientID) }),
		memstore.References("doctors", func(u *User) int64 { return memstore.Optional(u.DoctorID) }),
		memstore.References("carers", func(u *User) int64 { return memstore.Optional(u.CarerID) }),
	)}
}

func (r userMemRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	found := r.Filter(func(u *User) bool { return u.Username == username })
	if len(found) == 0 {
		return nil, crud.ErrNotFound
	}
	return found[0], nil
}

type accessMemRepo struct {
	*memstore.Table[Access, AccessPatch]
}

func NewAccessMemRepo(s *memstore.Store) AccessRepository {
	return accessMemRepo{memstore.NewTable(s,
		func(a *Access, id int64) { a.ID = id },
		(*Access).Apply,
		memstore.References("users", func(a *Access) int64 { return a.UserID }),
		memstore.References("patients", func(a *Access) int64 { return a.PatientID }),
	)}
}

func (r accessMemRepo) ListByUser(_ context.Context, userID int64) ([]*Access, error) {
	return r.Filter(func(a *Access) bool { return a.UserID == userID }), nil
}
