// Package crud provides the uniform list/get/create/update/delete layer shared
// by every record type. It performs no validation: callers hand it payloads
// that were already checked and normalized.
package crud

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested identifier does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness rule.
var ErrConflict = errors.New("already exists")

// ErrInvalidReference is returned when a write points at a row that does not
// exist; ErrReferenced when a delete would orphan dependent rows.
var (
	ErrInvalidReference = errors.New("references a record that does not exist")
	ErrReferenced       = errors.New("is still referenced by other records")
)

// Repository is the storage contract a record type must satisfy. P is the
// typed partial patch accepted by Update.
type Repository[T any, P any] interface {
	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, rec *T) error
	Update(ctx context.Context, id int64, patch P) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Deleted is the confirmation returned by Service.Delete.
type Deleted struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

type Service[T any, P any] struct {
	name string
	repo Repository[T, P]
}

// NewService wraps repo. name is used in error messages ("patient not found").
func NewService[T any, P any](name string, repo Repository[T, P]) *Service[T, P] {
	return &Service[T, P]{name: name, repo: repo}
}

func (s *Service[T, P]) Name() string { return s.name }

func (s *Service[T, P]) List(ctx context.Context) ([]*T, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.name, err)
	}
	return rows, nil
}

func (s *Service[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.wrap(err)
	}
	return rec, nil
}

func (s *Service[T, P]) Create(ctx context.Context, rec *T) (*T, error) {
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.name, err)
	}
	return rec, nil
}

func (s *Service[T, P]) Update(ctx context.Context, id int64, patch P) (*T, error) {
	rec, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.wrap(err)
	}
	return rec, nil
}

func (s *Service[T, P]) Delete(ctx context.Context, id int64) (*Deleted, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, s.wrap(err)
	}
	return &Deleted{Status: "deleted", ID: id}, nil
}

func (s *Service[T, P]) wrap(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %w", s.name, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", s.name, err)
}
