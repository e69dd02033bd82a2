package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthline/healthline/internal/platform/crud"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapError translates pgx errors into crud sentinels. fk is returned for
// foreign key violations, since their meaning depends on the statement.
func MapError(err error, fk error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return crud.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return crud.ErrConflict
		case pgForeignKeyViolation:
			if fk != nil {
				return fk
			}
		}
	}
	return err
}

// WriteError maps errors from INSERT and UPDATE statements.
func WriteError(err error) error { return MapError(err, crud.ErrInvalidReference) }

// DeleteError maps errors from DELETE statements.
func DeleteError(err error) error { return MapError(err, crud.ErrReferenced) }

// ExecOne maps the result of a statement that must affect exactly one row.
func ExecOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return DeleteError(err)
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
