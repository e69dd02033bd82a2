package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/db"
)

// -- User Repository --

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userCols = `id, username, password_hash, role, patient_id, doctor_id, carer_id`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, patient_id, doctor_id, carer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		u.Username, u.PasswordHash, u.Role, u.PatientID, u.DoctorID, u.CarerID,
	).Scan(&u.ID)
	return db.WriteError(err)
}

func (r *userRepoPG) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return u, nil
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return u, nil
}

func (r *userRepoPG) List(ctx context.Context) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepoPG) Update(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	var a crud.Assignments
	crud.Set(&a, "username", patch.Username)
	crud.Set(&a, "password_hash", patch.PasswordHash)
	crud.Set(&a, "role", patch.Role)
	crud.Set(&a, "patient_id", patch.PatientID)
	crud.Set(&a, "doctor_id", patch.DoctorID)
	crud.Set(&a, "carer_id", patch.CarerID)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("users", userCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return u, nil
}

func (r *userRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.PatientID, &u.DoctorID, &u.CarerID); err != nil {
		return nil, err
	}
	return &u, nil
}

// -- Access Repository --

type accessRepoPG struct {
	pool *pgxpool.Pool
}

func NewAccessRepo(pool *pgxpool.Pool) AccessRepository {
	return &accessRepoPG{pool: pool}
}

func (r *accessRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const accessCols = `id, user_id, patient_id`

func (r *accessRepoPG) Create(ctx context.Context, a *Access) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_patient_access (user_id, patient_id)
		VALUES ($1, $2)
		RETURNING id`,
		a.UserID, a.PatientID,
	).Scan(&a.ID)
	return db.WriteError(err)
}

func (r *accessRepoPG) Get(ctx context.Context, id int64) (*Access, error) {
	var a Access
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+accessCols+` FROM user_patient_access WHERE id = $1`, id).
		Scan(&a.ID, &a.UserID, &a.PatientID)
	if err != nil {
		return nil, db.WriteError(err)
	}
	return &a, nil
}

func (r *accessRepoPG) List(ctx context.Context) ([]*Access, error) {
	return r.query(ctx, `SELECT `+accessCols+` FROM user_patient_access ORDER BY id`)
}

func (r *accessRepoPG) ListByUser(ctx context.Context, userID int64) ([]*Access, error) {
	return r.query(ctx, `SELECT `+accessCols+` FROM user_patient_access WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *accessRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Access, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list user patient access: %w", err)
	}
	defer rows.Close()

	var out []*Access
	for rows.Next() {
		var a Access
		if err := rows.Scan(&a.ID, &a.UserID, &a.PatientID); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *accessRepoPG) Update(ctx context.Context, id int64, patch AccessPatch) (*Access, error) {
	var a crud.Assignments
	crud.Set(&a, "user_id", patch.UserID)
	crud.Set(&a, "patient_id", patch.PatientID)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	var out Access
	args := append([]interface{}{id}, a.Args()...)
	err := r.conn(ctx).QueryRow(ctx, a.UpdateSQL("user_patient_access", accessCols), args...).
		Scan(&out.ID, &out.UserID, &out.PatientID)
	if err != nil {
		return nil, db.WriteError(err)
	}
	return &out, nil
}

func (r *accessRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM user_patient_access WHERE id = $1`, id))
}
