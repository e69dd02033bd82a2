package clinical

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/db"
)

type conditionRepoPG struct {
	pool *pgxpool.Pool
}

func NewConditionRepo(pool *pgxpool.Pool) ConditionRepository {
	return &conditionRepoPG{pool: pool}
}

func (r *conditionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const conditionCols = `id, patient_id, condition_name, severity_level, diagnosed_date`

func (r *conditionRepoPG) Create(ctx context.Context, c *Condition) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO conditions (patient_id, condition_name, severity_level, diagnosed_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		c.PatientID, c.ConditionName, c.SeverityLevel, c.DiagnosedDate,
	).Scan(&c.ID)
	return db.WriteError(err)
}

func (r *conditionRepoPG) Get(ctx context.Context, id int64) (*Condition, error) {
	c, err := scanCondition(r.conn(ctx).QueryRow(ctx, `SELECT `+conditionCols+` FROM conditions WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return c, nil
}

func (r *conditionRepoPG) List(ctx context.Context) ([]*Condition, error) {
	return r.query(ctx, `SELECT `+conditionCols+` FROM conditions ORDER BY id`)
}

func (r *conditionRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Condition, error) {
	return r.query(ctx, `SELECT `+conditionCols+` FROM conditions WHERE patient_id = $1 ORDER BY id`, patientID)
}

func (r *conditionRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Condition, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	var out []*Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *conditionRepoPG) Update(ctx context.Context, id int64, patch ConditionPatch) (*Condition, error) {
	var a crud.Assignments
	crud.Set(&a, "patient_id", patch.PatientID)
	crud.Set(&a, "condition_name", patch.ConditionName)
	crud.Set(&a, "severity_level", patch.SeverityLevel)
	crud.Set(&a, "diagnosed_date", patch.DiagnosedDate)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	c, err := scanCondition(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("conditions", conditionCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return c, nil
}

func (r *conditionRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM conditions WHERE id = $1`, id))
}

func scanCondition(row pgx.Row) (*Condition, error) {
	var c Condition
	if err := row.Scan(&c.ID, &c.PatientID, &c.ConditionName, &c.SeverityLevel, &c.DiagnosedDate); err != nil {
		return nil, err
	}
	return &c, nil
}
