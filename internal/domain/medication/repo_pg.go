package medication

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/db"
)

type scheduleRepoPG struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepoPG{pool: pool}
}

func (r *scheduleRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const scheduleCols = `id, patient_id, medication_name, dosage, frequency, intake_time, start_date, end_date, status, remarks`

func (r *scheduleRepoPG) Create(ctx context.Context, s *Schedule) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_schedules
			(patient_id, medication_name, dosage, frequency, intake_time, start_date, end_date, status, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		s.PatientID, s.MedicationName, s.Dosage, s.Frequency, s.IntakeTime,
		s.StartDate, s.EndDate, s.Status, s.Remarks,
	).Scan(&s.ID)
	return db.WriteError(err)
}

func (r *scheduleRepoPG) Get(ctx context.Context, id int64) (*Schedule, error) {
	s, err := scanSchedule(r.conn(ctx).QueryRow(ctx, `SELECT `+scheduleCols+` FROM medication_schedules WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return s, nil
}

func (r *scheduleRepoPG) List(ctx context.Context) ([]*Schedule, error) {
	return r.query(ctx, `SELECT `+scheduleCols+` FROM medication_schedules ORDER BY id`)
}

func (r *scheduleRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Schedule, error) {
	return r.query(ctx, `
		SELECT `+scheduleCols+` FROM medication_schedules
		WHERE patient_id = $1
		ORDER BY start_date, intake_time, id`, patientID)
}

func (r *scheduleRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Schedule, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list medication schedules: %w", err)
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *scheduleRepoPG) Update(ctx context.Context, id int64, patch SchedulePatch) (*Schedule, error) {
	var a crud.Assignments
	crud.Set(&a, "patient_id", patch.PatientID)
	crud.Set(&a, "medication_name", patch.MedicationName)
	crud.Set(&a, "dosage", patch.Dosage)
	crud.Set(&a, "frequency", patch.Frequency)
	crud.Set(&a, "intake_time", patch.IntakeTime)
	crud.Set(&a, "start_date", patch.StartDate)
	crud.Set(&a, "end_date", patch.EndDate)
	crud.Set(&a, "status", patch.Status)
	crud.Set(&a, "remarks", patch.Remarks)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	s, err := scanSchedule(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("medication_schedules", scheduleCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return s, nil
}

func (r *scheduleRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM medication_schedules WHERE id = $1`, id))
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	if err := row.Scan(&s.ID, &s.PatientID, &s.MedicationName, &s.Dosage, &s.Frequency,
		&s.IntakeTime, &s.StartDate, &s.EndDate, &s.Status, &s.Remarks); err != nil {
		return nil, err
	}
	return &s, nil
}
