package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/db"
)

// -- Appointment Repository --

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const appointmentCols = `id, patient_id, doctor_id, appointment_date, status`

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.AppointmentDate, a.Status,
	).Scan(&a.ID)
	return db.WriteError(err)
}

func (r *appointmentRepoPG) Get(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return a, nil
}

func (r *appointmentRepoPG) List(ctx context.Context) ([]*Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentCols+` FROM appointments ORDER BY id`)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Appointment, error) {
	return r.query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date, id`, patientID)
}

func (r *appointmentRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) Update(ctx context.Context, id int64, patch AppointmentPatch) (*Appointment, error) {
	var a crud.Assignments
	crud.Set(&a, "patient_id", patch.PatientID)
	crud.Set(&a, "doctor_id", patch.DoctorID)
	crud.Set(&a, "appointment_date", patch.AppointmentDate)
	crud.Set(&a, "status", patch.Status)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	appt, err := scanAppointment(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("appointments", appointmentCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return appt, nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id))
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.Status); err != nil {
		return nil, err
	}
	return &a, nil
}

// -- Referral Repository --

type referralRepoPG struct {
	pool *pgxpool.Pool
}

func NewReferralRepo(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepoPG{pool: pool}
}

func (r *referralRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const referralCols = `id, appointment_id, referred_to_specialization, reason, status`

func (r *referralRepoPG) Create(ctx context.Context, ref *Referral) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO referrals (appointment_id, referred_to_specialization, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		ref.AppointmentID, ref.ReferredToSpecialization, ref.Reason, ref.Status,
	).Scan(&ref.ID)
	return db.WriteError(err)
}

func (r *referralRepoPG) Get(ctx context.Context, id int64) (*Referral, error) {
	ref, err := scanReferral(r.conn(ctx).QueryRow(ctx, `SELECT `+referralCols+` FROM referrals WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return ref, nil
}

func (r *referralRepoPG) List(ctx context.Context) ([]*Referral, error) {
	return r.query(ctx, `SELECT `+referralCols+` FROM referrals ORDER BY id`)
}

func (r *referralRepoPG) ListByAppointments(ctx context.Context, appointmentIDs []int64) ([]*Referral, error) {
	if len(appointmentIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+referralCols+` FROM referrals WHERE appointment_id = ANY($1) ORDER BY id`, appointmentIDs)
}

func (r *referralRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Referral, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	var out []*Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *referralRepoPG) Update(ctx context.Context, id int64, patch ReferralPatch) (*Referral, error) {
	var a crud.Assignments
	crud.Set(&a, "appointment_id", patch.AppointmentID)
	crud.Set(&a, "referred_to_specialization", patch.ReferredToSpecialization)
	crud.Set(&a, "reason", patch.Reason)
	crud.Set(&a, "status", patch.Status)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	ref, err := scanReferral(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("referrals", referralCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return ref, nil
}

func (r *referralRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM referrals WHERE id = $1`, id))
}

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	if err := row.Scan(&ref.ID, &ref.AppointmentID, &ref.ReferredToSpecialization, &ref.Reason, &ref.Status); err != nil {
		return nil, err
	}
	return &ref, nil
}
