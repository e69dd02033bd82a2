package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/db"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, full_name, birthdate, gender, contact_number, address, emergency_contact`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (full_name, birthdate, gender, contact_number, address, emergency_contact)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.FullName, p.Birthdate, p.Gender, p.ContactNumber, p.Address, p.EmergencyContact,
	).Scan(&p.ID)
	return db.WriteError(err)
}

func (r *patientRepoPG) Get(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, id int64, patch PatientPatch) (*Patient, error) {
	var a crud.Assignments
	crud.Set(&a, "full_name", patch.FullName)
	crud.Set(&a, "birthdate", patch.Birthdate)
	crud.Set(&a, "gender", patch.Gender)
	crud.Set(&a, "contact_number", patch.ContactNumber)
	crud.Set(&a, "address", patch.Address)
	crud.Set(&a, "emergency_contact", patch.EmergencyContact)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("patients", patientCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return p, nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id))
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.FullName, &p.Birthdate, &p.Gender, &p.ContactNumber, &p.Address, &p.EmergencyContact); err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Carer Repository --

type carerRepoPG struct {
	pool *pgxpool.Pool
}

func NewCarerRepo(pool *pgxpool.Pool) CarerRepository {
	return &carerRepoPG{pool: pool}
}

func (r *carerRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const carerCols = `id, patient_id, full_name, relationship_to_patient, contact_number, notes`

func (r *carerRepoPG) Create(ctx context.Context, c *Carer) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO carers (patient_id, full_name, relationship_to_patient, contact_number, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		c.PatientID, c.FullName, c.RelationshipToPatient, c.ContactNumber, c.Notes,
	).Scan(&c.ID)
	return db.WriteError(err)
}

func (r *carerRepoPG) Get(ctx context.Context, id int64) (*Carer, error) {
	c, err := scanCarer(r.conn(ctx).QueryRow(ctx, `SELECT `+carerCols+` FROM carers WHERE id = $1`, id))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return c, nil
}

func (r *carerRepoPG) List(ctx context.Context) ([]*Carer, error) {
	return r.query(ctx, `SELECT `+carerCols+` FROM carers ORDER BY id`)
}

func (r *carerRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Carer, error) {
	return r.query(ctx, `SELECT `+carerCols+` FROM carers WHERE patient_id = $1 ORDER BY id`, patientID)
}

func (r *carerRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Carer, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list carers: %w", err)
	}
	defer rows.Close()

	var out []*Carer
	for rows.Next() {
		c, err := scanCarer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *carerRepoPG) Update(ctx context.Context, id int64, patch CarerPatch) (*Carer, error) {
	var a crud.Assignments
	crud.Set(&a, "patient_id", patch.PatientID)
	crud.Set(&a, "full_name", patch.FullName)
	crud.Set(&a, "relationship_to_patient", patch.RelationshipToPatient)
	crud.Set(&a, "contact_number", patch.ContactNumber)
	crud.Set(&a, "notes", patch.Notes)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	args := append([]interface{}{id}, a.Args()...)
	c, err := scanCarer(r.conn(ctx).QueryRow(ctx, a.UpdateSQL("carers", carerCols), args...))
	if err != nil {
		return nil, db.WriteError(err)
	}
	return c, nil
}

func (r *carerRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM carers WHERE id = $1`, id))
}

func scanCarer(row pgx.Row) (*Carer, error) {
	var c Carer
	if err := row.Scan(&c.ID, &c.PatientID, &c.FullName, &c.RelationshipToPatient, &c.ContactNumber, &c.Notes); err != nil {
		return nil, err
	}
	return &c, nil
}

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `id, full_name, specialization`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO doctors (full_name, specialization) VALUES ($1, $2) RETURNING id`,
		d.FullName, d.Specialization,
	).Scan(&d.ID)
	return db.WriteError(err)
}

func (r *doctorRepoPG) Get(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.FullName, &d.Specialization)
	if err != nil {
		return nil, db.WriteError(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) List(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.FullName, &d.Specialization); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *doctorRepoPG) Update(ctx context.Context, id int64, patch DoctorPatch) (*Doctor, error) {
	var a crud.Assignments
	crud.Set(&a, "full_name", patch.FullName)
	crud.Set(&a, "specialization", patch.Specialization)
	if a.Empty() {
		return r.Get(ctx, id)
	}

	var d Doctor
	args := append([]interface{}{id}, a.Args()...)
	err := r.conn(ctx).QueryRow(ctx, a.UpdateSQL("doctors", doctorCols), args...).
		Scan(&d.ID, &d.FullName, &d.Specialization)
	if err != nil {
		return nil, db.WriteError(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id int64) error {
	return db.ExecOne(r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id))
}
