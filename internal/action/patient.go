package action

import (
	"context"
	"fmt"

	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/crud"
)

var patientFields = []string{
	"full_name", "birthdate", "gender", "contact_number", "address", "emergency_contact",
}

// patientAccountFields control the login provisioned with a new patient.
var patientAccountFields = []string{"create_account", "username", "password"}

type patientActions struct {
	patients *crud.Service[identity.Patient, identity.PatientPatch]
	accounts *account.Service
}

func readPatientPatch(r *reader) identity.PatientPatch {
	return identity.PatientPatch{
		FullName:         r.text("full_name"),
		Birthdate:        r.date("birthdate"),
		Gender:           r.text("gender"),
		ContactNumber:    r.text("contact_number"),
		Address:          r.text("address"),
		EmergencyContact: r.text("emergency_contact"),
	}
}

// CreatedPatient is the create_patient reply. User and Access are set when
// a login was provisioned.
type CreatedPatient struct {
	*identity.Patient
	PatientID int64           `json:"patient_id"`
	User      *Login          `json:"user,omitempty"`
	Access    *account.Access `json:"access,omitempty"`
}

// Login carries a freshly issued credential. Password is the plaintext and
// is only ever returned here.
type Login struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// NewPatientDispatcher serves handle_patient_action.
func NewPatientDispatcher(patients identity.PatientRepository, accounts *account.Service) *Dispatcher {
	a := &patientActions{
		patients: crud.NewService[identity.Patient, identity.PatientPatch]("patient", patients),
		accounts: accounts,
	}
	d := newDispatcher("handle_patient_action",
		"Create, read, update, delete or list patients. read_patient accepts patient_id or full_name with birthdate.")
	d.handle("create_patient", a.create)
	d.handle("read_patient", a.read)
	d.handle("update_patient", updateByID(a.patients, patchSpec[identity.PatientPatch]{
		idField:  "patient_id",
		fields:   patientFields,
		required: patientFields,
		read:     readPatientPatch,
	}))
	d.handle("delete_patient", deleteByID(a.patients, "patient_id"), auth.RoleAdmin, auth.RoleDoctor)
	d.handle("list_patients", listAll(a.patients))
	return d
}

func (a *patientActions) create(ctx context.Context, p payload) (any, error) {
	if err := p.require(patientFields...); err != nil {
		return nil, err
	}
	if err := p.only(append(patientFields, patientAccountFields...)...); err != nil {
		return nil, err
	}
	r := newReader(p)
	patch := readPatientPatch(r)
	opts := account.AccountOptions{Skip: !r.flag("create_account", true)}
	if u := r.text("username"); u != nil {
		opts.Username = *u
	}
	if pw := r.text("password"); pw != nil {
		opts.Password = *pw
	}
	if r.err != nil {
		return nil, r.err
	}

	var rec identity.Patient
	if err := rec.Apply(patch); err != nil {
		return nil, err
	}
	pa, err := a.accounts.CreatePatientWithAccount(ctx, &rec, opts)
	if err != nil {
		return nil, err
	}

	out := &CreatedPatient{Patient: pa.Patient, PatientID: pa.Patient.ID, Access: pa.Access}
	if pa.User != nil {
		out.User = &Login{ID: pa.User.ID, Username: pa.User.Username, Password: pa.Password, Role: pa.User.Role}
	}
	return out, nil
}

// read looks a patient up by id, or by the exact full_name and birthdate
// pair when no id is given.
func (a *patientActions) read(ctx context.Context, p payload) (any, error) {
	if p.absent("patient_id") {
		switch m := p.missing("full_name", "birthdate"); len(m) {
		case 2:
			return nil, missingFields("patient_id is required, or full_name together with birthdate", "patient_id")
		case 1:
			return nil, missingFields(msgMissing, m...)
		}
	}
	if err := p.only("patient_id", "full_name", "birthdate"); err != nil {
		return nil, err
	}
	if !p.absent("patient_id") {
		return readByID(a.patients, "patient_id")(ctx, p)
	}

	r := newReader(p)
	name, birthdate := r.text("full_name"), r.date("birthdate")
	if r.err != nil {
		return nil, r.err
	}
	rows, err := a.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.FullName == *name && row.Birthdate == *birthdate {
			return row, nil
		}
	}
	return nil, fmt.Errorf("patient %w", crud.ErrNotFound)
}
