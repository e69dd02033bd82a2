package identity

import (
	"github.com/healthline/healthline/internal/platform/civil"
)

type Patient struct {
	ID               int64      `json:"id"`
	FullName         string     `json:"full_name"`
	Birthdate        civil.Date `json:"birthdate"`
	Gender           string     `json:"gender"`
	ContactNumber    string     `json:"contact_number"`
	Address          string     `json:"address"`
	EmergencyContact string     `json:"emergency_contact"`
}

// PatientPatch holds the fields an update may change. Nil fields are left
// untouched.
type PatientPatch struct {
	FullName         *string
	Birthdate        *civil.Date
	Gender           *string
	ContactNumber    *string
	Address          *string
	EmergencyContact *string
}

func (p *Patient) Apply(patch PatientPatch) error {
	set(&p.FullName, patch.FullName)
	set(&p.Birthdate, patch.Birthdate)
	set(&p.Gender, patch.Gender)
	set(&p.ContactNumber, patch.ContactNumber)
	set(&p.Address, patch.Address)
	set(&p.EmergencyContact, patch.EmergencyContact)
	return nil
}

type Carer struct {
	ID                    int64   `json:"id"`
	PatientID             int64   `json:"patient_id"`
	FullName              string  `json:"full_name"`
	RelationshipToPatient string  `json:"relationship_to_patient"`
	ContactNumber         string  `json:"contact_number"`
	Notes                 *string `json:"notes"`
}

type CarerPatch struct {
	PatientID             *int64
	FullName              *string
	RelationshipToPatient *string
	ContactNumber         *string
	Notes                 *string
}

func (c *Carer) Apply(patch CarerPatch) error {
	set(&c.PatientID, patch.PatientID)
	set(&c.FullName, patch.FullName)
	set(&c.RelationshipToPatient, patch.RelationshipToPatient)
	set(&c.ContactNumber, patch.ContactNumber)
	if patch.Notes != nil {
		v := *patch.Notes
		c.Notes = &v
	}
	return nil
}

type Doctor struct {
	ID             int64  `json:"id"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization"`
}

type DoctorPatch struct {
	FullName       *string `json:"full_name"`
	Specialization *string `json:"specialization"`
}

func (d *Doctor) Apply(patch DoctorPatch) error {
	set(&d.FullName, patch.FullName)
	set(&d.Specialization, patch.Specialization)
	return nil
}

func set[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}
