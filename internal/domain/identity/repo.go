package identity

import (
	"context"

	"github.com/healthline/healthline/internal/platform/crud"
)

type PatientRepository interface {
	crud.Repository[Patient, PatientPatch]
}

type CarerRepository interface {
	crud.Repository[Carer, CarerPatch]
	ListByPatient(ctx context.Context, patientID int64) ([]*Carer, error)
}

type DoctorRepository interface {
	crud.Repository[Doctor, DoctorPatch]
}
