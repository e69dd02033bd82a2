package identity

import (
	"context"

	"github.com/healthline/healthline/internal/platform/memstore"
)

func NewPatientMemRepo(s *memstore.Store) PatientRepository {
	return memstore.NewTable(s,
		func(p *Patient, id int64) { p.ID = id },
		(*Patient).Apply,
		memstore.Named[Patient]("patients"),
	)
}

type carerMemRepo struct {
	*memstore.Table[Carer, CarerPatch]
}

func NewCarerMemRepo(s *memstore.Store) CarerRepository {
	return carerMemRepo{memstore.NewTable(s,
		func(c *Carer, id int64) { c.ID = id },
		(*Carer).Apply,
		memstore.Named[Carer]("carers"),
		memstore.References("patients", func(c *Carer) int64 { return c.PatientID }),
	)}
}

func (r carerMemRepo) ListByPatient(_ context.Context, patientID int64) ([]*Carer, error) {
	return r.Filter(func(c *Carer) bool { return c.PatientID == patientID }), nil
}

func NewDoctorMemRepo(s *memstore.Store) DoctorRepository {
	return memstore.NewTable(s,
		func(d *Doctor, id int64) { d.ID = id },
		(*Doctor).Apply,
		memstore.Named[Doctor]("doctors"),
	)
}
