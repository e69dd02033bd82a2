package clinical

import (
	"context"

	"github.com/healthline/healthline/internal/platform/memstore"
)

type conditionMemRepo struct {
	*memstore.Table[Condition, ConditionPatch]
}

func NewConditionMemRepo(s *memstore.Store) ConditionRepository {
	return conditionMemRepo{memstore.NewTable(s,
		func(c *Condition, id int64) { c.ID = id },
		(*Condition).Apply,
		memstore.References("patients", func(c *Condition) int64 { return c.PatientID }),
	)}
}

func (r conditionMemRepo) ListByPatient(_ context.Context, patientID int64) ([]*Condition, error) {
	return r.Filter(func(c *Condition) bool { return c.PatientID == patientID }), nil
}
