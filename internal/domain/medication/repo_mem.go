package medication

import (
	"context"
	"sort"

	"github.com/healthline/healthline/internal/platform/memstore"
)

type scheduleMemRepo struct {
	*memstore.Table[Schedule, SchedulePatch]
}

func NewScheduleMemRepo(s *memstore.Store) ScheduleRepository {
	return scheduleMemRepo{memstore.NewTable(s,
		func(m *Schedule, id int64) { m.ID = id },
		(*Schedule).Apply,
		memstore.References("patients", func(m *Schedule) int64 { return m.PatientID }),
	)}
}

// ListByPatient orders by start date then intake time, matching the
// Postgres repository.
func (r scheduleMemRepo) ListByPatient(_ context.Context, patientID int64) ([]*Schedule, error) {
	out := r.Filter(func(m *Schedule) bool { return m.PatientID == patientID })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartDate != b.StartDate {
			return a.StartDate.Before(b.StartDate)
		}
		return a.IntakeTime < b.IntakeTime
	})
	return out, nil
}
