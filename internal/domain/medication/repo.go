package medication

import (
	"context"

	"github.com/healthline/healthline/internal/platform/crud"
)

type ScheduleRepository interface {
	crud.Repository[Schedule, SchedulePatch]
	ListByPatient(ctx context.Context, patientID int64) ([]*Schedule, error)
}
