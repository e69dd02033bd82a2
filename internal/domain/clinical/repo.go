package clinical

import (
	"context"

	"github.com/healthline/healthline/internal/platform/crud"
)

type ConditionRepository interface {
	crud.Repository[Condition, ConditionPatch]
	ListByPatient(ctx context.Context, patientID int64) ([]*Condition, error)
}
