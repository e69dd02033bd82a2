package action

import (
	"context"

	"github.com/healthline/healthline/internal/domain/clinical"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/civil"
	"github.com/healthline/healthline/internal/platform/crud"
)

var (
	conditionRequired = []string{"patient_id", "condition_name", "severity_level"}
	conditionFields   = append(append([]string(nil), conditionRequired...), "diagnosed_date")
)

func readConditionPatch(r *reader) clinical.ConditionPatch {
	return clinical.ConditionPatch{
		PatientID:     r.id("patient_id"),
		ConditionName: r.text("condition_name"),
		SeverityLevel: r.enum("severity_level", clinical.SeverityLevels),
		DiagnosedDate: r.date("diagnosed_date"),
	}
}

// NewConditionDispatcher serves handle_condition_action. today supplies the
// diagnosed_date of a new condition that has none.
func NewConditionDispatcher(conditions clinical.ConditionRepository, today func() civil.Date) *Dispatcher {
	if today == nil {
		today = civil.Today
	}
	svc := crud.NewService[clinical.Condition, clinical.ConditionPatch]("condition", conditions)
	d := newDispatcher("handle_condition_action", "Create, read, update, delete or list patient conditions.")
	d.handle("create_condition", func(ctx context.Context, p payload) (any, error) {
		if err := p.require(conditionRequired...); err != nil {
			return nil, err
		}
		if err := p.only(conditionFields...); err != nil {
			return nil, err
		}
		r := newReader(p)
		patch := readConditionPatch(r)
		if r.err != nil {
			return nil, r.err
		}
		if patch.DiagnosedDate == nil {
			day := today()
			patch.DiagnosedDate = &day
		}
		var rec clinical.Condition
		if err := rec.Apply(patch); err != nil {
			return nil, err
		}
		return svc.Create(ctx, &rec)
	})
	d.handle("read_condition", readByID(svc, "condition_id"))
	d.handle("update_condition", updateByID(svc, patchSpec[clinical.ConditionPatch]{
		idField:  "condition_id",
		fields:   conditionFields,
		required: conditionRequired,
		read:     readConditionPatch,
	}))
	d.handle("delete_condition", deleteByID(svc, "condition_id"), auth.RoleAdmin, auth.RoleDoctor)
	d.handle("list_conditions", listAll(svc))
	return d
}
