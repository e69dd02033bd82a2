package action

import (
	"context"

	"github.com/healthline/healthline/internal/domain/medication"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/civil"
	"github.com/healthline/healthline/internal/platform/crud"
)

var (
	medicationRequired = []string{
		"patient_id", "medication_name", "dosage", "frequency",
		"intake_time", "start_date", "end_date", "status",
	}
	medicationFields = append(append([]string(nil), medicationRequired...), "remarks")
)

func readSchedulePatch(r *reader) medication.SchedulePatch {
	return medication.SchedulePatch{
		PatientID:      r.id("patient_id"),
		MedicationName: r.lower("medication_name"),
		Dosage:         r.text("dosage"),
		Frequency:      r.text("frequency"),
		IntakeTime:     r.clock("intake_time"),
		StartDate:      r.date("start_date"),
		EndDate:        r.date("end_date"),
		Status:         r.enum("status", medication.Statuses),
		Remarks:        r.text("remarks"),
	}
}

func checkPeriod(start, end civil.Date) error {
	if end.Before(start) {
		return invalidFormat("end_date must not be before start_date")
	}
	return nil
}

// NewMedicationDispatcher serves handle_medication_action.
func NewMedicationDispatcher(schedules medication.ScheduleRepository) *Dispatcher {
	svc := crud.NewService[medication.Schedule, medication.SchedulePatch]("medication", schedules)
	d := newDispatcher("handle_medication_action", "Create, read, update, delete or list medication schedules.")
	d.handle("create_medication", func(ctx context.Context, p payload) (any, error) {
		if err := p.require(medicationRequired...); err != nil {
			return nil, err
		}
		if err := p.only(medicationFields...); err != nil {
			return nil, err
		}
		r := newReader(p)
		patch := readSchedulePatch(r)
		if r.err != nil {
			return nil, r.err
		}
		if err := checkPeriod(*patch.StartDate, *patch.EndDate); err != nil {
			return nil, err
		}
		var rec medication.Schedule
		if err := rec.Apply(patch); err != nil {
			return nil, err
		}
		return svc.Create(ctx, &rec)
	})
	d.handle("read_medication", readByID(svc, "medication_id"))
	d.handle("update_medication", updateByID(svc, patchSpec[medication.SchedulePatch]{
		idField:  "medication_id",
		fields:   medicationFields,
		required: medicationRequired,
		read:     readSchedulePatch,
		check: func(ctx context.Context, id int64, patch medication.SchedulePatch) error {
			if patch.StartDate == nil && patch.EndDate == nil {
				return nil
			}
			cur, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			next := *cur
			if err := next.Apply(patch); err != nil {
				return err
			}
			return checkPeriod(next.StartDate, next.EndDate)
		},
	}))
	d.handle("delete_medication", deleteByID(svc, "medication_id"), auth.RoleAdmin, auth.RoleDoctor)
	d.handle("list_medications", listAll(svc))
	return d
}
