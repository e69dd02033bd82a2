package action

import (
	"context"

	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/crud"
)

var (
	carerRequired = []string{"patient_id", "full_name", "relationship_to_patient", "contact_number"}
	carerFields   = append(append([]string(nil), carerRequired...), "notes")
)

func readCarerPatch(r *reader) identity.CarerPatch {
	return identity.CarerPatch{
		PatientID:             r.id("patient_id"),
		FullName:              r.text("full_name"),
		RelationshipToPatient: r.text("relationship_to_patient"),
		ContactNumber:         r.text("contact_number"),
		Notes:                 r.text("notes"),
	}
}

// NewCarerDispatcher serves handle_carer_action.
func NewCarerDispatcher(carers identity.CarerRepository) *Dispatcher {
	svc := crud.NewService[identity.Carer, identity.CarerPatch]("carer", carers)
	d := newDispatcher("handle_carer_action", "Create, read, update, delete or list carers of a patient.")
	d.handle("create_carer", func(ctx context.Context, p payload) (any, error) {
		if err := p.require(carerRequired...); err != nil {
			return nil, err
		}
		if err := p.only(carerFields...); err != nil {
			return nil, err
		}
		r := newReader(p)
		patch := readCarerPatch(r)
		if r.err != nil {
			return nil, r.err
		}
		var rec identity.Carer
		if err := rec.Apply(patch); err != nil {
			return nil, err
		}
		return svc.Create(ctx, &rec)
	})
	d.handle("read_carer", readByID(svc, "carer_id"))
	d.handle("update_carer", updateByID(svc, patchSpec[identity.CarerPatch]{
		idField:  "carer_id",
		fields:   carerFields,
		required: carerRequired,
		read:     readCarerPatch,
	}))
	d.handle("delete_carer", deleteByID(svc, "carer_id"), auth.RoleAdmin, auth.RoleDoctor)
	d.handle("list_carers", listAll(svc))
	return d
}
