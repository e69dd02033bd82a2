package scheduling

import (
	"context"
	"sort"

	"github.com/healthline/healthline/internal/platform/memstore"
)

type appointmentMemRepo struct {
	*memstore.Table[Appointment, AppointmentPatch]
}

func NewAppointmentMemRepo(s *memstore.Store) AppointmentRepository {
	return appointmentMemRepo{memstore.NewTable(s,
		func(a *Appointment, id int64) { a.ID = id },
		(*Appointment).Apply,
		memstore.Named[Appointment]("appointments"),
		memstore.References("patients", func(a *Appointment) int64 { return a.PatientID }),
		memstore.References("doctors", func(a *Appointment) int64 { return memstore.Optional(a.DoctorID) }),
	)}
}

func (r appointmentMemRepo) ListByPatient(_ context.Context, patientID int64) ([]*Appointment, error) {
	out := r.Filter(func(a *Appointment) bool { return a.PatientID == patientID })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	return out, nil
}

type referralMemRepo struct {
	*memstore.Table[Referral, ReferralPatch]
}

func NewReferralMemRepo(s *memstore.Store) ReferralRepository {
	return referralMemRepo{memstore.NewTable(s,
		func(r *Referral, id int64) { r.ID = id },
		(*Referral).Apply,
		memstore.References("appointments", func(r *Referral) int64 { return r.AppointmentID }),
	)}
}

func (r referralMemRepo) ListByAppointments(_ context.Context, appointmentIDs []int64) ([]*Referral, error) {
	want := make(map[int64]bool, len(appointmentIDs))
	for _, id := range appointmentIDs {
		want[id] = true
	}
	return r.Filter(func(ref *Referral) bool { return want[ref.AppointmentID] }), nil
}
