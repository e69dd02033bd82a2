package scheduling

import (
	"context"

	"github.com/healthline/healthline/internal/platform/crud"
)

type AppointmentRepository interface {
	crud.Repository[Appointment, AppointmentPatch]
	// ListByPatient returns the patient's appointments by date, oldest first.
	ListByPatient(ctx context.Context, patientID int64) ([]*Appointment, error)
}

type ReferralRepository interface {
	crud.Repository[Referral, ReferralPatch]
	ListByAppointments(ctx context.Context, appointmentIDs []int64) ([]*Referral, error)
}
