package scheduling

import "time"

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	DoctorID        *int64    `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Status          string    `json:"status"`
}

type AppointmentPatch struct {
	PatientID       *int64
	DoctorID        *int64
	AppointmentDate *time.Time
	Status          *string
}

func (a *Appointment) Apply(p AppointmentPatch) error {
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	if p.DoctorID != nil {
		id := *p.DoctorID
		a.DoctorID = &id
	}
	if p.AppointmentDate != nil {
		a.AppointmentDate = *p.AppointmentDate
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	return nil
}

type Referral struct {
	ID                       int64   `json:"id"`
	AppointmentID            int64   `json:"appointment_id"`
	ReferredToSpecialization string  `json:"referred_to_specialization"`
	Reason                   *string `json:"reason"`
	Status                   string  `json:"status"`
}

type ReferralPatch struct {
	AppointmentID            *int64
	ReferredToSpecialization *string
	Reason                   *string
	Status                   *string
}

func (r *Referral) Apply(p ReferralPatch) error {
	if p.AppointmentID != nil {
		r.AppointmentID = *p.AppointmentID
	}
	if p.ReferredToSpecialization != nil {
		r.ReferredToSpecialization = *p.ReferredToSpecialization
	}
	if p.Reason != nil {
		reason := *p.Reason
		r.Reason = &reason
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	return nil
}
