// Package profile assembles the read-only patient profile shown on the
// dashboard: demographics with the derived age group, and every record
// linked to the patient.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthline/healthline/internal/domain/clinical"
	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/domain/medication"
	"github.com/healthline/healthline/internal/domain/scheduling"
	"github.com/healthline/healthline/internal/platform/civil"
	"github.com/healthline/healthline/internal/platform/crud"
)

type PatientView struct {
	identity.Patient
	Age           *int    `json:"age"`
	AgeGroup      *string `json:"age_group"`
	RequiresCarer bool    `json:"requires_carer"`
}

type AppointmentView struct {
	AppointmentID  int64     `json:"appointment_id"`
	Doctor         *string   `json:"doctor"`
	Specialization *string   `json:"specialization"`
	Date           time.Time `json:"date"`
	Status         string    `json:"status"`
}

type Profile struct {
	Patient      PatientView            `json:"patient"`
	Conditions   []*clinical.Condition  `json:"conditions"`
	Carers       []*identity.Carer      `json:"carers"`
	Medications  []*medication.Schedule `json:"medications"`
	Appointments []AppointmentView      `json:"appointments"`
	Referrals    []*scheduling.Referral `json:"referrals"`
	Warnings     []string               `json:"warnings"`
}

type Repos struct {
	Patients     identity.PatientRepository
	Carers       identity.CarerRepository
	Doctors      identity.DoctorRepository
	Conditions   clinical.ConditionRepository
	Medications  medication.ScheduleRepository
	Appointments scheduling.AppointmentRepository
	Referrals    scheduling.ReferralRepository
}

type Service struct {
	repos Repos
	today func() civil.Date
}

func NewService(repos Repos) *Service {
	return &Service{repos: repos, today: civil.Today}
}

// Get returns crud.ErrNotFound when the patient does not exist.
func (s *Service) Get(ctx context.Context, patientID int64) (*Profile, error) {
	p, err := s.repos.Patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, crud.ErrNotFound) {
			return nil, fmt.Errorf("patient %w", crud.ErrNotFound)
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}

	out := &Profile{
		Patient:      s.view(p),
		Appointments: []AppointmentView{},
		Warnings:     []string{},
	}

	conditions, err := s.repos.Conditions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	carers, err := s.repos.Carers.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list carers: %w", err)
	}
	meds, err := s.repos.Medications.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	out.Conditions = nonNil(conditions)
	out.Carers = nonNil(carers)
	out.Medications = nonNil(meds)

	appts, err := s.repos.Appointments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	ids := make([]int64, 0, len(appts))
	for _, a := range appts {
		view, err := s.appointmentView(ctx, a)
		if err != nil {
			return nil, err
		}
		out.Appointments = append(out.Appointments, view)
		ids = append(ids, a.ID)
	}
	referrals, err := s.repos.Referrals.ListByAppointments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	out.Referrals = nonNil(referrals)

	if out.Patient.RequiresCarer && len(out.Carers) == 0 {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("Patient is %s and has no carer on record.", article(*out.Patient.AgeGroup)))
	}
	return out, nil
}

func (s *Service) view(p *identity.Patient) PatientView {
	v := PatientView{Patient: *p}
	if p.Birthdate.IsZero() {
		return v
	}
	age := identity.Age(p.Birthdate, s.today())
	group := identity.AgeGroup(age)
	v.Age = &age
	v.AgeGroup = &group
	v.RequiresCarer = identity.RequiresCarer(group)
	return v
}

// appointmentView joins the doctor; a missing or deleted doctor leaves the
// doctor fields null.
func (s *Service) appointmentView(ctx context.Context, a *scheduling.Appointment) (AppointmentView, error) {
	v := AppointmentView{AppointmentID: a.ID, Date: a.AppointmentDate, Status: a.Status}
	if a.DoctorID == nil {
		return v, nil
	}
	d, err := s.repos.Doctors.Get(ctx, *a.DoctorID)
	if errors.Is(err, crud.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("get doctor %d: %w", *a.DoctorID, err)
	}
	v.Doctor = &d.FullName
	v.Specialization = &d.Specialization
	return v, nil
}

// nonNil keeps empty lists rendered as [] rather than null.
func nonNil[T any](rows []*T) []*T {
	if rows == nil {
		return []*T{}
	}
	return rows
}

func article(group string) string {
	if group == identity.AgeGroupElderly {
		return "an elderly patient"
	}
	return "a " + group
}
