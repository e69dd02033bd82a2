package medication

import (
	"github.com/healthline/healthline/internal/platform/civil"
)

const (
	StatusTaken   = "taken"
	StatusPending = "pending"
	StatusMissed  = "missed"
)

var Statuses = []string{StatusTaken, StatusPending, StatusMissed}

// Schedule is one medication a patient takes between StartDate and EndDate.
// IntakeTime is always stored as HH:MM:SS.
type Schedule struct {
	ID             int64      `json:"id"`
	PatientID      int64      `json:"patient_id"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	IntakeTime     string     `json:"intake_time"`
	StartDate      civil.Date `json:"start_date"`
	EndDate        civil.Date `json:"end_date"`
	Status         string     `json:"status"`
	Remarks        *string    `json:"remarks"`
}

type SchedulePatch struct {
	PatientID      *int64
	MedicationName *string
	Dosage         *string
	Frequency      *string
	IntakeTime     *string
	StartDate      *civil.Date
	EndDate        *civil.Date
	Status         *string
	Remarks        *string
}

func (s *Schedule) Apply(p SchedulePatch) error {
	set(&s.PatientID, p.PatientID)
	set(&s.MedicationName, p.MedicationName)
	set(&s.Dosage, p.Dosage)
	set(&s.Frequency, p.Frequency)
	set(&s.IntakeTime, p.IntakeTime)
	set(&s.StartDate, p.StartDate)
	set(&s.EndDate, p.EndDate)
	set(&s.Status, p.Status)
	if p.Remarks != nil {
		r := *p.Remarks
		s.Remarks = &r
	}
	return nil
}

func set[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}
