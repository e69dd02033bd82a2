package clinical

import (
	"github.com/healthline/healthline/internal/platform/civil"
)

const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

var SeverityLevels = []string{SeverityMild, SeverityModerate, SeveritySevere}

type Condition struct {
	ID            int64      `json:"id"`
	PatientID     int64      `json:"patient_id"`
	ConditionName string     `json:"condition_name"`
	SeverityLevel string     `json:"severity_level"`
	DiagnosedDate civil.Date `json:"diagnosed_date"`
}

type ConditionPatch struct {
	PatientID     *int64
	ConditionName *string
	SeverityLevel *string
	DiagnosedDate *civil.Date
}

func (c *Condition) Apply(p ConditionPatch) error {
	if p.PatientID != nil {
		c.PatientID = *p.PatientID
	}
	if p.ConditionName != nil {
		c.ConditionName = *p.ConditionName
	}
	if p.SeverityLevel != nil {
		c.SeverityLevel = *p.SeverityLevel
	}
	if p.DiagnosedDate != nil {
		c.DiagnosedDate = *p.DiagnosedDate
	}
	return nil
}
