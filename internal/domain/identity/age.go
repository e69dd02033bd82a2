package identity

import (
	"github.com/healthline/healthline/internal/platform/civil"
)

const (
	AgeGroupMinor   = "minor"
	AgeGroupAdult   = "adult"
	AgeGroupElderly = "elderly"
)

// Age returns whole years between birthdate and today. The birthday counts
// as reached on its calendar day.
func Age(birthdate, today civil.Date) int {
	age := today.Year - birthdate.Year
	if today.Month < birthdate.Month || (today.Month == birthdate.Month && today.Day < birthdate.Day) {
		age--
	}
	return age
}

// AgeGroup classifies an age: under 18 is minor, 65 and over is elderly.
func AgeGroup(age int) string {
	switch {
	case age < 18:
		return AgeGroupMinor
	case age >= 65:
		return AgeGroupElderly
	default:
		return AgeGroupAdult
	}
}

// RequiresCarer reports whether a patient in group should have a carer on
// record.
func RequiresCarer(group string) bool {
	return group == AgeGroupMinor || group == AgeGroupElderly
}
