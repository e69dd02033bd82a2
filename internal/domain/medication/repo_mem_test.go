package medication

import (
	"context"
	"testing"
	"time"

	"github.com/healthline/healthline/internal/platform/civil"
	"github.com/healthline/healthline/internal/platform/memstore"
)

func TestScheduleMemRepo_ListByPatientOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleMemRepo(memstore.New())

	jan := civil.Date{Year: 2024, Month: time.January, Day: 1}
	feb := civil.Date{Year: 2024, Month: time.February, Day: 1}
	for _, s := range []*Schedule{
		{PatientID: 1, MedicationName: "late", IntakeTime: "20:00:00", StartDate: feb, EndDate: feb, Status: StatusPending},
		{PatientID: 1, MedicationName: "evening", IntakeTime: "19:00:00", StartDate: jan, EndDate: feb, Status: StatusPending},
		{PatientID: 2, MedicationName: "other", IntakeTime: "07:00:00", StartDate: jan, EndDate: feb, Status: StatusTaken},
		{PatientID: 1, MedicationName: "morning", IntakeTime: "08:00:00", StartDate: jan, EndDate: feb, Status: StatusMissed},
	} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := repo.ListByPatient(ctx, 1)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	var names []string
	for _, s := range list {
		names = append(names, s.MedicationName)
	}
	want := []string{"morning", "evening", "late"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestSchedule_ApplyRemarks(t *testing.T) {
	s := Schedule{Status: StatusPending}
	note := "with water"
	status := StatusTaken
	if err := s.Apply(SchedulePatch{Remarks: &note, Status: &status}); err != nil {
		t.Fatal(err)
	}
	note = "changed"
	if s.Remarks == nil || *s.Remarks != "with water" {
		t.Errorf("remarks should be copied, got %v", s.Remarks)
	}
	if s.Status != StatusTaken {
		t.Errorf("status = %q", s.Status)
	}
}
