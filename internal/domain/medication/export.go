package medication

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Medication Schedules"

var ExportHeader = []string{
	"Schedule ID",
	"Patient ID",
	"Patient",
	"Medication",
	"Dosage",
	"Frequency",
	"Intake Time",
	"Start Date",
	"End Date",
	"Status",
	"Remarks",
}

var exportColWidths = []float64{12, 12, 28, 24, 14, 18, 12, 12, 12, 10, 40}

// WriteWorkbook renders schedules as a single-sheet xlsx workbook. names maps
// patient ids to display names; unknown ids leave the Patient column empty.
func WriteWorkbook(w io.Writer, schedules []*Schedule, names map[int64]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(ExportHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, width := range exportColWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(exportSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, s := range schedules {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		remarks := ""
		if s.Remarks != nil {
			remarks = *s.Remarks
		}
		row := []interface{}{
			s.ID,
			s.PatientID,
			names[s.PatientID],
			s.MedicationName,
			s.Dosage,
			s.Frequency,
			s.IntakeTime,
			s.StartDate.String(),
			s.EndDate.String(),
			s.Status,
			remarks,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
