package planner

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by ExportXLSX.
const SheetName = "Schedule"

var exportHeader = []any{"Date", "Subject", "Task", "Difficulty", "Reference", "Link"}

// ExportXLSX writes tasks as a single-sheet spreadsheet, one row per task.
func ExportXLSX(w io.Writer, tasks []Task) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, t := range tasks {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{
			FormatDate(t.Date),
			t.Subject,
			t.Description,
			t.Difficulty.Label(),
			t.ReferenceText,
			t.ReferenceURL,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if t.ReferenceURL != "" {
			link := fmt.Sprintf("F%d", row)
			if err := f.SetCellHyperLink(SheetName, link, t.ReferenceURL, "External"); err != nil {
				return fmt.Errorf("link row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "B", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "C", "C", 48); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write spreadsheet: %w", err)
	}
	return nil
}
