package planner_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

func TestExportXLSX(t *testing.T) {
	g := newGenerator()
	tasks := g.GenerateRange([]curriculum.Subject{
		{Name: "Math", Topics: []curriculum.Topic{{Name: "Limits", Difficulty: curriculum.Easy, Reference: "Stewart, Calculus"}}},
		{Name: "CS", TopicList: "Arrays", Difficulty: curriculum.Medium},
	}, "2024-01-01", "2024-01-03")

	var buf bytes.Buffer
	if err := planner.ExportXLSX(&buf, tasks); err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(planner.SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != len(tasks)+1 {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(tasks)+1)
	}
	if rows[0][0] != "Date" || rows[0][5] != "Link" {
		t.Errorf("header = %v", rows[0])
	}

	first := rows[1]
	if first[0] != "2024-01-01" || first[1] != "Math" || first[2] != "[Easy] Limits" {
		t.Errorf("first row = %v", first)
	}
	if first[3] != "Easy" || first[4] != "Ref: Stewart, Calculus" {
		t.Errorf("first row difficulty/reference = %v", first)
	}
}

func TestExportXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := planner.ExportXLSX(&buf, nil); err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even without tasks")
	}
}
