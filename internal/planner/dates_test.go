package planner_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain date", "2024-01-15", false},
		{"surrounding spaces", " 2024-01-15 ", false},
		{"iso datetime", "2024-01-15T10:30:00Z", false},
		{"iso datetime with offset", "2024-01-15T23:59:59+05:30", false},
		{"empty", "", true},
		{"words", "next monday", true},
		{"day first", "15-01-2024", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planner.ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}

func TestGenerate_NormalizesTimeOfDay(t *testing.T) {
	g := planner.NewGenerator(planner.Config{})
	start := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
	subjects := []curriculum.Subject{{Name: "Math", TopicList: "a1, a2, a3, a4", Difficulty: curriculum.Easy}}

	tasks := g.Generate(subjects, start, end)
	if len(tasks) != 4 {
		t.Fatalf("len(tasks) = %d, want 4 across two calendar days", len(tasks))
	}
	for _, task := range tasks {
		if task.Date.Hour() != 0 {
			t.Errorf("task date %v not at midnight", task.Date)
		}
	}
	if got := planner.FormatDate(tasks[3].Date); got != "2024-01-02" {
		t.Errorf("last task date = %s, want 2024-01-02", got)
	}
}
