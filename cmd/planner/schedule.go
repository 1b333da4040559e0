package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

func scheduleCMD(root *rootOptions) *cobra.Command {
	var (
		start      string
		end        string
		subjects   []string
		syllabi    []string
		difficulty string
		xlsxPath   string
		minPerDay  int
		maxPerDay  int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Distribute subject topics over a date range",
		Example: `  planner schedule --start 2024-01-01 --end 2024-01-14 \
    --subject "Math=Calculus, Linear Algebra" --syllabus "CS=cs101.pdf" --xlsx plan.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(subjects) == 0 && len(syllabi) == 0 {
				return fmt.Errorf("at least one --subject or --syllabus is required")
			}
			d, err := curriculum.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}
			startDate, err := planner.ParseDate(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			endDate, err := planner.ParseDate(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			e, err := root.extractor(nil)
			if err != nil {
				return err
			}

			var inputs []curriculum.Subject
			for _, s := range subjects {
				name, topics, err := splitAssignment(s)
				if err != nil {
					return fmt.Errorf("--subject: %w", err)
				}
				inputs = append(inputs, curriculum.Subject{Name: name, TopicList: topics, Difficulty: d})
			}
			for _, s := range syllabi {
				name, path, err := splitAssignment(s)
				if err != nil {
					return fmt.Errorf("--syllabus: %w", err)
				}
				topics, err := extractFile(e, path, syllabus.UnitRange{})
				if err != nil {
					return err
				}
				inputs = append(inputs, curriculum.Subject{Name: name, Topics: topics, Difficulty: d})
			}

			g := planner.NewGenerator(planner.Config{
				Predictor:      e.Predictor(),
				MinTasksPerDay: minPerDay,
				MaxTasksPerDay: maxPerDay,
			})
			tasks := g.Generate(inputs, startDate, endDate)

			if xlsxPath == "" {
				if tasks == nil {
					tasks = []planner.Task{}
				}
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			return writeXLSX(xlsxPath, tasks)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&subjects, "subject", nil, `subject and comma-separated topics, "Name=topic a, topic b" (repeatable)`)
	cmd.Flags().StringArrayVar(&syllabi, "syllabus", nil, `subject and syllabus file, "Name=path" (repeatable)`)
	cmd.Flags().StringVar(&difficulty, "difficulty", "auto", "subject difficulty: auto, easy, medium or hard")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the schedule to this spreadsheet instead of stdout")
	cmd.Flags().IntVar(&minPerDay, "min-per-day", 3, "minimum tasks per day")
	cmd.Flags().IntVar(&maxPerDay, "max-per-day", 6, "maximum tasks per day")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

// splitAssignment splits "Name=value" at the first '='.
func splitAssignment(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected Name=value, got %q", s)
	}
	return name, strings.TrimSpace(value), nil
}

func writeXLSX(path string, tasks []planner.Task) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := planner.ExportXLSX(f, tasks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
