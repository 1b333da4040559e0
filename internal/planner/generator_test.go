package planner_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

func newGenerator() *planner.Generator {
	return planner.NewGenerator(planner.Config{
		Predictor: syllabus.NewPredictor(curriculum.DefaultRules()),
	})
}

func day(s string) time.Time {
	t, err := planner.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func partsByTopic(tasks []planner.Task) map[string][]planner.Task {
	out := make(map[string][]planner.Task)
	for _, t := range tasks {
		out[t.Topic] = append(out[t.Topic], t)
	}
	return out
}

func TestGenerate_EndToEndScenario(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{
		{Name: "Math", TopicList: "Calculus, Advanced Optimization"},
		{Name: "CS", TopicList: "Arrays, Distributed Systems Theory"},
	}

	tasks := g.GenerateRange(subjects, "2024-01-01", "2024-01-04")

	parts := partsByTopic(tasks)
	for _, topic := range []string{"Advanced Optimization", "Distributed Systems Theory"} {
		got := parts[topic]
		if len(got) != 3 {
			t.Fatalf("%s: %d tasks, want 3", topic, len(got))
		}
		if got[0].Difficulty != curriculum.Hard {
			t.Errorf("%s: difficulty = %v, want Hard", topic, got[0].Difficulty)
		}
	}
	for _, topic := range []string{"Calculus", "Arrays"} {
		got := parts[topic]
		if len(got) < 1 || len(got) > 2 {
			t.Errorf("%s: %d tasks, want 1 or 2", topic, len(got))
		}
	}

	start, end := day("2024-01-01"), day("2024-01-04")
	for _, task := range tasks {
		if task.Date.Before(start) || task.Date.After(end) {
			t.Errorf("task %q dated %s outside range", task.Description, planner.FormatDate(task.Date))
		}
	}

	if tasks[0].Subject != "Math" || tasks[1].Subject != "CS" {
		t.Errorf("first day should alternate subjects, got %s then %s", tasks[0].Subject, tasks[1].Subject)
	}
}

func TestGenerate_PartsMatchTier(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{{
		Name: "Physics",
		Topics: []curriculum.Topic{
			{Name: "Units", Difficulty: curriculum.Easy},
			{Name: "Kinematics", Difficulty: curriculum.Medium},
			{Name: "Rigid bodies", Difficulty: curriculum.Hard},
		},
	}}

	tasks := g.Generate(subjects, day("2024-03-01"), day("2024-03-10"))

	want := map[string]int{"Units": 1, "Kinematics": 2, "Rigid bodies": 3}
	for topic, n := range want {
		got := partsByTopic(tasks)[topic]
		if len(got) != n {
			t.Fatalf("%s: %d tasks, want %d", topic, len(got), n)
		}
		for i, task := range got {
			if task.Part != i+1 || task.TotalParts != n {
				t.Errorf("%s: part %d/%d, want %d/%d", topic, task.Part, task.TotalParts, i+1, n)
			}
		}
	}
}

func TestGenerate_Descriptions(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{{
		Name: "Physics",
		Topics: []curriculum.Topic{
			{Name: "Units", Difficulty: curriculum.Easy},
			{Name: "Rigid bodies", Difficulty: curriculum.Hard},
		},
	}}

	tasks := g.Generate(subjects, day("2024-03-01"), day("2024-03-10"))

	want := []string{
		"[Easy] Units",
		"[Hard] Rigid bodies (Part 1/3)",
		"[Hard] Rigid bodies (Part 2/3)",
		"[Hard] Rigid bodies (Part 3/3)",
	}
	if len(tasks) != len(want) {
		t.Fatalf("len(tasks) = %d, want %d", len(tasks), len(want))
	}
	for i := range want {
		if tasks[i].Description != want[i] {
			t.Errorf("tasks[%d].Description = %q, want %q", i, tasks[i].Description, want[i])
		}
	}
}

func TestGenerate_Fairness(t *testing.T) {
	g := newGenerator()
	var subjects []curriculum.Subject
	for _, name := range []string{"A", "B", "C"} {
		var topics []curriculum.Topic
		for i := 1; i <= 6; i++ {
			topics = append(topics, curriculum.Topic{Name: fmt.Sprintf("%s topic %d", name, i), Difficulty: curriculum.Easy})
		}
		subjects = append(subjects, curriculum.Subject{Name: name, Topics: topics})
	}

	tasks := g.Generate(subjects, day("2024-05-01"), day("2024-05-06"))
	if len(tasks) != 18 {
		t.Fatalf("len(tasks) = %d, want 18", len(tasks))
	}

	perDay := make(map[string]map[string]int)
	for _, task := range tasks {
		d := planner.FormatDate(task.Date)
		if perDay[d] == nil {
			perDay[d] = make(map[string]int)
		}
		perDay[d][task.Subject]++
	}

	idle := map[string]int{}
	for i := 0; i < 6; i++ {
		d := planner.FormatDate(day("2024-05-01").AddDate(0, 0, i))
		if len(perDay[d]) == 0 {
			continue
		}
		for _, s := range []string{"A", "B", "C"} {
			if perDay[d][s] == 0 {
				idle[s]++
				if idle[s] > 2 {
					t.Errorf("subject %s idle for %d consecutive days while others work", s, idle[s])
				}
			} else {
				idle[s] = 0
			}
		}
	}
}

func TestGenerate_RotatesFirstSubject(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{
		{Name: "A", TopicList: "a1, a2, a3", Difficulty: curriculum.Easy},
		{Name: "B", TopicList: "b1, b2, b3", Difficulty: curriculum.Easy},
	}

	tasks := g.Generate(subjects, day("2024-01-01"), day("2024-01-03"))

	firstOfDay := map[string]string{}
	for _, task := range tasks {
		d := planner.FormatDate(task.Date)
		if _, ok := firstOfDay[d]; !ok {
			firstOfDay[d] = task.Subject
		}
	}
	if firstOfDay["2024-01-01"] != "A" || firstOfDay["2024-01-02"] != "B" {
		t.Errorf("first subjects = %v, want A then B", firstOfDay)
	}
}

func TestGenerate_EmptyRanges(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{{Name: "Math", TopicList: "Calculus"}}

	tests := []struct {
		name       string
		start, end string
	}{
		{"inverted", "2024-02-10", "2024-02-01"},
		{"bad start", "tomorrow", "2024-02-01"},
		{"bad end", "2024-02-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tasks := g.GenerateRange(subjects, tt.start, tt.end); len(tasks) != 0 {
				t.Errorf("GenerateRange() = %d tasks, want none", len(tasks))
			}
		})
	}
}

func TestGenerate_SingleDay(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{{Name: "Math", TopicList: "Calculus", Difficulty: curriculum.Easy}}

	tasks := g.GenerateRange(subjects, "2024-02-01", "2024-02-01")
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
}

func TestGenerate_Placeholder(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{{Name: "Chemistry", TopicList: " , ,", Difficulty: curriculum.Medium}}

	tasks := g.Generate(subjects, day("2024-01-01"), day("2024-01-05"))
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if tasks[0].Topic != "Fundamentals of Chemistry" {
		t.Errorf("Topic = %q, want placeholder", tasks[0].Topic)
	}
}

func TestGenerate_SkipsBlankInput(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{
		{Name: "  "},
		{Name: "Math", Topics: []curriculum.Topic{{Name: " "}, {Name: "Limits", Difficulty: curriculum.Easy}}},
	}

	tasks := g.Generate(subjects, day("2024-01-01"), day("2024-01-05"))
	if len(tasks) != 1 || tasks[0].Topic != "Limits" {
		t.Errorf("tasks = %+v, want only Limits", tasks)
	}
}

func TestGenerate_MergesSubjectsByName(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{
		{Name: "Math", TopicList: "Limits", Difficulty: curriculum.Easy},
		{Name: "Art", TopicList: "Color", Difficulty: curriculum.Easy},
		{Name: "Math", TopicList: "Series", Difficulty: curriculum.Easy},
	}

	tasks := g.Generate(subjects, day("2024-01-01"), day("2024-01-01"))

	var order []string
	for _, task := range tasks {
		order = append(order, task.Topic)
	}
	if got := strings.Join(order, ","); got != "Limits,Color,Series" {
		t.Errorf("order = %s, want Limits,Color,Series", got)
	}
}

func TestGenerate_SubjectDifficultyOverridesPrediction(t *testing.T) {
	g := newGenerator()
	subjects := []curriculum.Subject{{Name: "Math", TopicList: "Advanced Optimization", Difficulty: curriculum.Easy}}

	tasks := g.Generate(subjects, day("2024-01-01"), day("2024-01-05"))
	if len(tasks) != 1 || tasks[0].Difficulty != curriculum.Easy {
		t.Errorf("tasks = %+v, want one Easy task", tasks)
	}
}

func TestGenerate_DropsOverflow(t *testing.T) {
	g := planner.NewGenerator(planner.Config{MinTasksPerDay: 1, MaxTasksPerDay: 1})
	subjects := []curriculum.Subject{{Name: "Math", TopicList: "a, b, c, d", Difficulty: curriculum.Easy}}

	tasks := g.Generate(subjects, day("2024-01-01"), day("2024-01-02"))
	if len(tasks) != 2 {
		t.Errorf("len(tasks) = %d, want 2 (one per day)", len(tasks))
	}
}

func TestGenerate_NilPredictorDefaultsMedium(t *testing.T) {
	g := planner.NewGenerator(planner.Config{})
	tasks := g.Generate([]curriculum.Subject{{Name: "Math", TopicList: "Limits"}}, day("2024-01-01"), day("2024-01-05"))

	if len(tasks) != 2 || tasks[0].Difficulty != curriculum.Medium {
		t.Errorf("tasks = %+v, want two Medium parts", tasks)
	}
}

func TestReference(t *testing.T) {
	g := planner.NewGenerator(planner.Config{SearchURL: "https://search.example/?q="})

	link, label := g.Reference("CS", curriculum.Topic{Name: "Heaps", Reference: "Cormen, Introduction to Algorithms"})
	if link != "https://search.example/?q=Cormen%2C+Introduction+to+Algorithms" {
		t.Errorf("link = %q", link)
	}
	if label != "Ref: Cormen, Introduction to Algorithms" {
		t.Errorf("label = %q", label)
	}

	link, label = g.Reference("CS", curriculum.Topic{Name: "Heaps"})
	if link != "https://search.example/?q=CS+Heaps+tutorial+free+course" {
		t.Errorf("generic link = %q", link)
	}
	if !strings.Contains(label, "Heaps") {
		t.Errorf("generic label = %q, want topic name", label)
	}
}

func TestTask_MarshalJSON(t *testing.T) {
	task := planner.Task{Date: day("2024-01-02"), Subject: "CS", Difficulty: curriculum.Hard, Part: 1, TotalParts: 3}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["date"] != "2024-01-02" {
		t.Errorf("date = %v, want 2024-01-02", got["date"])
	}
	if got["difficulty"] != float64(3) {
		t.Errorf("difficulty = %v, want 3", got["difficulty"])
	}
}
