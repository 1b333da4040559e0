// Package plan persists study plans and their scheduled tasks.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

// ErrNotFound is returned for unknown plan or task ids.
// Use errors.Is to check: errors.Is(err, plan.ErrNotFound)
var ErrNotFound = errors.New("plan: not found")

const referenceSep = "|"

// Plan is a stored study plan.
type Plan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Goal      string    `json:"goal"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	Subjects  []Subject `json:"subjects"`
	Tasks     []Task    `json:"tasks,omitempty"`
}

// MarshalJSON writes the plan dates as calendar days.
func (p Plan) MarshalJSON() ([]byte, error) {
	type alias Plan
	return json.Marshal(struct {
		alias
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{alias: alias(p), StartDate: planner.FormatDate(p.StartDate), EndDate: planner.FormatDate(p.EndDate)})
}

// Subject is a subject of a stored plan. Topics is the comma-separated
// topic list the plan was built from.
type Subject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Topics string `json:"topics"`
}

// Task is a stored scheduled task. Reference holds "<text>|<url>".
type Task struct {
	ID          string                `json:"id"`
	PlanID      string                `json:"plan_id"`
	SubjectID   string                `json:"subject_id"`
	SubjectName string                `json:"subject"`
	Description string                `json:"description"`
	Reference   string                `json:"reference"`
	Difficulty  curriculum.Difficulty `json:"difficulty"`
	DueDate     time.Time             `json:"due_date"`
	Position    int                   `json:"position"`
	Completed   bool                  `json:"completed"`
}

// MarshalJSON writes DueDate as a calendar day.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	return json.Marshal(struct {
		alias
		DueDate string `json:"due_date"`
	}{alias: alias(t), DueDate: planner.FormatDate(t.DueDate)})
}

// ReferenceParts splits the stored reference into its label and link.
func (t Task) ReferenceParts() (text, link string) {
	return SplitReference(t.Reference)
}

// Scheduled converts a stored task back to a schedule entry.
func (t Task) Scheduled() planner.Task {
	text, link := t.ReferenceParts()
	return planner.Task{
		Date:          t.DueDate,
		Subject:       t.SubjectName,
		Description:   t.Description,
		ReferenceURL:  link,
		ReferenceText: text,
		Difficulty:    t.Difficulty,
	}
}

// Day is the tasks due on one date.
type Day struct {
	Date  time.Time `json:"date"`
	Tasks []Task    `json:"tasks"`
}

// MarshalJSON writes Date as a calendar day.
func (d Day) MarshalJSON() ([]byte, error) {
	type alias Day
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(d), Date: planner.FormatDate(d.Date)})
}

// Store persists plans.
type Store interface {
	CreatePlan(ctx context.Context, p Plan) (string, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	// ListPlans returns a user's plans newest first, without tasks.
	ListPlans(ctx context.Context, userID string) ([]Plan, error)
	// TasksDue returns every task of the user's plans due on date.
	TasksDue(ctx context.Context, userID string, date time.Time) ([]Task, error)
	SetTaskCompleted(ctx context.Context, taskID string, completed bool) error
}

// New assembles an unsaved plan from its subjects and generated schedule.
// Subjects sharing a name are merged.
func New(userID, title, goal string, start, end time.Time, subjects []curriculum.Subject, schedule []planner.Task) Plan {
	p := Plan{
		UserID:    userID,
		Title:     title,
		Goal:      goal,
		StartDate: start,
		EndDate:   end,
	}

	index := make(map[string]int)
	for _, sub := range subjects {
		name := strings.TrimSpace(sub.Name)
		if name == "" {
			continue
		}
		topics := topicNames(sub)
		if i, ok := index[name]; ok {
			p.Subjects[i].Topics = joinTopics(p.Subjects[i].Topics, topics)
			continue
		}
		index[name] = len(p.Subjects)
		p.Subjects = append(p.Subjects, Subject{Name: name, Topics: topics})
	}

	for i, t := range schedule {
		p.Tasks = append(p.Tasks, Task{
			SubjectName: t.Subject,
			Description: t.Description,
			Reference:   JoinReference(t.ReferenceText, t.ReferenceURL),
			Difficulty:  t.Difficulty,
			DueDate:     t.Date,
			Position:    i,
		})
	}
	return p
}

func topicNames(sub curriculum.Subject) string {
	if len(sub.Topics) == 0 {
		return strings.Join(curriculum.SplitTopics(sub.TopicList), ", ")
	}
	names := make([]string, 0, len(sub.Topics))
	for _, t := range sub.Topics {
		if n := strings.TrimSpace(t.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

func joinTopics(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + ", " + b
}

// JoinReference encodes a reference label and link for storage.
func JoinReference(text, link string) string {
	return text + referenceSep + link
}

// SplitReference decodes a stored reference. Values without a separator
// are treated as a bare label.
func SplitReference(ref string) (text, link string) {
	i := strings.LastIndex(ref, referenceSep)
	if i < 0 {
		return ref, ""
	}
	return ref[:i], ref[i+1:]
}

// GroupByDate buckets tasks by due date, dates ascending. Task order within
// a day is preserved.
func GroupByDate(tasks []Task) []Day {
	var days []Day
	index := make(map[string]int)
	for _, t := range tasks {
		key := planner.FormatDate(t.DueDate)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{Date: t.DueDate})
		}
		days[i].Tasks = append(days[i].Tasks, t)
	}
	sort.SliceStable(days, func(a, b int) bool {
		return days[a].Date.Before(days[b].Date)
	})
	return days
}
