package plan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-planner/internal/planner"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*Plan
	order []string // creation order
	now   func() time.Time
}

// NewMemoryStore creates a new in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans: make(map[string]*Plan),
		now:   time.Now,
	}
}

func (s *MemoryStore) CreatePlan(_ context.Context, p Plan) (string, error) {
	if err := validatePlan(p); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p = clonePlan(p)
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()

	subjectIDs := make(map[string]string, len(p.Subjects))
	for i := range p.Subjects {
		p.Subjects[i].ID = uuid.NewString()
		subjectIDs[p.Subjects[i].Name] = p.Subjects[i].ID
	}
	for i := range p.Tasks {
		t := &p.Tasks[i]
		sid, ok := subjectIDs[t.SubjectName]
		if !ok {
			return "", fmt.Errorf("task %d: unknown subject %q", i, t.SubjectName)
		}
		t.ID = uuid.NewString()
		t.PlanID = p.ID
		t.SubjectID = sid
	}

	s.plans[p.ID] = &p
	s.order = append(s.order, p.ID)
	return p.ID, nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, id)
	}
	out := clonePlan(*p)
	sortTasks(out.Tasks)
	return &out, nil
}

func (s *MemoryStore) ListPlans(_ context.Context, userID string) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := []Plan{}
	for i := len(s.order) - 1; i >= 0; i-- {
		p := s.plans[s.order[i]]
		if p.UserID != userID {
			continue
		}
		summary := clonePlan(*p)
		summary.Tasks = nil
		plans = append(plans, summary)
	}
	return plans, nil
}

func (s *MemoryStore) TasksDue(_ context.Context, userID string, date time.Time) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := planner.FormatDate(date)
	tasks := []Task{}
	for _, id := range s.order {
		p := s.plans[id]
		if p.UserID != userID {
			continue
		}
		var due []Task
		for _, t := range p.Tasks {
			if planner.FormatDate(t.DueDate) == day {
				due = append(due, t)
			}
		}
		sortTasks(due)
		tasks = append(tasks, due...)
	}
	return tasks, nil
}

func (s *MemoryStore) SetTaskCompleted(_ context.Context, taskID string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.plans {
		for i := range p.Tasks {
			if p.Tasks[i].ID == taskID {
				p.Tasks[i].Completed = completed
				return nil
			}
		}
	}
	return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
}

func validatePlan(p Plan) error {
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("end_date is before start_date")
	}
	return nil
}

func clonePlan(p Plan) Plan {
	p.Subjects = append([]Subject(nil), p.Subjects...)
	p.Tasks = append([]Task(nil), p.Tasks...)
	return p
}

func sortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].DueDate.Equal(tasks[j].DueDate) {
			return tasks[i].DueDate.Before(tasks[j].DueDate)
		}
		return tasks[i].Position < tasks[j].Position
	})
}
