package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

type subjectRequest struct {
	Name            string             `json:"name"`
	Topics          string             `json:"topics"`
	Difficulty      difficultyValue    `json:"difficulty"`
	ExtractedTopics []curriculum.Topic `json:"extracted_topics"`
}

// difficultyValue accepts "hard", "3" or 3.
type difficultyValue string

func (d *difficultyValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = difficultyValue(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("difficulty must be a string or integer")
	}
	*d = difficultyValue(strconv.Itoa(n))
	return nil
}

type scheduleRequest struct {
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Subjects  []subjectRequest `json:"subjects"`
}

type createPlanRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Goal   string `json:"goal"`
	scheduleRequest
}

type toggleTaskRequest struct {
	Completed bool `json:"completed"`
}

// toSubjects converts request subjects. An omitted difficulty means Medium;
// "auto" asks for per-topic inference.
func toSubjects(reqs []subjectRequest) ([]curriculum.Subject, error) {
	subjects := make([]curriculum.Subject, 0, len(reqs))
	for _, r := range reqs {
		d := curriculum.Medium
		if strings.TrimSpace(string(r.Difficulty)) != "" {
			parsed, err := curriculum.ParseDifficulty(string(r.Difficulty))
			if err != nil {
				return nil, fmt.Errorf("subject %q: %w", r.Name, err)
			}
			d = parsed
		}

		sub := curriculum.Subject{Name: r.Name, Difficulty: d}
		if len(r.ExtractedTopics) > 0 {
			sub.Topics = append(sub.Topics, r.ExtractedTopics...)
			for _, name := range curriculum.SplitTopics(r.Topics) {
				sub.Topics = append(sub.Topics, curriculum.Topic{Name: name})
			}
		} else {
			sub.TopicList = r.Topics
		}
		subjects = append(subjects, sub)
	}
	return subjects, nil
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, r, err)
			return
		}
		s.writeError(w, r, invalidf("multipart form required: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, invalidf("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	rng := syllabus.ParseUnitRange(r.FormValue("unit_start"), r.FormValue("unit_end"))
	doc := syllabus.Document{Name: header.Filename, Data: data}

	start := time.Now()
	topics, err := s.extractor.Extract(r.Context(), doc, rng)
	s.metrics.extractDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Info("syllabus extraction failed", "document", doc.Name, "error", err)
		s.writeError(w, r, err)
		return
	}
	if topics == nil {
		topics = []curriculum.Topic{}
	}
	s.metrics.topicsExtracted.Add(float64(len(topics)))

	s.logEvent(plan.Event{
		UserID:    r.FormValue("user_id"),
		EventType: plan.EventSyllabusExtracted,
		Data: map[string]any{
			"document":   doc.Name,
			"bytes":      len(data),
			"topics":     len(topics),
			"unit_start": rng.Start,
			"unit_end":   rng.End,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, s.schemas.preview, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	subjects, err := toSubjects(req.Subjects)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tasks := s.generator.GenerateRange(subjects, req.StartDate, req.EndDate)
	if tasks == nil {
		tasks = []planner.Task{}
	}
	s.metrics.tasksGenerated.Add(float64(len(tasks)))

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(w, r, s.schemas.createPlan, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	subjects, err := toSubjects(req.Subjects)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start, err := planner.ParseDate(req.StartDate)
	if err != nil {
		s.writeError(w, r, invalidf("start_date: %v", err))
		return
	}
	end, err := planner.ParseDate(req.EndDate)
	if err != nil {
		s.writeError(w, r, invalidf("end_date: %v", err))
		return
	}
	if end.Before(start) {
		s.writeError(w, r, invalidf("end_date is before start_date"))
		return
	}

	tasks := s.generator.Generate(subjects, start, end)
	s.metrics.tasksGenerated.Add(float64(len(tasks)))

	p := plan.New(req.UserID, req.Title, req.Goal, start, end, subjects, tasks)
	id, err := s.store.CreatePlan(r.Context(), p)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("create plan: %w", err))
		return
	}

	slog.Info("plan created", "plan_id", id, "user_id", req.UserID, "tasks", len(tasks))
	s.logEvent(plan.Event{
		PlanID:    id,
		UserID:    req.UserID,
		EventType: plan.EventPlanCreated,
		Data: map[string]any{
			"subjects": len(p.Subjects),
			"tasks":    len(tasks),
			"days":     int(end.Sub(start).Hours()/24) + 1,
		},
	})

	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "tasks": len(tasks)})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	days := plan.GroupByDate(p.Tasks)
	if days == nil {
		days = []plan.Day{}
	}
	p.Tasks = nil

	writeJSON(w, http.StatusOK, map[string]any{"plan": p, "days": days})
}

func (s *Server) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.store.GetPlan(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tasks := make([]planner.Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, t.Scheduled())
	}

	var buf bytes.Buffer
	if err := planner.ExportXLSX(&buf, tasks); err != nil {
		s.writeError(w, r, fmt.Errorf("export plan %s: %w", id, err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="plan-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write export", "plan_id", id, "error", err)
	}
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListPlans(r.Context(), r.PathValue("user"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	day := s.now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := planner.ParseDate(v)
		if err != nil {
			s.writeError(w, r, invalidf("date: %v", err))
			return
		}
		day = parsed
	}

	tasks, err := s.store.TasksDue(r.Context(), r.PathValue("user"), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  planner.FormatDate(day),
		"tasks": tasks,
	})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	var req toggleTaskRequest
	if err := decodeJSON(w, r, s.schemas.toggleTask, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.store.SetTaskCompleted(r.Context(), id, req.Completed); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logEvent(plan.Event{
		EventType: plan.EventTaskToggled,
		Data: map[string]any{
			"task_id":   id,
			"completed": req.Completed,
		},
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
