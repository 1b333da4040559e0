// Package planner distributes study topics across a date range.
package planner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const (
	defaultMinTasksPerDay = 3
	defaultMaxTasksPerDay = 6
	// DefaultSearchURL is the query prefix used for reference links.
	DefaultSearchURL = "https://www.google.com/search?q="
)

// DifficultyPredictor infers a tier for a topic title.
type DifficultyPredictor interface {
	Predict(topic string) curriculum.Difficulty
}

// Config holds generator settings.
type Config struct {
	Predictor      DifficultyPredictor // nil means unset tiers become Medium
	MinTasksPerDay int                 // default 3
	MaxTasksPerDay int                 // default 6
	SearchURL      string              // default DefaultSearchURL
}

// Task is one scheduled day-part of a topic.
type Task struct {
	Date          time.Time             `json:"date"`
	Subject       string                `json:"subject"`
	Topic         string                `json:"topic"`
	Description   string                `json:"description"`
	ReferenceURL  string                `json:"reference_url"`
	ReferenceText string                `json:"reference_text"`
	Difficulty    curriculum.Difficulty `json:"difficulty"`
	Part          int                   `json:"part"`
	TotalParts    int                   `json:"total_parts"`
}

// MarshalJSON writes Date as a calendar day.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(t), Date: FormatDate(t.Date)})
}

// workItem is a queued day-part waiting for a slot.
type workItem struct {
	subject    string
	topic      curriculum.Topic
	part       int
	totalParts int
}

// Generator builds schedules with subject-interleaved round-robin allocation.
type Generator struct {
	predictor DifficultyPredictor
	minPerDay int
	maxPerDay int
	searchURL string
}

// NewGenerator creates a schedule generator.
func NewGenerator(cfg Config) *Generator {
	g := &Generator{
		predictor: cfg.Predictor,
		minPerDay: cfg.MinTasksPerDay,
		maxPerDay: cfg.MaxTasksPerDay,
		searchURL: cfg.SearchURL,
	}
	if g.minPerDay <= 0 {
		g.minPerDay = defaultMinTasksPerDay
	}
	if g.maxPerDay <= 0 {
		g.maxPerDay = defaultMaxTasksPerDay
	}
	if g.maxPerDay < g.minPerDay {
		g.maxPerDay = g.minPerDay
	}
	if g.searchURL == "" {
		g.searchURL = DefaultSearchURL
	}
	return g
}

// GenerateRange parses the dates leniently and generates a schedule.
// Unparseable dates yield an empty schedule.
func (g *Generator) GenerateRange(subjects []curriculum.Subject, start, end string) []Task {
	s, err := ParseDate(start)
	if err != nil {
		slog.Debug("invalid start date, empty schedule", "start_date", start, "error", err)
		return nil
	}
	e, err := ParseDate(end)
	if err != nil {
		slog.Debug("invalid end date, empty schedule", "end_date", end, "error", err)
		return nil
	}
	return g.Generate(subjects, s, e)
}

// Generate distributes every subject's topics over [start, end]. Tasks are
// ordered by date, then by the day's subject rotation. An inverted range
// returns an empty schedule.
func (g *Generator) Generate(subjects []curriculum.Subject, start, end time.Time) []Task {
	start, end = truncateDay(start), truncateDay(end)
	totalDays := int(end.Sub(start).Hours()/24) + 1
	if totalDays <= 0 {
		return nil
	}

	names, queues := g.buildQueues(subjects)
	n := len(names)
	if n == 0 {
		return nil
	}

	total := 0
	for _, q := range queues {
		total += len(q)
	}
	perDay := min(max(total/totalDays+1, g.minPerDay), g.maxPerDay)

	tasks := make([]Task, 0, total)
	remaining := total
	for day := 0; day < totalDays && remaining > 0; day++ {
		date := start.AddDate(0, 0, day)
		first := day % n
		placed := 0
		for attempt := 0; attempt < 2*n && placed < perDay; attempt++ {
			idx := (first + attempt) % n
			q := queues[idx]
			if len(q) == 0 {
				continue
			}
			tasks = append(tasks, g.task(date, q[0]))
			queues[idx] = q[1:]
			placed++
			remaining--
		}
	}

	if remaining > 0 {
		slog.Warn("date range too short, dropping work items",
			"dropped", remaining,
			"scheduled", len(tasks),
			"days", totalDays,
		)
	}
	return tasks
}

// buildQueues returns subject names in first-seen order with one FIFO queue
// of work items per name.
func (g *Generator) buildQueues(subjects []curriculum.Subject) ([]string, [][]workItem) {
	var names []string
	index := make(map[string]int)
	var queues [][]workItem

	for _, sub := range subjects {
		name := strings.TrimSpace(sub.Name)
		if name == "" {
			slog.Debug("skipping subject without a name")
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(names)
			index[name] = i
			names = append(names, name)
			queues = append(queues, nil)
		}
		for _, t := range g.subjectTopics(name, sub) {
			days := t.Difficulty.Days()
			for part := 1; part <= days; part++ {
				queues[i] = append(queues[i], workItem{
					subject:    name,
					topic:      t,
					part:       part,
					totalParts: days,
				})
			}
		}
	}
	return names, queues
}

func (g *Generator) subjectTopics(name string, sub curriculum.Subject) []curriculum.Topic {
	var topics []curriculum.Topic
	if len(sub.Topics) > 0 {
		for _, t := range sub.Topics {
			t.Name = strings.TrimSpace(t.Name)
			if t.Name == "" {
				slog.Debug("skipping blank topic", "subject", name)
				continue
			}
			if !t.Difficulty.Valid() {
				t.Difficulty = g.tier(t.Name, sub.Difficulty)
			}
			topics = append(topics, t)
		}
	} else {
		for _, topicName := range curriculum.SplitTopics(sub.TopicList) {
			topics = append(topics, curriculum.Topic{
				Name:       topicName,
				Difficulty: g.tier(topicName, sub.Difficulty),
			})
		}
	}

	if len(topics) == 0 {
		placeholder := "Fundamentals of " + name
		topics = append(topics, curriculum.Topic{
			Name:       placeholder,
			Difficulty: g.tier(placeholder, sub.Difficulty),
		})
	}
	return topics
}

func (g *Generator) tier(topic string, fallback curriculum.Difficulty) curriculum.Difficulty {
	if fallback.Valid() {
		return fallback
	}
	if g.predictor != nil {
		if d := g.predictor.Predict(topic); d.Valid() {
			return d
		}
	}
	return curriculum.Medium
}

func (g *Generator) task(date time.Time, it workItem) Task {
	desc := it.topic.Name
	if it.totalParts > 1 {
		desc = fmt.Sprintf("%s (Part %d/%d)", desc, it.part, it.totalParts)
	}
	refURL, refText := g.Reference(it.subject, it.topic)
	return Task{
		Date:          date,
		Subject:       it.subject,
		Topic:         it.topic.Name,
		Description:   fmt.Sprintf("[%s] %s", it.topic.Difficulty.Label(), desc),
		ReferenceURL:  refURL,
		ReferenceText: refText,
		Difficulty:    it.topic.Difficulty,
		Part:          it.part,
		TotalParts:    it.totalParts,
	}
}

// Reference builds the search link and label for a topic. Topics with a
// syllabus reference search for it; others get a generic tutorial search.
func (g *Generator) Reference(subject string, t curriculum.Topic) (link, label string) {
	if t.Reference != "" {
		return g.searchURL + url.QueryEscape(t.Reference), "Ref: " + t.Reference
	}
	query := subject + " " + t.Name + " tutorial free course"
	return g.searchURL + url.QueryEscape(query), fmt.Sprintf("Recommended: Search for '%s' concepts", t.Name)
}
