// Package curriculum holds the study-planning data model and the heuristic
// rule tables that drive topic extraction.
package curriculum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownDifficulty is returned when a difficulty string cannot be parsed.
var ErrUnknownDifficulty = errors.New("curriculum: unknown difficulty")

// Difficulty is a topic's tier. The numeric values match the codes used by
// the planner forms ("1", "2", "3").
type Difficulty int

const (
	// DifficultyUnset means the caller gave no tier and it should be inferred.
	DifficultyUnset Difficulty = iota
	Easy
	Medium
	Hard
)

// Label returns the human-facing tier name.
func (d Difficulty) Label() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	default:
		return "Unset"
	}
}

func (d Difficulty) String() string {
	return d.Label()
}

// Days returns how many day-parts a topic of this tier needs.
func (d Difficulty) Days() int {
	switch d {
	case Easy:
		return 1
	case Medium:
		return 2
	case Hard:
		return 3
	default:
		return 0
	}
}

// Valid reports whether d is one of Easy, Medium or Hard.
func (d Difficulty) Valid() bool {
	return d >= Easy && d <= Hard
}

// ParseDifficulty accepts tier codes ("1".."3") or labels, case-insensitive.
// Empty input and "auto" return DifficultyUnset.
func ParseDifficulty(s string) (Difficulty, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "auto":
		return DifficultyUnset, nil
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	if n, err := strconv.Atoi(v); err == nil && Difficulty(n).Valid() {
		return Difficulty(n), nil
	}
	return DifficultyUnset, fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// Topic is a single study topic, either extracted from a syllabus or
// entered by hand. Reference is empty when no reference applies.
type Topic struct {
	Name       string     `json:"name" yaml:"name"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Reference  string     `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// Subject is one subject of a study plan. Topics wins over TopicList when
// both are set. A zero Difficulty means each topic's tier is inferred.
type Subject struct {
	Name       string
	Topics     []Topic
	TopicList  string // comma-separated
	Difficulty Difficulty
}

// SplitTopics splits a comma-separated topic list, dropping blank entries.
func SplitTopics(list string) []string {
	var names []string
	for _, raw := range strings.Split(list, ",") {
		if name := strings.TrimSpace(raw); name != "" {
			names = append(names, name)
		}
	}
	return names
}
