package syllabus

import (
	"strings"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

// Predictor scores topic titles against keyword tables. It is a fixed
// heuristic, not a trained model.
type Predictor struct {
	hard    []string
	medium  []string
	weights curriculum.Weights
}

// NewPredictor builds a predictor from a rule table. The zero table selects
// curriculum.DefaultRules.
func NewPredictor(rules curriculum.Rules) *Predictor {
	rules = rules.OrDefault()
	return &Predictor{
		hard:    lowerAll(rules.HardKeywords),
		medium:  lowerAll(rules.MediumKeywords),
		weights: rules.Weights,
	}
}

// Score sums keyword weights found in topic, plus a bonus for long titles.
func (p *Predictor) Score(topic string) float64 {
	s := strings.ToLower(topic)
	score := 0.0
	for _, kw := range p.hard {
		if strings.Contains(s, kw) {
			score += p.weights.Hard
		}
	}
	for _, kw := range p.medium {
		if strings.Contains(s, kw) {
			score += p.weights.Medium
		}
	}
	if len(strings.Fields(topic)) > p.weights.LongTitleWords {
		score += p.weights.LongTitleBonus
	}
	return score
}

// Predict returns the tier for topic.
func (p *Predictor) Predict(topic string) curriculum.Difficulty {
	score := p.Score(topic)
	switch {
	case score >= p.weights.HardThreshold:
		return curriculum.Hard
	case score >= p.weights.MediumThreshold:
		return curriculum.Medium
	default:
		return curriculum.Easy
	}
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
