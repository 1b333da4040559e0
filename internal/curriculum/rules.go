package curriculum

import (
	"fmt"
	"regexp"
)

// Rules is the data table behind difficulty prediction and noise filtering.
// It is plain data so deployments can extend or localize it from YAML.
type Rules struct {
	HardKeywords   []string `yaml:"hard_keywords"`
	MediumKeywords []string `yaml:"medium_keywords"`
	NoisePatterns  []string `yaml:"noise_patterns"`
	Weights        Weights  `yaml:"weights"`
}

// Weights tunes the keyword scoring.
type Weights struct {
	Hard            float64 `yaml:"hard"`
	Medium          float64 `yaml:"medium"`
	LongTitleWords  int     `yaml:"long_title_words"`
	LongTitleBonus  float64 `yaml:"long_title_bonus"`
	HardThreshold   float64 `yaml:"hard_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold"`
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Hard:            1.5,
		Medium:          0.5,
		LongTitleWords:  6,
		LongTitleBonus:  0.5,
		HardThreshold:   2.0,
		MediumThreshold: 0.7,
	}
}

// DefaultRules returns a fresh copy of the built-in rule table.
func DefaultRules() Rules {
	return Rules{
		HardKeywords: []string{
			"advanced", "optimization", "complexity", "quantum", "dynamics", "stochastic",
			"inference", "analysis", "theory", "synthesis", "design",
		},
		MediumKeywords: []string{
			"application", "integration", "structure", "function", "system", "mechanism",
			"logic", "model",
		},
		NoisePatterns: []string{
			// page numbers
			`(?i)^page\s*(no\.?)?\s*[:\-]?\s*\d+(\s*(of|/)\s*\d+)?$`,
			`(?i)^-?\s*\d+\s*-?\s*$`,
			// subject-code headers
			`(?i)^(subject|course|paper)\s*(code|no\.?|title)\b`,
			`^[A-Z]{2,5}\s?-?\s?\d{3,4}[A-Z]?\b.{0,10}$`,
			// semester / credits / marks / session boilerplate
			`(?i)^(semester|sem\.?)\s*[:\-]?\s*[ivx\d]+\b`,
			`(?i)\bcredits?\s*[:\-]?\s*\d`,
			`(?i)\b(max(imum)?\.?\s*)?marks?\s*[:\-]?\s*\d`,
			`(?i)\b(internal|external|end[\s\-]semester)\s+(assessment|marks|evaluation|exam(ination)?)\b`,
			`(?i)\b(session|academic\s+year)\s*[:\-]?\s*\d{4}`,
			`(?i)^(l\s*[-:]?\s*t\s*[-:]?\s*p|contact\s+hours|teaching\s+scheme|examination\s+scheme)\b`,
			`(?i)^(no\.?\s+of\s+)?(lecture\s+)?(hours?|hrs\.?)\s*[:\-]?\s*\d+$`,
			// institution names
			`(?i)\b(university|institute\s+of|college\s+of|polytechnic)\b`,
			// course outcomes
			`(?i)^(course\s+(outcomes?|objectives?)|co\s*\d+\s*[:.\-]|cos?\s*:)`,
			// lab experiment lists
			`(?i)^(list\s+of\s+(experiments|practicals|programs)|lab(oratory)?\s+(experiments?|work))\b`,
		},
		Weights: DefaultWeights(),
	}
}

// CompileNoisePatterns compiles the noise table.
func (r Rules) CompileNoisePatterns() ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(r.NoisePatterns))
	for _, p := range r.NoisePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling noise pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// IsZero reports whether r is the zero rule table.
func (r Rules) IsZero() bool {
	return len(r.HardKeywords) == 0 && len(r.MediumKeywords) == 0 &&
		len(r.NoisePatterns) == 0 && r.Weights == (Weights{})
}

// OrDefault returns r, or DefaultRules when r is the zero table.
func (r Rules) OrDefault() Rules {
	if r.IsZero() {
		return DefaultRules()
	}
	return r
}

// Validate checks that the rule table is usable.
func (r Rules) Validate() error {
	w := r.Weights
	if w.HardThreshold <= 0 || w.MediumThreshold <= 0 {
		return fmt.Errorf("thresholds must be positive")
	}
	if w.MediumThreshold > w.HardThreshold {
		return fmt.Errorf("medium threshold %.2f exceeds hard threshold %.2f", w.MediumThreshold, w.HardThreshold)
	}
	if w.LongTitleWords < 0 {
		return fmt.Errorf("long_title_words must not be negative")
	}
	_, err := r.CompileNoisePatterns()
	return err
}
