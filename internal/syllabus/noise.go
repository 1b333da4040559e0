package syllabus

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const minContentLen = 5

// NoiseFilter tells administrative clutter apart from syllabus content.
type NoiseFilter struct {
	patterns []*regexp.Regexp
}

// NewNoiseFilter compiles the rule table's noise patterns. The zero table
// selects the default patterns.
func NewNoiseFilter(rules curriculum.Rules) (*NoiseFilter, error) {
	patterns, err := rules.OrDefault().CompileNoisePatterns()
	if err != nil {
		return nil, err
	}
	return &NoiseFilter{patterns: patterns}, nil
}

// IsNoise reports whether line should be excluded from extraction.
func (f *NoiseFilter) IsNoise(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || utf8.RuneCountInString(s) < minContentLen {
		return true
	}
	if isNumeric(s) {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
