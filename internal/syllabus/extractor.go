// Package syllabus turns unstructured syllabus documents into topic lists.
package syllabus

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const (
	defaultTopicLimit = 35
	minUnitLineLen    = 12
	minFlatLineLen    = 15
	maxBareUnitRest   = 10
)

var listMarkerRe = regexp.MustCompile(`^(?:\d+(?:\.\d+)+[.)]?|\d+[.)]|[-–—•·*▪])\s*`)

// Rand picks reference indexes. Implementations shared between goroutines
// must be safe for concurrent use.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// NewRand returns a deterministic Rand for the given seed.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ExtractorConfig holds dependencies for the topic extractor.
type ExtractorConfig struct {
	Rules          curriculum.Rules
	Source         Source // default AutoSource
	Rand           Rand   // default math/rand/v2 global source
	TopicLimit     int    // default 35
	ReferenceLimit int    // default 10
	FlatLineLimit  int    // default 40
}

// Extractor composes segmentation, noise filtering and difficulty
// prediction into topic records.
type Extractor struct {
	source     Source
	rand       Rand
	noise      *NoiseFilter
	predictor  *Predictor
	segmenter  *Segmenter
	topicLimit int
	// fingerprint identifies the rules and limits for cache keys.
	fingerprint string
}

// NewExtractor creates a topic extractor. A zero Rules table selects
// curriculum.DefaultRules; any other table must pass Validate.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	rules := cfg.Rules.OrDefault()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	noise, err := NewNoiseFilter(rules)
	if err != nil {
		return nil, err
	}
	source := cfg.Source
	if source == nil {
		source = AutoSource{}
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = globalRand{}
	}
	limit := cfg.TopicLimit
	if limit <= 0 {
		limit = defaultTopicLimit
	}
	segmenter := NewSegmenter(noise, cfg.ReferenceLimit, cfg.FlatLineLimit)
	return &Extractor{
		source:      source,
		rand:        rnd,
		noise:       noise,
		predictor:   NewPredictor(rules),
		segmenter:   segmenter,
		topicLimit:  limit,
		fingerprint: extractorFingerprint(rules, limit, segmenter.referenceLimit, segmenter.flatLineLimit),
	}, nil
}

// Fingerprint returns a short hash of the extractor's rules and limits.
func (e *Extractor) Fingerprint() string {
	return e.fingerprint
}

// Predictor returns the difficulty predictor built from the extractor's rules.
func (e *Extractor) Predictor() *Predictor {
	return e.predictor
}

// Extract reads doc and returns its topics. Read failures abort the call
// with ErrDocumentParse and no partial result.
func (e *Extractor) Extract(doc Document, r UnitRange) ([]curriculum.Topic, error) {
	text, err := ReadText(e.source, doc)
	if err != nil {
		return nil, err
	}
	return e.ExtractText(text, r), nil
}

// ExtractText returns the topics found in already-extracted text. The
// result is truncated to the topic limit; excess topics are dropped.
func (e *Extractor) ExtractText(text string, r UnitRange) []curriculum.Topic {
	seg := e.segmenter.Segment(text, r)

	var topics []curriculum.Topic
	for _, u := range seg.Units {
		for _, raw := range strings.Split(u.Content, "\n") {
			line := cleanLine(raw)
			if !e.keepUnitLine(line) {
				continue
			}
			topics = append(topics, e.topic(u.Label+": "+line, line, seg.References))
		}
	}

	if len(topics) == 0 {
		flat := seg.Flat
		if seg.MarkersFound {
			flat = e.segmenter.FlatRegion(e.segmenter.Body(text))
		}
		for _, raw := range flat {
			line := cleanLine(raw)
			if e.noise.IsNoise(line) || utf8.RuneCountInString(line) < minFlatLineLen {
				continue
			}
			topics = append(topics, e.topic(line, line, seg.References))
		}
	}

	if len(topics) > e.topicLimit {
		slog.Info("topic limit reached, dropping extra topics",
			"found", len(topics),
			"limit", e.topicLimit,
		)
		topics = topics[:e.topicLimit]
	}
	return topics
}

func (e *Extractor) keepUnitLine(line string) bool {
	if utf8.RuneCountInString(line) < minUnitLineLen || e.noise.IsNoise(line) {
		return false
	}
	return !isBareUnitLine(line)
}

func (e *Extractor) topic(name, line string, refs []string) curriculum.Topic {
	t := curriculum.Topic{
		Name:       name,
		Difficulty: e.predictor.Predict(line),
	}
	if len(refs) > 0 {
		t.Reference = refs[e.rand.IntN(len(refs))]
	}
	return t
}

func cleanLine(line string) string {
	line = strings.TrimLeft(line, ":;,)-–— \t")
	return strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
}

// isBareUnitLine matches leftovers such as "UNIT - III :" or "Unit hours 9".
func isBareUnitLine(line string) bool {
	lower := strings.ToLower(line)
	if !strings.HasPrefix(lower, "unit") {
		return false
	}
	rest := strings.TrimSpace(lower[len("unit"):])
	return utf8.RuneCountInString(rest) < maxBareUnitRest
}
