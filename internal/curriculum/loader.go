package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of a rules YAML document. Lists extend the
// current table unless Replace is set; zero weights keep the current value.
type rulesFile struct {
	Replace        bool     `yaml:"replace"`
	HardKeywords   []string `yaml:"hard_keywords"`
	MediumKeywords []string `yaml:"medium_keywords"`
	NoisePatterns  []string `yaml:"noise_patterns"`
	Weights        Weights  `yaml:"weights"`
}

// LoadRules builds a rule table from the defaults plus the YAML at path.
// A directory is walked and every .yaml/.yml file applied in lexical order,
// so locales can ship one file each.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	info, err := os.Stat(path)
	if err != nil {
		return Rules{}, fmt.Errorf("loading rules: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return nil
			}
			if strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return Rules{}, fmt.Errorf("walking rules dir: %w", err)
		}
		slices.Sort(files)
	} else {
		files = []string{path}
	}

	for _, f := range files {
		if err := applyRulesFile(&rules, f); err != nil {
			return Rules{}, err
		}
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}

	slog.Info("rules loaded",
		"files", len(files),
		"hard_keywords", len(rules.HardKeywords),
		"medium_keywords", len(rules.MediumKeywords),
		"noise_patterns", len(rules.NoisePatterns),
	)
	return rules, nil
}

func applyRulesFile(rules *Rules, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if f.Replace {
		rules.HardKeywords = nil
		rules.MediumKeywords = nil
		rules.NoisePatterns = nil
	}
	rules.HardKeywords = appendUnique(rules.HardKeywords, f.HardKeywords...)
	rules.MediumKeywords = appendUnique(rules.MediumKeywords, f.MediumKeywords...)
	rules.NoisePatterns = appendUnique(rules.NoisePatterns, f.NoisePatterns...)

	w := f.Weights
	if w.Hard != 0 {
		rules.Weights.Hard = w.Hard
	}
	if w.Medium != 0 {
		rules.Weights.Medium = w.Medium
	}
	if w.LongTitleWords != 0 {
		rules.Weights.LongTitleWords = w.LongTitleWords
	}
	if w.LongTitleBonus != 0 {
		rules.Weights.LongTitleBonus = w.LongTitleBonus
	}
	if w.HardThreshold != 0 {
		rules.Weights.HardThreshold = w.HardThreshold
	}
	if w.MediumThreshold != 0 {
		rules.Weights.MediumThreshold = w.MediumThreshold
	}
	return nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}
