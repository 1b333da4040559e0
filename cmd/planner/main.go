// Command planner extracts syllabus topics and builds study schedules
// without running the HTTP service.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	rulesPath string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Extract syllabus topics and generate study schedules",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", os.Getenv("PLANNER_RULES_PATH"), "YAML file or directory extending the built-in heuristic rules")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(extractCMD(opts), scheduleCMD(opts))
	return root
}

func (o *rootOptions) rules() (curriculum.Rules, error) {
	if o.rulesPath == "" {
		return curriculum.DefaultRules(), nil
	}
	return curriculum.LoadRules(o.rulesPath)
}

func (o *rootOptions) extractor(rnd syllabus.Rand) (*syllabus.Extractor, error) {
	rules, err := o.rules()
	if err != nil {
		return nil, err
	}
	return syllabus.NewExtractor(syllabus.ExtractorConfig{Rules: rules, Rand: rnd})
}

// extractFile reads path and returns its topics.
func extractFile(e *syllabus.Extractor, path string, r syllabus.UnitRange) ([]curriculum.Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return e.Extract(syllabus.Document{Name: path, Data: data}, r)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
