package main

import (
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

func extractCMD(root *rootOptions) *cobra.Command {
	var (
		unitStart string
		unitEnd   string
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the topics found in a syllabus PDF or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rnd syllabus.Rand
			if cmd.Flags().Changed("seed") {
				rnd = syllabus.NewRand(seed)
			}
			e, err := root.extractor(rnd)
			if err != nil {
				return err
			}

			topics, err := extractFile(e, args[0], syllabus.ParseUnitRange(unitStart, unitEnd))
			if err != nil {
				return err
			}
			if topics == nil {
				topics = []curriculum.Topic{}
			}
			return printJSON(cmd.OutOrStdout(), topics)
		},
	}
	cmd.Flags().StringVar(&unitStart, "unit-start", "", "first unit to include")
	cmd.Flags().StringVar(&unitEnd, "unit-end", "", "last unit to include")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reference selection (random when unset)")

	return cmd
}
