package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"goflow/internal/complexity"
	"goflow/internal/errs"
)

func newComplexityCmd() *cobra.Command {
	var failOnHigh bool
	var maxAllowed int

	cmd := &cobra.Command{
		Use:   "complexity <project-dir>",
		Short: "Report cyclomatic and cognitive complexity per function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prog, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer prog.Sync()
			if !cmd.Flags().Changed("max-allowed-complexity") {
				maxAllowed = cfg.MaxAllowedComplexity
			}
			if !cmd.Flags().Changed("fail-on-high-complexity") {
				failOnHigh = cfg.FailOnHighComplexity
			}

			_, graphs, bodies, err := loadGraphs(args[0], cfg, prog)
			if err != nil {
				return err
			}

			results := complexity.Compute(graphs, bodies, cfg.IncludeCognitive)
			sort.Slice(results, func(i, j int) bool { return results[i].Function < results[j].Function })

			var worst []complexity.Result
			for _, r := range results {
				fmt.Printf("%-40s cyclomatic=%-4d cognitive=%d\n", r.Function, r.Cyclomatic, r.Cognitive)
				if r.Cyclomatic > maxAllowed {
					worst = append(worst, r)
				}
			}

			if len(worst) > 0 {
				prog.Warn("%d function(s) exceed max_allowed_complexity=%d", len(worst), maxAllowed)
				if failOnHigh {
					return fmt.Errorf("%d function(s) exceed max allowed complexity %d: %w", len(worst), maxAllowed, errs.ErrThreshold)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnHigh, "fail-on-high-complexity", false, "exit non-zero if any function exceeds max-allowed-complexity")
	cmd.Flags().IntVar(&maxAllowed, "max-allowed-complexity", 10, "cyclomatic complexity threshold")
	return cmd
}
