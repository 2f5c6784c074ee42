package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goflow/internal/report"
)

func newCFGCmd() *cobra.Command {
	var outPath string
	var format string

	cmd := &cobra.Command{
		Use:   "cfg <project-dir>",
		Short: "Render control-flow graphs for every function as Graphviz DOT or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, prog, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer prog.Sync()

			_, graphs, _, err := loadGraphs(args[0], cfg, prog)
			if err != nil {
				return err
			}
			prog.Log("built %d control-flow graphs", len(graphs))

			var out []byte
			switch format {
			case "dot":
				out = report.DOT(graphs)
			case "json":
				summary := report.Build(graphs, nil, emptyCoverage(), emptyCoverage())
				out, err = report.JSON(summary)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown --format %q (want dot or json)", format)
			}

			return writeOutput(outPath, out)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or json")
	return cmd
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
