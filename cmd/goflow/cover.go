package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"goflow/internal/astload"
	"goflow/internal/cfg"
	"goflow/internal/config"
	"goflow/internal/coverage"
	"goflow/internal/covplan"
	"goflow/internal/errs"
	"goflow/internal/logx"
	"goflow/internal/report"
	"goflow/internal/rewrite"
	"goflow/internal/store"
	"goflow/internal/testrun"
)

func newCoverCmd() *cobra.Command {
	var format string
	var outPath string
	var simulate bool
	var exportPath string

	cmd := &cobra.Command{
		Use:   "cover <project-dir>",
		Short: "Instrument a project, run its tests, and reconstruct branch and statement coverage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg2, prog, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer prog.Sync()
			if !cmd.Flags().Changed("simulate") {
				simulate = cfg2.SimulateCoverage
			}
			if exportPath == "" {
				exportPath = cfg2.ExportPath
			}

			projectDir := args[0]
			provider, graphs, _, err := loadGraphs(projectDir, cfg2, prog)
			if err != nil {
				return err
			}
			plan := covplan.Build(graphs)
			prog.Log("planned %d functions", len(plan.Functions))

			var branchCov, stmtCov coverage.ProjectCoverage
			if simulate {
				prog.Log("simulate_coverage set: skipping the toolchain and pretending every point was hit")
				branchCov = coverage.SimulateBranch(plan)
				stmtCov = coverage.SimulateStatement(plan)
			} else {
				branchCov, stmtCov, err = runInstrumentedTests(cmd.Context(), projectDir, provider, graphs, plan, cfg2, prog)
				if err != nil {
					return err
				}
			}

			if cfg2.FailOnLowCoverage && branchCov.Percentage < cfg2.MinCoverageThreshold {
				return fmt.Errorf("branch coverage %.1f%% below min_coverage_threshold %.1f%%: %w",
					branchCov.Percentage, cfg2.MinCoverageThreshold, errs.ErrThreshold)
			}

			summary := report.Build(graphs, nil, branchCov, stmtCov)
			out, err := renderSummary(summary, format)
			if err != nil {
				return err
			}
			if err := writeOutput(outPath, out); err != nil {
				return err
			}

			if exportPath != "" {
				run := &store.Run{Graphs: graphs, Plan: plan, BranchCov: branchCov, StatementCov: stmtCov}
				if err := store.Write(exportPath, run, prog); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: json, csv, markdown, or html")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "pretend every instrumentation point was hit, skipping the Go toolchain entirely")
	cmd.Flags().StringVar(&exportPath, "export-path", "", "optional SQLite database to write the run to")
	return cmd
}

// runInstrumentedTests copies the project into a freshly named scratch
// directory, injects tracker calls for every planned point, runs the
// real go toolchain, and reconstructs both coverage dimensions from what
// it observed. The scratch directory is always removed on return.
func runInstrumentedTests(ctx context.Context, projectDir string, provider *astload.Provider, graphs map[string]*cfg.ControlFlowGraph, plan *covplan.Plan, cfg2 config.Config, prog *logx.Progress) (coverage.ProjectCoverage, coverage.ProjectCoverage, error) {
	scratchDir := filepath.Join(os.TempDir(), "goflow-scratch-"+uuid.NewString())
	defer func() { _ = os.RemoveAll(scratchDir) }()

	rwResult, err := rewrite.Rewrite(rewrite.Config{
		SrcDir:     projectDir,
		ScratchDir: scratchDir,
		Provider:   provider,
		Graphs:     graphs,
		Plan:       plan,
	})
	if err != nil {
		return coverage.ProjectCoverage{}, coverage.ProjectCoverage{}, err
	}
	prog.Log("instrumented %d file(s), skipped %d already-instrumented", len(rwResult.InstrumentedFiles), len(rwResult.SkippedFiles))

	if _, err := testrun.Version(ctx, scratchDir); err != nil {
		return coverage.ProjectCoverage{}, coverage.ProjectCoverage{}, err
	}

	buildStart := time.Now()
	if _, err := testrun.Build(ctx, scratchDir); err != nil {
		return coverage.ProjectCoverage{}, coverage.ProjectCoverage{}, err
	}
	prog.Log("go build ./... finished in %s", humanize.RelTime(buildStart, time.Now(), "", ""))

	testStart := time.Now()
	testRes, err := testrun.Test(ctx, scratchDir, cfg2.TimeoutSeconds, cfg2.TestArgs, cfg2.FailOnError)
	if err != nil {
		return coverage.ProjectCoverage{}, coverage.ProjectCoverage{}, err
	}
	prog.Log("go test ./... finished in %s", humanize.RelTime(testStart, time.Now(), "", ""))

	branchHits := coverage.ParseBranchHits(testRes.Stdout)
	branchCov := coverage.ReconstructBranch(plan, branchHits)

	stmtCov, err := reconstructStatementCoverage(scratchDir, plan, prog)
	if err != nil {
		return coverage.ProjectCoverage{}, coverage.ProjectCoverage{}, err
	}

	return branchCov, stmtCov, nil
}

// reconstructStatementCoverage gathers every per-package
// "goflow-coverage-N.json" file the instrumented test binaries wrote
// (one per package, since each runs as its own process with its own
// working directory) and merges them into one statement coverage report.
func reconstructStatementCoverage(scratchDir string, plan *covplan.Plan, prog *logx.Progress) (coverage.ProjectCoverage, error) {
	matches, err := filepath.Glob(filepath.Join(scratchDir, "goflow-coverage-*.json"))
	if err != nil {
		return coverage.ProjectCoverage{}, fmt.Errorf("glob coverage files in %s: %w", scratchDir, errs.ErrReconstruction)
	}
	if len(matches) == 0 {
		prog.Warn("no per-package coverage files produced, reporting 0/0")
		return coverage.ReconstructStatement(plan, nil), nil
	}

	var totalBytes int64
	var merged map[string]map[int]bool
	for _, m := range matches {
		if info, statErr := os.Stat(m); statErr == nil {
			totalBytes += info.Size()
		}
		hits, readErr := coverage.ReadStatementHits(m)
		if readErr != nil {
			prog.Warn("statement coverage file %s unreadable: %v", m, readErr)
			continue
		}
		merged = coverage.MergeStatementHits(merged, hits)
	}
	prog.Verbose("%d per-package coverage file(s), %s total", len(matches), humanize.Bytes(uint64(totalBytes)))

	return coverage.ReconstructStatement(plan, merged), nil
}
