// Package report renders analysis results into downstream formats:
// JSON, CSV, Markdown, HTML, and Graphviz DOT. It consumes the
// structured records the core already produces (complexity.Result,
// coverage.ProjectCoverage, cfg.ControlFlowGraph) and never recomputes
// anything itself.
package report

import (
	"sort"

	"goflow/internal/cfg"
	"goflow/internal/complexity"
	"goflow/internal/coverage"
)

// FunctionRow is one function's flattened row for the summary report:
// identity, complexity, and both coverage dimensions' percentages.
type FunctionRow struct {
	Function            string
	File                string
	Cyclomatic          int
	Cognitive           int
	BranchPercentage    float64
	StatementPercentage float64
}

// FileRow rolls every function in one file up into one row: function
// count and cyclomatic complexity are summed, and the branch/statement
// percentages are weighted by each function's own covered/total counts
// rather than a flat average of percentages.
type FileRow struct {
	File                string
	Functions           int
	Cyclomatic          int
	BranchPercentage    float64
	StatementPercentage float64
}

// Summary bundles everything a formatter needs to render a full project
// report: per-function rows, their per-file roll-up, plus project-wide
// coverage totals.
type Summary struct {
	Functions         []FunctionRow
	Files             []FileRow
	BranchCoverage    coverage.ProjectCoverage
	StatementCoverage coverage.ProjectCoverage
}

// Build assembles a Summary from the three independent result sets,
// joined by function name. A function missing from one set (e.g.
// cognitive complexity skipped) simply reports a zero/100% default for
// that column rather than being dropped.
func Build(graphs map[string]*cfg.ControlFlowGraph, complexities []complexity.Result, branchCov, statementCov coverage.ProjectCoverage) Summary {
	cplx := make(map[string]complexity.Result, len(complexities))
	for _, c := range complexities {
		cplx[c.Function] = c
	}
	branchByFn := make(map[string]coverage.FunctionCoverage, len(branchCov.Functions))
	for _, fc := range branchCov.Functions {
		branchByFn[fc.Function] = fc
	}
	stmtByFn := make(map[string]coverage.FunctionCoverage, len(statementCov.Functions))
	for _, fc := range statementCov.Functions {
		stmtByFn[fc.Function] = fc
	}

	rows := make([]FunctionRow, 0, len(graphs))
	for fn, g := range graphs {
		row := FunctionRow{Function: fn, File: g.File, BranchPercentage: 100.0, StatementPercentage: 100.0}
		if c, ok := cplx[fn]; ok {
			row.Cyclomatic = c.Cyclomatic
			row.Cognitive = c.Cognitive
		}
		if fc, ok := branchByFn[fn]; ok {
			row.BranchPercentage = fc.Percentage
		}
		if fc, ok := stmtByFn[fn]; ok {
			row.StatementPercentage = fc.Percentage
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Function < rows[j].Function })

	return Summary{Functions: rows, Files: rollUpFiles(rows, branchByFn, stmtByFn), BranchCoverage: branchCov, StatementCoverage: statementCov}
}

// rollUpFiles groups rows by File and re-derives each file's branch and
// statement percentages from the underlying covered/total counts rather
// than averaging the already-rounded per-function percentages, the same
// covered-over-total approach coverage.rollUp uses for the project total.
func rollUpFiles(rows []FunctionRow, branchByFn, stmtByFn map[string]coverage.FunctionCoverage) []FileRow {
	type acc struct {
		functions              int
		cyclomatic             int
		branchCov, branchTotal int
		stmtCov, stmtTotal     int
	}
	byFile := make(map[string]*acc)
	var order []string
	for _, row := range rows {
		a, ok := byFile[row.File]
		if !ok {
			a = &acc{}
			byFile[row.File] = a
			order = append(order, row.File)
		}
		a.functions++
		a.cyclomatic += row.Cyclomatic
		if fc, ok := branchByFn[row.Function]; ok {
			a.branchCov += fc.Covered
			a.branchTotal += fc.Total
		}
		if fc, ok := stmtByFn[row.Function]; ok {
			a.stmtCov += fc.Covered
			a.stmtTotal += fc.Total
		}
	}

	sort.Strings(order)
	files := make([]FileRow, 0, len(order))
	for _, f := range order {
		a := byFile[f]
		files = append(files, FileRow{
			File:                f,
			Functions:           a.functions,
			Cyclomatic:          a.cyclomatic,
			BranchPercentage:    coverage.Percentage(a.branchCov, a.branchTotal),
			StatementPercentage: coverage.Percentage(a.stmtCov, a.stmtTotal),
		})
	}
	return files
}
