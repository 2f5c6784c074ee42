package main

import (
	"fmt"

	"goflow/internal/coverage"
	"goflow/internal/report"
)

// emptyCoverage is a ProjectCoverage with no functions and no points,
// reading as 100% (the 0/0 convention), for commands that render
// a report.Summary without having run the instrumentation pipeline
// (e.g. `goflow cfg`, which only needs structure, not coverage).
func emptyCoverage() coverage.ProjectCoverage {
	return coverage.ProjectCoverage{Percentage: 100.0}
}

// renderSummary dispatches to the formatter named by format.
func renderSummary(summary report.Summary, format string) ([]byte, error) {
	switch format {
	case "json":
		return report.JSON(summary)
	case "csv":
		return report.CSV(summary)
	case "markdown", "md":
		return report.Markdown(summary), nil
	case "html":
		return report.HTML(summary), nil
	default:
		return nil, fmt.Errorf("unknown --format %q (want json, csv, markdown, or html)", format)
	}
}
