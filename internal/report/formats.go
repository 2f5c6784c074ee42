package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
)

// JSON renders a Summary as indented JSON.
func JSON(s Summary) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// CSV renders a Summary's function rows as CSV: one header row plus one
// row per function, columns in FunctionRow's field order.
func CSV(s Summary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"function", "file", "cyclomatic", "cognitive", "branch_percentage", "statement_percentage"}); err != nil {
		return nil, err
	}
	for _, row := range s.Functions {
		record := []string{
			row.Function,
			row.File,
			strconv.Itoa(row.Cyclomatic),
			strconv.Itoa(row.Cognitive),
			strconv.FormatFloat(row.BranchPercentage, 'f', 1, 64),
			strconv.FormatFloat(row.StatementPercentage, 'f', 1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Markdown renders a Summary as a GitHub-flavored Markdown table
// preceded by the project-wide coverage totals.
func Markdown(s Summary) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Coverage report\n\n")
	fmt.Fprintf(&buf, "Branch coverage: %.1f%% (%d/%d)\n\n", s.BranchCoverage.Percentage, s.BranchCoverage.Covered, s.BranchCoverage.Total)
	fmt.Fprintf(&buf, "Statement coverage: %.1f%% (%d/%d)\n\n", s.StatementCoverage.Percentage, s.StatementCoverage.Covered, s.StatementCoverage.Total)
	fmt.Fprintf(&buf, "| Function | File | Cyclomatic | Cognitive | Branch %% | Statement %% |\n")
	fmt.Fprintf(&buf, "|---|---|---|---|---|---|\n")
	for _, row := range s.Functions {
		fmt.Fprintf(&buf, "| %s | %s | %d | %d | %.1f | %.1f |\n",
			row.Function, row.File, row.Cyclomatic, row.Cognitive, row.BranchPercentage, row.StatementPercentage)
	}

	fmt.Fprintf(&buf, "\n## By file\n\n")
	fmt.Fprintf(&buf, "| File | Functions | Cyclomatic | Branch %% | Statement %% |\n")
	fmt.Fprintf(&buf, "|---|---|---|---|---|\n")
	for _, f := range s.Files {
		fmt.Fprintf(&buf, "| %s | %d | %d | %.1f | %.1f |\n",
			f.File, f.Functions, f.Cyclomatic, f.BranchPercentage, f.StatementPercentage)
	}
	return buf.Bytes()
}

// HTML renders a Summary as a standalone HTML page with a plain table —
// no JS, no external stylesheet, so it can be opened directly from disk.
func HTML(s Summary) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Coverage report</title>\n")
	buf.WriteString("<style>table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n</head><body>\n")
	fmt.Fprintf(&buf, "<h1>Coverage report</h1>\n<p>Branch coverage: %.1f%% (%d/%d)</p>\n", s.BranchCoverage.Percentage, s.BranchCoverage.Covered, s.BranchCoverage.Total)
	fmt.Fprintf(&buf, "<p>Statement coverage: %.1f%% (%d/%d)</p>\n", s.StatementCoverage.Percentage, s.StatementCoverage.Covered, s.StatementCoverage.Total)
	buf.WriteString("<table>\n<tr><th>Function</th><th>File</th><th>Cyclomatic</th><th>Cognitive</th><th>Branch %</th><th>Statement %</th></tr>\n")
	for _, row := range s.Functions {
		fmt.Fprintf(&buf, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%.1f</td><td>%.1f</td></tr>\n",
			html.EscapeString(row.Function), html.EscapeString(row.File), row.Cyclomatic, row.Cognitive, row.BranchPercentage, row.StatementPercentage)
	}
	buf.WriteString("</table>\n")
	buf.WriteString("<h2>By file</h2>\n<table>\n<tr><th>File</th><th>Functions</th><th>Cyclomatic</th><th>Branch %</th><th>Statement %</th></tr>\n")
	for _, f := range s.Files {
		fmt.Fprintf(&buf, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%.1f</td><td>%.1f</td></tr>\n",
			html.EscapeString(f.File), f.Functions, f.Cyclomatic, f.BranchPercentage, f.StatementPercentage)
	}
	buf.WriteString("</table>\n</body></html>\n")
	return buf.Bytes()
}
