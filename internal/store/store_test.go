package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"goflow/internal/cfg"
	"goflow/internal/complexity"
	"goflow/internal/coverage"
	"goflow/internal/covplan"
	"goflow/internal/logx"
)

func sampleRun() *Run {
	graphs := map[string]*cfg.ControlFlowGraph{
		"Handler": {
			Function: "Handler",
			File:     "main.go",
			Entry:    0,
			Exit:     2,
			Blocks: map[int]*cfg.BasicBlock{
				0: {ID: 0, Kind: cfg.KindEntry, Successors: []int{1}},
				1: {ID: 1, Kind: cfg.KindIfCond, Successors: []int{2}, StartLine: 5, EndLine: 5},
				2: {ID: 2, Kind: cfg.KindExit},
			},
			Warnings: nil,
		},
	}
	plan := &covplan.Plan{Functions: map[string]*covplan.FunctionPlan{
		"Handler": {
			Function: "Handler",
			Branches: []covplan.BranchPoint{
				{ID: "Handler:1:0", Function: "Handler", BlockID: 1, SuccIndex: 0, Target: 2, Kind: covplan.BranchIf, Label: "(true)", Line: 5},
			},
			Statements:      []covplan.StatementPoint{{ID: 0, Function: "Handler", BlockID: 1, Line: 5, Kind: "expr"}},
			TotalBranches:   1,
			TotalStatements: 1,
		},
	}}
	return &Run{
		Graphs:       graphs,
		Plan:         plan,
		Complexity:   []complexity.Result{{Function: "Handler", Cyclomatic: 2, Cognitive: 1}},
		BranchCov:    coverage.ProjectCoverage{Covered: 1, Total: 1, Percentage: 100, Functions: []coverage.FunctionCoverage{{Function: "Handler", Covered: 1, Total: 1, Percentage: 100}}},
		StatementCov: coverage.ProjectCoverage{Covered: 1, Total: 1, Percentage: 100, Functions: []coverage.FunctionCoverage{{Function: "Handler", Covered: 1, Total: 1, Percentage: 100}}},
	}
}

func TestWritePersistsEveryTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "run.db")
	prog := logx.New(false)

	if err := Write(dbPath, sampleRun(), prog); err != nil {
		t.Fatalf("Write: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	for table, wantRows := range map[string]int{
		"functions":         1,
		"blocks":            3,
		"branch_points":     1,
		"statement_points":  1,
		"complexity":        1,
		"coverage_summary":  2, // one row per dimension
	} {
		var got int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != wantRows {
			t.Errorf("table %s: want %d rows, got %d", table, wantRows, got)
		}
	}

	var file string
	var entry, exit int
	if err := db.QueryRow("SELECT file, entry_block, exit_block FROM functions WHERE name = ?", "Handler").Scan(&file, &entry, &exit); err != nil {
		t.Fatalf("select function: %v", err)
	}
	if file != "main.go" || entry != 0 || exit != 2 {
		t.Errorf("functions row: got file=%s entry=%d exit=%d", file, entry, exit)
	}
}

func TestWriteOverwritesExistingFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "run.db")
	if err := os.WriteFile(dbPath, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	prog := logx.New(false)
	if err := Write(dbPath, sampleRun(), prog); err != nil {
		t.Fatalf("Write over stale file: %v", err)
	}
}

func TestWriteToleratesNilPlan(t *testing.T) {
	run := sampleRun()
	run.Plan = nil
	dbPath := filepath.Join(t.TempDir(), "run.db")
	prog := logx.New(false)
	if err := Write(dbPath, run, prog); err != nil {
		t.Fatalf("Write with nil plan: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	var got int
	if err := db.QueryRow("SELECT COUNT(*) FROM branch_points").Scan(&got); err != nil {
		t.Fatalf("count branch_points: %v", err)
	}
	if got != 0 {
		t.Errorf("branch_points: want 0 rows with a nil plan, got %d", got)
	}
}
