// Package store optionally persists one analysis run to SQLite:
// functions, basic blocks, instrumentation points, complexity scores,
// and coverage roll-ups. A single in-memory struct is populated across
// the pipeline and flushed to SQLite in one transaction at the end.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"goflow/internal/cfg"
	"goflow/internal/complexity"
	"goflow/internal/coverage"
	"goflow/internal/covplan"
	"goflow/internal/errs"
	"goflow/internal/logx"
)

const batchSize = 5000

// schemaDDL is the table layout a written run populates: functions,
// their blocks, both instrumentation point kinds, complexity scores,
// and the coverage rollup. Write (via zombiezen, the writer connection)
// and EnsureSchema (via database/sql, the reader a report server opens)
// both execute it so the two never drift apart.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS functions (
    name TEXT PRIMARY KEY,
    file TEXT,
    entry_block INTEGER,
    exit_block INTEGER,
    warnings TEXT
);

CREATE TABLE IF NOT EXISTS blocks (
    function TEXT NOT NULL,
    block_id INTEGER NOT NULL,
    kind TEXT,
    start_line INTEGER,
    end_line INTEGER,
    label TEXT,
    successors TEXT,
    PRIMARY KEY (function, block_id)
);

CREATE TABLE IF NOT EXISTS branch_points (
    id TEXT PRIMARY KEY,
    function TEXT NOT NULL,
    block_id INTEGER,
    succ_index INTEGER,
    target INTEGER,
    kind TEXT,
    label TEXT,
    line INTEGER,
    col INTEGER
);

CREATE TABLE IF NOT EXISTS statement_points (
    function TEXT NOT NULL,
    stmt_id INTEGER NOT NULL,
    block_id INTEGER,
    line INTEGER,
    kind TEXT,
    PRIMARY KEY (function, stmt_id)
);

CREATE TABLE IF NOT EXISTS complexity (
    function TEXT PRIMARY KEY,
    cyclomatic INTEGER,
    cognitive INTEGER
);

CREATE TABLE IF NOT EXISTS coverage_summary (
    dimension TEXT NOT NULL,
    function TEXT NOT NULL,
    covered INTEGER,
    total INTEGER,
    percentage REAL,
    PRIMARY KEY (dimension, function)
);
`

// EnsureSchema creates any of the run schema's tables that don't already
// exist on db. A report server opens its database against
// whatever state a prior goflow run left behind; if that run predates a
// schema change, or never completed, the affected tables are simply
// empty rather than missing, so every query still returns 200 with no
// rows instead of a SQL error.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", errs.ErrReconstruction)
	}
	return nil
}

// Run accumulates everything one analysis invocation produced, ready to
// flush to SQLite in a single transaction: collect everything in
// memory, write once.
type Run struct {
	Graphs      map[string]*cfg.ControlFlowGraph
	Plan        *covplan.Plan
	Complexity  []complexity.Result
	BranchCov   coverage.ProjectCoverage
	StatementCov coverage.ProjectCoverage
}

// Write flushes a Run to a fresh SQLite database file at path.
func Write(path string, run *Run, prog *logx.Progress) error {
	prog.Log("writing SQLite report to %s", path)
	_ = os.Remove(path)

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, errs.ErrReconstruction)
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = WAL", nil); err != nil {
		return err
	}

	if err := createTables(conn); err != nil {
		return fmt.Errorf("create tables: %w", errs.ErrReconstruction)
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", errs.ErrReconstruction)
	}

	txErr := func() error {
		if err := insertFunctions(conn, run.Graphs, prog); err != nil {
			return err
		}
		if err := insertBlocks(conn, run.Graphs); err != nil {
			return err
		}
		if err := insertBranchPoints(conn, run.Plan); err != nil {
			return err
		}
		if err := insertStatementPoints(conn, run.Plan); err != nil {
			return err
		}
		if err := insertComplexity(conn, run.Complexity); err != nil {
			return err
		}
		if err := insertCoverage(conn, "branch", run.BranchCov); err != nil {
			return err
		}
		return insertCoverage(conn, "statement", run.StatementCov)
	}()
	endFn(&txErr)
	if txErr != nil {
		return fmt.Errorf("populate: %w", errs.ErrReconstruction)
	}

	prog.Log("wrote %d functions", len(run.Graphs))
	return nil
}

// createTables runs the same schema EnsureSchema uses on the reader
// side, against the writer's zombiezen connection. Write always deletes
// any existing file first, so "IF NOT EXISTS" is harmless here too.
func createTables(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, schemaDDL, nil)
}

func insertFunctions(conn *sqlite.Conn, graphs map[string]*cfg.ControlFlowGraph, prog *logx.Progress) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO functions (name, file, entry_block, exit_block, warnings) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	i := 0
	for name, g := range graphs {
		stmt.BindText(1, name)
		stmt.BindText(2, g.File)
		stmt.BindInt64(3, int64(g.Entry))
		stmt.BindInt64(4, int64(g.Exit))
		bindJSON(stmt, 5, g.Warnings)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert function %s: %w", name, err)
		}
		_ = stmt.Reset()
		i++
		if i%batchSize == 0 {
			prog.Verbose("  inserted %d/%d functions", i, len(graphs))
		}
	}
	return nil
}

func insertBlocks(conn *sqlite.Conn, graphs map[string]*cfg.ControlFlowGraph) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO blocks (function, block_id, kind, start_line, end_line, label, successors) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare block insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for name, g := range graphs {
		for _, blk := range g.Blocks {
			stmt.BindText(1, name)
			stmt.BindInt64(2, int64(blk.ID))
			stmt.BindText(3, string(blk.Kind))
			stmt.BindInt64(4, int64(blk.StartLine))
			stmt.BindInt64(5, int64(blk.EndLine))
			if blk.Label != "" {
				stmt.BindText(6, blk.Label)
			} else {
				stmt.BindNull(6)
			}
			bindJSON(stmt, 7, blk.Successors)
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert block %s:%d: %w", name, blk.ID, err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

func insertBranchPoints(conn *sqlite.Conn, plan *covplan.Plan) error {
	if plan == nil {
		return nil
	}
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO branch_points (id, function, block_id, succ_index, target, kind, label, line, col) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare branch point insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, fp := range plan.Functions {
		for _, bp := range fp.Branches {
			stmt.BindText(1, bp.ID)
			stmt.BindText(2, bp.Function)
			stmt.BindInt64(3, int64(bp.BlockID))
			stmt.BindInt64(4, int64(bp.SuccIndex))
			stmt.BindInt64(5, int64(bp.Target))
			stmt.BindText(6, string(bp.Kind))
			stmt.BindText(7, bp.Label)
			stmt.BindInt64(8, int64(bp.Line))
			stmt.BindInt64(9, int64(bp.Col))
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert branch point %s: %w", bp.ID, err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

func insertStatementPoints(conn *sqlite.Conn, plan *covplan.Plan) error {
	if plan == nil {
		return nil
	}
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO statement_points (function, stmt_id, block_id, line, kind) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement point insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, fp := range plan.Functions {
		for _, sp := range fp.Statements {
			stmt.BindText(1, sp.Function)
			stmt.BindInt64(2, int64(sp.ID))
			stmt.BindInt64(3, int64(sp.BlockID))
			stmt.BindInt64(4, int64(sp.Line))
			stmt.BindText(5, sp.Kind)
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert statement point %s:%d: %w", sp.Function, sp.ID, err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

func insertComplexity(conn *sqlite.Conn, results []complexity.Result) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO complexity (function, cyclomatic, cognitive) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare complexity insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, r := range results {
		stmt.BindText(1, r.Function)
		stmt.BindInt64(2, int64(r.Cyclomatic))
		stmt.BindInt64(3, int64(r.Cognitive))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert complexity %s: %w", r.Function, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertCoverage(conn *sqlite.Conn, dimension string, pc coverage.ProjectCoverage) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO coverage_summary (dimension, function, covered, total, percentage) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare coverage insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, fc := range pc.Functions {
		stmt.BindText(1, dimension)
		stmt.BindText(2, fc.Function)
		stmt.BindInt64(3, int64(fc.Covered))
		stmt.BindInt64(4, int64(fc.Total))
		stmt.BindFloat(5, fc.Percentage)
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert coverage %s/%s: %w", dimension, fc.Function, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func bindJSON(stmt *sqlite.Stmt, param int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		stmt.BindNull(param)
		return
	}
	stmt.BindText(param, string(data))
}
