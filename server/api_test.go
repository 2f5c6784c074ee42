package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite DB matching the schema
// internal/store writes, pre-populated with one instrumented function.
func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
	CREATE TABLE functions (name TEXT PRIMARY KEY, file TEXT, entry_block INTEGER, exit_block INTEGER, warnings TEXT);
	CREATE TABLE blocks (function TEXT, block_id INTEGER, kind TEXT, start_line INTEGER, end_line INTEGER, label TEXT, successors TEXT, PRIMARY KEY (function, block_id));
	CREATE TABLE branch_points (id TEXT PRIMARY KEY, function TEXT, block_id INTEGER, succ_index INTEGER, target INTEGER, kind TEXT, label TEXT, line INTEGER, col INTEGER);
	CREATE TABLE statement_points (function TEXT, stmt_id INTEGER, block_id INTEGER, line INTEGER, kind TEXT, PRIMARY KEY (function, stmt_id));
	CREATE TABLE complexity (function TEXT PRIMARY KEY, cyclomatic INTEGER, cognitive INTEGER);
	CREATE TABLE coverage_summary (dimension TEXT, function TEXT, covered INTEGER, total INTEGER, percentage REAL, PRIMARY KEY (dimension, function));
	`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	_, _ = db.Exec(`INSERT INTO functions VALUES ('Handler', 'main.go', 0, 3, '[]');`)
	_, _ = db.Exec(`INSERT INTO blocks VALUES ('Handler', 0, 'entry', 10, 10, NULL, '[1]');`)
	_, _ = db.Exec(`INSERT INTO blocks VALUES ('Handler', 1, 'if_cond', 11, 11, NULL, '[2,3]');`)
	_, _ = db.Exec(`INSERT INTO blocks VALUES ('Handler', 2, 'then', 12, 12, NULL, '[3]');`)
	_, _ = db.Exec(`INSERT INTO blocks VALUES ('Handler', 3, 'exit', 13, 13, NULL, '[]');`)
	_, _ = db.Exec(`INSERT INTO branch_points VALUES ('Handler:1:0', 'Handler', 1, 0, 2, 'if', '(true)', 11, 2);`)
	_, _ = db.Exec(`INSERT INTO branch_points VALUES ('Handler:1:1', 'Handler', 1, 1, 3, 'if', '(false)', 11, 2);`)
	_, _ = db.Exec(`INSERT INTO statement_points VALUES ('Handler', 0, 2, 12, 'expr');`)
	_, _ = db.Exec(`INSERT INTO complexity VALUES ('Handler', 2, 2);`)
	_, _ = db.Exec(`INSERT INTO coverage_summary VALUES ('branch', 'Handler', 1, 2, 50.0);`)
	_, _ = db.Exec(`INSERT INTO coverage_summary VALUES ('statement', 'Handler', 1, 1, 100.0);`)

	return db
}

func TestAPI_FunctionList_Success(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/functions?q=Hand", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/functions?q=Hand: want 200, got %d", rec.Code)
	}
	var list []FunctionSummary
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode function list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Handler" {
		t.Errorf("unexpected function list: %+v", list)
	}
	if list[0].Cyclomatic != 2 || list[0].BranchPercentage != 50.0 {
		t.Errorf("unexpected complexity/coverage rollup: %+v", list[0])
	}
}

func TestAPI_FunctionDetail_MissingParam(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/function", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/function without name: want 400, got %d", rec.Code)
	}
}

func TestAPI_FunctionDetail_Success(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/function?name=Handler", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/function?name=Handler: want 200, got %d", rec.Code)
	}
	var fd FunctionDetail
	if err := json.NewDecoder(rec.Body).Decode(&fd); err != nil {
		t.Fatalf("decode function detail: %v", err)
	}
	if len(fd.Branches) != 2 {
		t.Errorf("expected 2 branch points, got %d", len(fd.Branches))
	}
	if len(fd.Statements) != 1 {
		t.Errorf("expected 1 statement point, got %d", len(fd.Statements))
	}
}

func TestAPI_FunctionDetail_NotFound(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/function?name=Nonexistent", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/function?name=Nonexistent: want 404, got %d", rec.Code)
	}
}

func TestAPI_CFG_MissingParam(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/cfg", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/cfg without function: want 400, got %d", rec.Code)
	}
}

func TestAPI_CFG_Success(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/cfg?function=Handler", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/cfg?function=Handler: want 200, got %d", rec.Code)
	}
	var g CFGResponse
	if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
		t.Fatalf("decode cfg: %v", err)
	}
	if len(g.Blocks) != 4 {
		t.Errorf("expected 4 blocks, got %d", len(g.Blocks))
	}
	if g.Entry != 0 || g.Exit != 3 {
		t.Errorf("unexpected entry/exit: %d/%d", g.Entry, g.Exit)
	}
	for _, b := range g.Blocks {
		if b.ID == 1 && len(b.Successors) != 2 {
			t.Errorf("if_cond block successors: want 2, got %v", b.Successors)
		}
	}
}

func TestAPI_CFG_NotFound(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/cfg?function=Nonexistent", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/cfg?function=Nonexistent: want 404, got %d", rec.Code)
	}
}

func TestAPI_Coverage_DefaultsToBranch(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/coverage", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/coverage: want 200, got %d", rec.Code)
	}
	var cs CoverageSummary
	if err := json.NewDecoder(rec.Body).Decode(&cs); err != nil {
		t.Fatalf("decode coverage: %v", err)
	}
	if cs.Dimension != "branch" || cs.Percentage != 50.0 {
		t.Errorf("unexpected coverage summary: %+v", cs)
	}
}

func TestAPI_Coverage_InvalidDimension(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/coverage?dimension=bogus", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/coverage?dimension=bogus: want 400, got %d", rec.Code)
	}
}

func TestAPI_Coverage_Statement(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/coverage?dimension=statement", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/coverage?dimension=statement: want 200, got %d", rec.Code)
	}
	var cs CoverageSummary
	if err := json.NewDecoder(rec.Body).Decode(&cs); err != nil {
		t.Fatalf("decode coverage: %v", err)
	}
	if cs.Percentage != 100.0 {
		t.Errorf("expected 100%% statement coverage, got %v", cs.Percentage)
	}
}

func TestAPI_CORS(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS Access-Control-Allow-Origin: want *, got %q", origin)
	}
}

func TestAPI_ContentType(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type: want application/json; charset=utf-8, got %q", ct)
	}
}
