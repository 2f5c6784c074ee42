package covplan

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"testing"

	"goflow/internal/astload"
	"goflow/internal/cfg"
)

func buildOne(t *testing.T, src string) *cfg.ControlFlowGraph {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", "package p\n"+src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok {
			fn := astload.Func{Name: fd.Name.Name, File: "test.go", Body: fd.Body, Type: fd.Type, Pos: fd.Pos(), End: fd.End()}
			return cfg.Build(fset, fn)
		}
	}
	t.Fatal("no func decl found")
	return nil
}

func TestBuildBranchPlanIf(t *testing.T) {
	g := buildOne(t, `func f(x int) int {
		if x > 0 {
			return 1
		}
		return 0
	}`)
	plan := Build(map[string]*cfg.ControlFlowGraph{"f": g})
	fp := plan.Functions["f"]
	if fp.TotalBranches != 2 {
		t.Fatalf("expected 2 branch points for one if, got %d", fp.TotalBranches)
	}
	labels := map[string]bool{}
	for _, bp := range fp.Branches {
		labels[bp.Label] = true
		if bp.Kind != BranchIf {
			t.Errorf("expected BranchIf, got %s", bp.Kind)
		}
	}
	if !labels["(true)"] || !labels["(false)"] {
		t.Fatalf("expected (true)/(false) labels, got %v", labels)
	}
}

func TestBuildStatementPlanSkipsImplicit(t *testing.T) {
	g := buildOne(t, `func f() {
		x := 1
		if x > 0 {
		}
	}`)
	plan := Build(map[string]*cfg.ControlFlowGraph{"f": g})
	fp := plan.Functions["f"]
	for _, sp := range fp.Statements {
		if sp.Kind == "empty" {
			t.Fatalf("implicit empty statement leaked into statement plan: %+v", sp)
		}
	}
	// ids must be contiguous starting at 0
	for i, sp := range fp.Statements {
		if sp.ID != i {
			t.Fatalf("statement ids not monotonic: index %d has id %d", i, sp.ID)
		}
	}
}

func TestBranchIDFormat(t *testing.T) {
	g := buildOne(t, `func f(x int) int {
		if x > 0 {
			return 1
		}
		return 0
	}`)
	plan := Build(map[string]*cfg.ControlFlowGraph{"f": g})
	fp := plan.Functions["f"]
	for _, bp := range fp.Branches {
		want := formatID(bp.Function, bp.BlockID, bp.SuccIndex)
		if bp.ID != want {
			t.Errorf("branch id %q does not match expected format %q", bp.ID, want)
		}
	}
}

func formatID(fn string, block, succ int) string {
	return fn + ":" + strconv.Itoa(block) + ":" + strconv.Itoa(succ)
}
