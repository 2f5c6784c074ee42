package rewrite

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goflow/internal/astload"
	"goflow/internal/cfg"
	"goflow/internal/covplan"
)

func parseOne(t *testing.T, src string) (*token.FileSet, *ast.File, astload.Func) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "f.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok {
			return fset, file, astload.Func{
				Name: fd.Name.Name, File: "f.go", Body: fd.Body, Type: fd.Type,
				Pos: fd.Pos(), End: fd.End(),
			}
		}
	}
	t.Fatal("no func decl found")
	return nil, nil, astload.Func{}
}

func TestInjectorAddsBranchAndStatementCalls(t *testing.T) {
	src := `package p

func f(x int) int {
	if x > 0 {
		return 1
	} else {
		return -1
	}
}
`
	fset, _, fn := parseOne(t, src)
	g := cfg.Build(fset, fn)
	plan := covplan.Build(map[string]*cfg.ControlFlowGraph{fn.Name: g})
	fp := plan.Functions[fn.Name]

	nm := buildNodeMaps(g, fp)
	inj := newInjector(fn.Name, nm)
	fn.Body.List = inj.rewriteList(fn.Body.List)

	if !inj.used {
		t.Fatal("expected the injector to touch at least one call site")
	}

	// Walk the rewritten body looking for our tracker calls.
	var branchCalls, stmtCalls int
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == trackerPkgDir {
			switch sel.Sel.Name {
			case "Branch":
				branchCalls++
			case "Statement":
				stmtCalls++
			}
		}
		return true
	})

	if branchCalls != 2 {
		t.Fatalf("expected 2 branch calls (then + else), got %d", branchCalls)
	}
	if stmtCalls == 0 {
		t.Fatal("expected at least one statement call")
	}
}

func TestInjectorSkipsElseIfBody(t *testing.T) {
	src := `package p

func f(x int) int {
	if x > 0 {
		return 1
	} else if x < 0 {
		return -1
	}
	return 0
}
`
	fset, _, fn := parseOne(t, src)
	g := cfg.Build(fset, fn)
	plan := covplan.Build(map[string]*cfg.ControlFlowGraph{fn.Name: g})
	fp := plan.Functions[fn.Name]

	nm := buildNodeMaps(g, fp)
	inj := newInjector(fn.Name, nm)
	fn.Body.List = inj.rewriteList(fn.Body.List)

	// The outer if's "false" edge has no block of its own (it falls
	// straight into the nested if's own condition block), so only the
	// then-arm and the nested if's own then-arm should carry a branch call.
	var branchCalls int
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if ok {
			if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == trackerPkgDir && sel.Sel.Name == "Branch" {
				branchCalls++
			}
		}
		return true
	})
	if branchCalls != 2 {
		t.Fatalf("expected 2 branch calls (outer then, inner then), got %d", branchCalls)
	}
}

func TestCopyTreeExcludesVCSAndVendor(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	mustWrite(t, filepath.Join(src, "main.go"), "package main\n")
	mustWrite(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWrite(t, filepath.Join(src, "vendor", "dep", "dep.go"), "package dep\n")

	if err := copyTree(src, dst, true); err != nil {
		t.Fatalf("copyTree: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "main.go")); err != nil {
		t.Fatalf("expected main.go to be copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, ".git")); !os.IsNotExist(err) {
		t.Fatalf("expected .git to be excluded, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "vendor")); !os.IsNotExist(err) {
		t.Fatalf("expected vendor to be excluded, stat err = %v", err)
	}
}

func TestCopyTreeDropsTestFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	mustWrite(t, filepath.Join(src, "main.go"), "package main\n")
	mustWrite(t, filepath.Join(src, "main_test.go"), "package main\n")

	if err := copyTree(src, dst, true); err != nil {
		t.Fatalf("copyTree: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "main_test.go")); !os.IsNotExist(err) {
		t.Fatalf("expected main_test.go to be dropped, stat err = %v", err)
	}
}

func TestEnsureModuleCreatesSyntheticGoMod(t *testing.T) {
	dir := t.TempDir()
	path, err := ensureModule(dir, "1.21")
	if err != nil {
		t.Fatalf("ensureModule: %v", err)
	}
	if path != defaultModulePath {
		t.Fatalf("expected synthetic module path %q, got %q", defaultModulePath, path)
	}
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		t.Fatalf("expected a go.mod to be written: %v", err)
	}
	if !strings.Contains(string(data), "module "+defaultModulePath) {
		t.Fatalf("go.mod missing module directive: %s", data)
	}
}

func TestEnsureModuleReadsExisting(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "go.mod"), "module example.com/real\n\ngo 1.21\n")

	path, err := ensureModule(dir, "1.21")
	if err != nil {
		t.Fatalf("ensureModule: %v", err)
	}
	if path != "example.com/real" {
		t.Fatalf("expected to read existing module path, got %q", path)
	}
}

func TestAlreadyInstrumentedGuard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	mustWrite(t, path, "package p\n\n// BRANCH_COV:f:0:0\nfunc f() {}\n")

	already, err := alreadyInstrumented(path)
	if err != nil {
		t.Fatalf("alreadyInstrumented: %v", err)
	}
	if !already {
		t.Fatal("expected the BRANCH_COV marker to be detected")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
