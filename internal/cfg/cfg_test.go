package cfg

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"goflow/internal/astload"
)

// parseFunc parses src (a single top-level func) and returns the AST
// provider bits Build needs.
func parseFunc(t *testing.T, src string) (*token.FileSet, astload.Func) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "test.go", "package p\n"+src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok {
			return fset, astload.Func{
				Name: fd.Name.Name,
				File: "test.go",
				Body: fd.Body,
				Type: fd.Type,
				Pos:  fd.Pos(),
				End:  fd.End(),
			}
		}
	}
	t.Fatal("no func decl found")
	return nil, astload.Func{}
}

func TestBuildStraightLine(t *testing.T) {
	fset, fn := parseFunc(t, `func f() {
		x := 1
		y := 2
		_ = x + y
	}`)
	g := Build(fset, fn)

	if len(g.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", g.Warnings)
	}
	entry, ok := g.Blocks[g.Entry]
	if !ok {
		t.Fatal("missing entry block")
	}
	if len(entry.Successors) != 1 {
		t.Fatalf("entry should have exactly one successor, got %v", entry.Successors)
	}
	// no merging pass runs, so each statement keeps its own block: walk
	// the single-successor chain from entry to exit.
	seen := map[int]bool{g.Entry: true}
	cur := entry.Successors[0]
	steps := 0
	for cur != g.Exit && steps < 10 {
		seen[cur] = true
		blk := g.Blocks[cur]
		if len(blk.Successors) != 1 {
			t.Fatalf("straight-line block %d should have one successor, got %v", cur, blk.Successors)
		}
		cur = blk.Successors[0]
		steps++
	}
	if cur != g.Exit {
		t.Fatalf("straight-line chain never reached exit")
	}
}

func TestBuildIfElse(t *testing.T) {
	fset, fn := parseFunc(t, `func f(x int) int {
		if x > 0 {
			return 1
		} else {
			return -1
		}
	}`)
	g := Build(fset, fn)

	var condBlock *BasicBlock
	for _, blk := range g.Blocks {
		if blk.Kind == KindIfCond {
			condBlock = blk
		}
	}
	if condBlock == nil {
		t.Fatal("no if-condition block found")
	}
	if len(condBlock.Successors) != 2 {
		t.Fatalf("if block should have 2 successors, got %d", len(condBlock.Successors))
	}
	for _, succ := range condBlock.Successors {
		blk := g.Blocks[succ]
		if len(blk.Statements) == 0 || blk.Statements[0].Kind != "return" {
			t.Fatalf("expected both arms to lead into a return block, got kind %q", blk.Statements[0].Kind)
		}
		if blk.Successors[0] != g.Exit {
			t.Fatalf("return block should point at exit")
		}
	}
}

func TestBuildForLoopContinuesToCond(t *testing.T) {
	fset, fn := parseFunc(t, `func f() {
		for i := 0; i < 10; i++ {
			if i == 5 {
				continue
			}
			println(i)
		}
	}`)
	g := Build(fset, fn)

	var condBlock *BasicBlock
	for _, blk := range g.Blocks {
		if blk.Kind == KindForCond {
			condBlock = blk
		}
	}
	if condBlock == nil {
		t.Fatal("no for-condition block found")
	}

	var continueBlock *BasicBlock
	for _, blk := range g.Blocks {
		if len(blk.Statements) > 0 && blk.Statements[0].Kind == "branch" {
			continueBlock = blk
		}
	}
	if continueBlock == nil {
		t.Fatal("no continue block found")
	}
	if len(continueBlock.Successors) != 1 || continueBlock.Successors[0] != condBlock.ID {
		t.Fatalf("continue should target the condition block %d, got %v", condBlock.ID, continueBlock.Successors)
	}

	var postBlock *BasicBlock
	for _, blk := range g.Blocks {
		if len(blk.Statements) > 0 && blk.Statements[0].Kind == "incdec" {
			postBlock = blk
		}
	}
	if postBlock == nil {
		t.Fatal("no post (i++) block found")
	}
	if len(postBlock.Successors) != 1 || postBlock.Successors[0] != condBlock.ID {
		t.Fatalf("post block should loop back to the condition block %d, got %v", condBlock.ID, postBlock.Successors)
	}
}

func TestBuildSwitchFallthrough(t *testing.T) {
	fset, fn := parseFunc(t, `func f(x int) {
		switch x {
		case 1:
			println("one")
			fallthrough
		case 2:
			println("one or two")
		default:
			println("other")
		}
	}`)
	g := Build(fset, fn)

	var header *BasicBlock
	for _, blk := range g.Blocks {
		if blk.Kind == KindSwitch {
			header = blk
		}
	}
	if header == nil {
		t.Fatal("no switch header block found")
	}
	if len(header.Successors) != 3 {
		t.Fatalf("expected 3 case entries, got %d", len(header.Successors))
	}
}

func TestBuildLabeledBreak(t *testing.T) {
	fset, fn := parseFunc(t, `func f() {
	Outer:
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if j == 1 {
					break Outer
				}
			}
		}
	}`)
	g := Build(fset, fn)

	var breakBlock *BasicBlock
	for _, blk := range g.Blocks {
		if len(blk.Statements) > 0 && blk.Statements[0].Kind == "branch" {
			breakBlock = blk
		}
	}
	if breakBlock == nil {
		t.Fatal("no break block found")
	}
	if len(breakBlock.Successors) != 1 {
		t.Fatalf("break block should have exactly one successor, got %v", breakBlock.Successors)
	}
	if breakBlock.Successors[0] == g.Exit {
		t.Fatalf("labelled break incorrectly routed to function exit, a missing-label bug")
	}
}

func TestBuildGotoForward(t *testing.T) {
	fset, fn := parseFunc(t, `func f() {
		goto done
		println("skipped")
	done:
		println("reached")
	}`)
	g := Build(fset, fn)

	for _, w := range g.Warnings {
		t.Errorf("unexpected warning: %s", w)
	}

	var gotoBlock *BasicBlock
	for _, blk := range g.Blocks {
		if len(blk.Statements) > 0 && blk.Statements[0].Kind == "branch" {
			gotoBlock = blk
		}
	}
	if gotoBlock == nil {
		t.Fatal("no goto block found")
	}
	if len(gotoBlock.Successors) != 1 {
		t.Fatalf("goto block should resolve to exactly one successor, got %v", gotoBlock.Successors)
	}
}

func TestBuildUnresolvedGotoWarns(t *testing.T) {
	fset, fn := parseFunc(t, `func f() {
		goto nowhere
	}`)
	// The parser itself won't reject an undefined label (that's a
	// go/types check), so this reaches the builder and must be caught
	// there instead.
	g := Build(fset, fn)
	if len(g.Warnings) == 0 {
		t.Fatal("expected a warning for an unresolved goto target")
	}
}
