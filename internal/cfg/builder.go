package cfg

import (
	"fmt"
	"go/ast"
	"go/token"

	"goflow/internal/astload"
)

// noTarget marks the absence of an enclosing loop's continue/break target.
const noTarget = -1

// gotoRef is a pending (block, label) pair awaiting forward label
// resolution.
type gotoRef struct {
	Block int
	Label string
}

// loopContext is the (condition_block, after_block) pair a labelled loop
// registers so that `break L` / `continue L` inside it — or inside a
// nested loop — resolve to the right target.
type loopContext struct {
	CondID  int
	AfterID int
}

// builder owns the block map and id allocator for exactly one function's
// CFG. Every construction routine takes (*builder, context) and returns
// the entry/exit ids of the subgraph it built.
//
// Go labels are unique within a function, so the builder keeps one
// shared label map rather than threading copies through every
// recursive call.
type builder struct {
	fset    *token.FileSet
	blocks  map[int]*BasicBlock
	nextID  int
	entryID int
	exitID  int

	labelMap     map[string]int         // label -> the label's own block id (goto target)
	loopContexts map[string]loopContext // label -> loop's (cond, after), for labelled break/continue into a loop
	afterBlocks  map[string]int         // label -> after-block id of a labelled switch/select (for `break L` to a non-loop construct)
	labelBound   map[int]bool           // blocks excluded from empty-block collapsing because a label addresses them
	pendingGotos []gotoRef

	warnings []string
}

// Build lowers one function's body into a ControlFlowGraph, then runs
// the post-processing and validation passes.
func Build(fset *token.FileSet, fn astload.Func) *ControlFlowGraph {
	b := &builder{
		fset:         fset,
		blocks:       make(map[int]*BasicBlock),
		labelMap:     make(map[string]int),
		loopContexts: make(map[string]loopContext),
		afterBlocks:  make(map[string]int),
		labelBound:   make(map[int]bool),
	}

	entry := b.alloc()
	b.entryID = entry
	b.blocks[entry] = &BasicBlock{ID: entry, Kind: KindEntry, Statements: []Statement{{Implicit: true, Kind: "empty"}}}

	exit := b.alloc()
	b.exitID = exit
	b.blocks[exit] = &BasicBlock{ID: exit, Kind: KindExit, Statements: []Statement{{Implicit: true, Kind: "empty"}}}

	if fn.Body == nil {
		b.blocks[entry].Successors = []int{exit}
		return b.finish(fn.Name, fn.File)
	}

	prev := entry
	for _, stmt := range fn.Body.List {
		prev = b.dispatch(stmt, prev, noTarget, noTarget)
	}

	// Finalisation step 1: resolve pending gotos.
	for _, g := range b.pendingGotos {
		if target, ok := b.labelMap[g.Label]; ok {
			b.blocks[g.Block].Successors = []int{target}
		} else {
			b.warn("unresolved goto label %q in block %d; routing to exit", g.Label, g.Block)
			b.blocks[g.Block].Successors = []int{exit}
		}
	}

	// Finalisation step 2: if the final prev has no successors, link to exit.
	if prev != exit {
		if blk := b.blocks[prev]; blk != nil && len(blk.Successors) == 0 {
			blk.Successors = []int{exit}
		}
	}

	return b.finish(fn.Name, fn.File)
}

func (b *builder) finish(name, file string) *ControlFlowGraph {
	g := &ControlFlowGraph{
		Function: name,
		File:     file,
		Blocks:   b.blocks,
		Entry:    b.entryID,
		Exit:     b.exitID,
		Warnings: b.warnings,
	}
	PostProcess(g, b.labelBound)
	Validate(g)
	return g
}

func (b *builder) alloc() int {
	id := b.nextID
	b.nextID++
	return id
}

func (b *builder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// insertSingle allocates a fresh block holding exactly one statement and
// records its source-line span from the statement's position.
func (b *builder) insertSingle(stmt ast.Stmt, kind BlockKind) int {
	id := b.alloc()
	line, endLine := 0, 0
	var pos token.Pos
	var col int
	if stmt != nil {
		pos = stmt.Pos()
		if pos.IsValid() {
			p := b.fset.Position(pos)
			line, col = p.Line, p.Column
		}
		if stmt.End().IsValid() {
			endLine = b.fset.Position(stmt.End()).Line
		}
	}
	b.blocks[id] = &BasicBlock{
		ID:   id,
		Kind: kind,
		Statements: []Statement{{
			Node: stmt,
			Text: renderStmt(b.fset, stmt),
			Kind: stmtKindName(stmt),
			Pos:  pos,
			Line: line,
			Col:  col,
		}},
		StartLine: line,
		EndLine:   endLine,
	}
	return id
}

// insertCondBlock allocates a block representing a loop or branch
// condition that is an expression rather than a statement (a bare `for`
// loop's Cond, which has no AST statement wrapper of its own). A nil
// expr represents an implicit "true" (the classic `for {}` infinite
// loop).
func (b *builder) insertCondBlock(kind BlockKind, cond ast.Expr) int {
	id := b.alloc()
	if cond == nil {
		b.blocks[id] = &BasicBlock{ID: id, Kind: kind, Statements: []Statement{{Implicit: true, Kind: "expr", Text: "true"}}}
		return id
	}
	line, col := 0, 0
	if cond.Pos().IsValid() {
		p := b.fset.Position(cond.Pos())
		line, col = p.Line, p.Column
	}
	b.blocks[id] = &BasicBlock{
		ID:   id,
		Kind: kind,
		Statements: []Statement{{
			Text: renderExpr(b.fset, cond),
			Kind: "expr",
			Pos:  cond.Pos(),
			Line: line,
			Col:  col,
		}},
		StartLine: line,
		EndLine:   line,
	}
	return id
}

// insertMerge allocates an empty synthetic merge/after block, an
// implicit empty statement placed after every structured construct and
// a candidate for the empty-block collapser.
func (b *builder) insertMerge() int {
	id := b.alloc()
	b.blocks[id] = &BasicBlock{
		ID:         id,
		Kind:       KindMerge,
		Statements: []Statement{{Implicit: true, Kind: "empty"}},
	}
	return id
}

// connectIfOpen sets from's successor to to, but only if from currently
// has no successors — a recurring tie-break that lets an
// already-terminated chain (ending in return, goto, labelled
// break/continue) keep its real successor instead of being overwritten
// by the caller's merge wiring.
func (b *builder) connectIfOpen(from, to int) {
	if blk := b.blocks[from]; blk != nil && len(blk.Successors) == 0 {
		blk.Successors = []int{to}
	}
}

// dispatch lowers one statement onto the running chain and returns the
// new "prev" block id, table-dispatching on the statement's dynamic
// type with a uniform per-kind handler shape.
func (b *builder) dispatch(stmt ast.Stmt, prev, continueTarget, breakTarget int) int {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		return b.buildIf(s, prev, continueTarget, breakTarget)
	case *ast.ForStmt:
		return b.buildFor(s, prev)
	case *ast.RangeStmt:
		return b.buildRange(s, prev)
	case *ast.SwitchStmt:
		return b.buildSwitch(s, prev, continueTarget, breakTarget)
	case *ast.TypeSwitchStmt:
		return b.buildTypeSwitch(s, prev, continueTarget, breakTarget)
	case *ast.SelectStmt:
		return b.buildSelect(s, prev, continueTarget, breakTarget)
	case *ast.LabeledStmt:
		return b.buildLabeled(s, prev, continueTarget, breakTarget)
	case *ast.BranchStmt:
		return b.buildBranch(s, prev, continueTarget, breakTarget)
	case *ast.ReturnStmt:
		id := b.insertSingle(s, KindPlain)
		b.connectIfOpen(prev, id)
		b.blocks[id].Successors = []int{b.exitID}
		return id
	case *ast.BlockStmt:
		entry, exit := b.buildChain(s.List, continueTarget, breakTarget)
		b.connectIfOpen(prev, entry)
		return exit
	default:
		// Simple statement: expression, assignment, declaration,
		// increment/decrement, send, defer, go, short-var-decl, panic
		// call, empty. One block, appended to prev.
		id := b.insertSingle(stmt, KindPlain)
		b.connectIfOpen(prev, id)
		return id
	}
}

// buildChain is the recursive routine used for nested blocks (then/else
// arms, loop bodies, case bodies): it builds a self-contained chain of
// statements and returns (entry, exit) without wiring it to anything
// outside — the caller connects entry/exit to its own graph.
func (b *builder) buildChain(stmts []ast.Stmt, continueTarget, breakTarget int) (entry, exit int) {
	if len(stmts) == 0 {
		id := b.insertMerge()
		return id, id
	}

	// A temporary head block lets the first statement be lowered like the
	// rest, so a leading compound statement hands on its exit (not its
	// entry) as the running prev. The head's one successor is the chain's
	// entry; the head itself is then dropped.
	head := b.insertMerge()
	prev := head
	for _, stmt := range stmts {
		prev = b.dispatch(stmt, prev, continueTarget, breakTarget)
	}
	first := b.blocks[head].Successors[0]
	delete(b.blocks, head)
	return first, prev
}

// dispatchEntry is dispatch without a predecessor to wire: it lowers one
// statement and returns only the entry block of what it built, not its
// exit.
func (b *builder) dispatchEntry(stmt ast.Stmt, continueTarget, breakTarget int) int {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		return b.buildIfEntry(s, continueTarget, breakTarget)
	case *ast.ForStmt:
		return b.buildForEntry(s)
	case *ast.RangeStmt:
		return b.buildRangeEntry(s)
	case *ast.SwitchStmt:
		return b.buildSwitchEntry(s, continueTarget, breakTarget)
	case *ast.TypeSwitchStmt:
		return b.buildTypeSwitchEntry(s, continueTarget, breakTarget)
	case *ast.SelectStmt:
		return b.buildSelectEntry(s, continueTarget, breakTarget)
	case *ast.LabeledStmt:
		return b.buildLabeledEntry(s, continueTarget, breakTarget)
	case *ast.BranchStmt:
		return b.buildBranchEntry(s, continueTarget, breakTarget)
	case *ast.ReturnStmt:
		id := b.insertSingle(s, KindPlain)
		b.blocks[id].Successors = []int{b.exitID}
		return id
	case *ast.BlockStmt:
		entry, _ := b.buildChain(s.List, continueTarget, breakTarget)
		return entry
	default:
		return b.insertSingle(stmt, KindPlain)
	}
}
