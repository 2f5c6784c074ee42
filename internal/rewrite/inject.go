package rewrite

import (
	"go/ast"
	"go/token"

	"goflow/internal/cfg"
	"goflow/internal/covplan"
)

// nodeMaps is the per-function lookup an injector needs: which AST nodes
// are instrumentable statement points, and which compound statements own
// a branch point at a given successor index.
type nodeMaps struct {
	stmtIDs      map[ast.Stmt]int
	nodeBranches map[ast.Stmt]map[int]string
}

// buildNodeMaps walks a function's plan and, for every point, recovers
// the originating AST node from the CFG block it was derived from —
// insertSingle keeps the real ast.Stmt a block represents, and forCore
// stores its *ast.ForStmt on the condition block insertCondBlock made,
// so a point's block id maps straight back to the node the rewriter
// needs to touch.
func buildNodeMaps(g *cfg.ControlFlowGraph, fp *covplan.FunctionPlan) nodeMaps {
	nm := nodeMaps{
		stmtIDs:      make(map[ast.Stmt]int),
		nodeBranches: make(map[ast.Stmt]map[int]string),
	}
	for _, sp := range fp.Statements {
		blk := g.Blocks[sp.BlockID]
		if blk == nil || len(blk.Statements) == 0 || blk.Statements[0].Node == nil {
			continue
		}
		nm.stmtIDs[blk.Statements[0].Node] = sp.ID
	}
	for _, bp := range fp.Branches {
		blk := g.Blocks[bp.BlockID]
		if blk == nil || len(blk.Statements) == 0 || blk.Statements[0].Node == nil {
			continue
		}
		node := blk.Statements[0].Node
		m, ok := nm.nodeBranches[node]
		if !ok {
			m = make(map[int]string)
			nm.nodeBranches[node] = m
		}
		m[bp.SuccIndex] = bp.ID
	}
	return nm
}

// injector rewrites one function body's statement lists in place,
// threading statement-coverage calls ahead of every instrumentable
// statement and branch-coverage calls as the first statement of each
// then/else/case/comm/loop body a branch point can reach.
//
// Only bodies that are a real *ast.BlockStmt/case body can receive a
// branch call — an else-if arm or an absent else has no block of its own
// to hold one, so that edge's branch point is planned but never observed
// as covered. This mirrors how source-level instrumentation tools in
// general can't mark "the condition was false" without a body to inject
// into; it is not attempted here for the same reason.
type injector struct {
	function string
	nm       nodeMaps
	used     bool // true once at least one call was actually injected
}

func newInjector(function string, nm nodeMaps) *injector {
	return &injector{function: function, nm: nm}
}

func (inj *injector) rewriteList(list []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(list))
	for _, stmt := range list {
		if id, ok := inj.nm.stmtIDs[stmt]; ok {
			out = append(out, inj.statementCall(id))
		}
		out = append(out, inj.rewriteStmt(stmt))
	}
	return out
}

func (inj *injector) rewriteStmt(stmt ast.Stmt) ast.Stmt {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		branches := inj.nm.nodeBranches[s]
		s.Body.List = inj.injectBranch(branches, 0, inj.rewriteList(s.Body.List))
		if s.Else != nil {
			switch els := s.Else.(type) {
			case *ast.BlockStmt:
				els.List = inj.injectBranch(branches, 1, inj.rewriteList(els.List))
			case *ast.IfStmt:
				s.Else = inj.rewriteStmt(els)
			}
		}
		return s
	case *ast.ForStmt:
		branches := inj.nm.nodeBranches[s]
		s.Body.List = inj.injectBranch(branches, 0, inj.rewriteList(s.Body.List))
		return s
	case *ast.RangeStmt:
		branches := inj.nm.nodeBranches[s]
		s.Body.List = inj.injectBranch(branches, 0, inj.rewriteList(s.Body.List))
		return s
	case *ast.SwitchStmt:
		branches := inj.nm.nodeBranches[s]
		idx := 0
		for _, c := range s.Body.List {
			if cc, ok := c.(*ast.CaseClause); ok {
				cc.Body = inj.injectBranch(branches, idx, inj.rewriteList(cc.Body))
				idx++
			}
		}
		return s
	case *ast.TypeSwitchStmt:
		branches := inj.nm.nodeBranches[s]
		idx := 0
		for _, c := range s.Body.List {
			if cc, ok := c.(*ast.CaseClause); ok {
				cc.Body = inj.injectBranch(branches, idx, inj.rewriteList(cc.Body))
				idx++
			}
		}
		return s
	case *ast.SelectStmt:
		branches := inj.nm.nodeBranches[s]
		idx := 0
		for _, c := range s.Body.List {
			if cc, ok := c.(*ast.CommClause); ok {
				cc.Body = inj.injectBranch(branches, idx, inj.rewriteList(cc.Body))
				idx++
			}
		}
		return s
	case *ast.LabeledStmt:
		s.Stmt = inj.rewriteStmt(s.Stmt)
		return s
	case *ast.BlockStmt:
		s.List = inj.rewriteList(s.List)
		return s
	default:
		return stmt
	}
}

func (inj *injector) injectBranch(branches map[int]string, succIndex int, body []ast.Stmt) []ast.Stmt {
	id, ok := branches[succIndex]
	if !ok {
		return body
	}
	inj.used = true
	return append([]ast.Stmt{inj.branchCall(id)}, body...)
}

func (inj *injector) statementCall(id int) ast.Stmt {
	inj.used = true
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.SelectorExpr{X: ast.NewIdent(trackerPkgDir), Sel: ast.NewIdent("Statement")},
		Args: []ast.Expr{
			&ast.BasicLit{Kind: token.STRING, Value: quote(inj.function)},
			&ast.BasicLit{Kind: token.INT, Value: itoa(id)},
		},
	}}
}

func (inj *injector) branchCall(id string) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.SelectorExpr{X: ast.NewIdent(trackerPkgDir), Sel: ast.NewIdent("Branch")},
		Args: []ast.Expr{
			&ast.BasicLit{Kind: token.STRING, Value: quote(id)},
		},
	}}
}
