package cfg

import "go/ast"

// labeledCore resolves what a Go label actually addresses. For for/range
// loops and switch/select statements — the only constructs Go allows
// `break Label` or `continue Label` to target — the label is bound to
// the construct's own entry block and its break/continue targets are
// registered for lookup from anywhere inside it, including nested
// constructs. Any other labelled statement just gets its label bound to
// its first block, for `goto`.
func (b *builder) labeledCore(s *ast.LabeledStmt, continueTarget, breakTarget int) (entry, exit int) {
	switch inner := s.Stmt.(type) {
	case *ast.ForStmt:
		return b.forCore(inner, s.Label.Name)
	case *ast.RangeStmt:
		return b.rangeCore(inner, s.Label.Name)
	case *ast.SwitchStmt:
		return b.switchCore(inner, continueTarget, s.Label.Name)
	case *ast.TypeSwitchStmt:
		return b.typeSwitchCore(inner, continueTarget, s.Label.Name)
	case *ast.SelectStmt:
		return b.selectCore(inner, continueTarget, s.Label.Name)
	default:
		entry, exit = b.buildChain([]ast.Stmt{inner}, continueTarget, breakTarget)
		b.labelMap[s.Label.Name] = entry
		b.labelBound[entry] = true
		b.blocks[entry].Label = s.Label.Name
		return entry, exit
	}
}

func (b *builder) buildLabeled(s *ast.LabeledStmt, prev, continueTarget, breakTarget int) int {
	entry, exit := b.labeledCore(s, continueTarget, breakTarget)
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildLabeledEntry(s *ast.LabeledStmt, continueTarget, breakTarget int) int {
	entry, _ := b.labeledCore(s, continueTarget, breakTarget)
	return entry
}
