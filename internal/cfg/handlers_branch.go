package cfg

import (
	"go/ast"
	"go/token"
)

// branchBlock lowers a goto/break/continue/fallthrough statement. goto
// targets are left unresolved here and recorded as a pending goto,
// resolved once the whole function body has been walked and every label
// is known. fallthrough is left with no successor: the enclosing switch
// wires a fallthrough case's exit itself, after it knows the next
// case's entry block.
func (b *builder) branchBlock(s *ast.BranchStmt, continueTarget, breakTarget int) int {
	id := b.insertSingle(s, KindPlain)

	switch s.Tok {
	case token.GOTO:
		b.pendingGotos = append(b.pendingGotos, gotoRef{Block: id, Label: s.Label.Name})

	case token.BREAK:
		target := breakTarget
		switch {
		case s.Label != nil:
			if lc, ok := b.loopContexts[s.Label.Name]; ok {
				target = lc.AfterID
			} else if a, ok := b.afterBlocks[s.Label.Name]; ok {
				target = a
			} else {
				b.warn("break %s: unresolved label in block %d, routing to exit", s.Label.Name, id)
				target = b.exitID
			}
		case target == noTarget:
			b.warn("break outside loop/switch/select in block %d, routing to exit", id)
			target = b.exitID
		}
		b.blocks[id].Successors = []int{target}

	case token.CONTINUE:
		target := continueTarget
		switch {
		case s.Label != nil:
			if lc, ok := b.loopContexts[s.Label.Name]; ok {
				target = lc.CondID
			} else {
				b.warn("continue %s: unresolved label in block %d, routing to exit", s.Label.Name, id)
				target = b.exitID
			}
		case target == noTarget:
			b.warn("continue outside loop in block %d, routing to exit", id)
			target = b.exitID
		}
		b.blocks[id].Successors = []int{target}

	case token.FALLTHROUGH:
		// left open, wired by the enclosing switch.
	}

	return id
}

func (b *builder) buildBranch(s *ast.BranchStmt, prev, continueTarget, breakTarget int) int {
	id := b.branchBlock(s, continueTarget, breakTarget)
	b.connectIfOpen(prev, id)
	return id
}

func (b *builder) buildBranchEntry(s *ast.BranchStmt, continueTarget, breakTarget int) int {
	return b.branchBlock(s, continueTarget, breakTarget)
}
