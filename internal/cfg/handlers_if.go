package cfg

import "go/ast"

// ifCore lowers an if/else(-if) chain. The condition block holds the
// whole *ast.IfStmt (including Init, if present) as its statement, per
// the original's "cond block holds the whole if statement" convention;
// an else-if is handled by recursing ifCore on the nested *ast.IfStmt so
// its own merge point feeds straight into the outer if's merge point.
func (b *builder) ifCore(s *ast.IfStmt, continueTarget, breakTarget int) (entry, exit int) {
	condID := b.insertSingle(s, KindIfCond)

	thenEntry, thenExit := b.buildChain(s.Body.List, continueTarget, breakTarget)

	hasElse := s.Else != nil
	var elseEntry, elseExit int
	if hasElse {
		switch els := s.Else.(type) {
		case *ast.IfStmt:
			elseEntry, elseExit = b.ifCore(els, continueTarget, breakTarget)
		case *ast.BlockStmt:
			elseEntry, elseExit = b.buildChain(els.List, continueTarget, breakTarget)
		default:
			elseEntry, elseExit = b.buildChain([]ast.Stmt{els}, continueTarget, breakTarget)
		}
	}

	afterID := b.insertMerge()

	if hasElse {
		b.blocks[condID].Successors = []int{thenEntry, elseEntry}
		b.connectIfOpen(elseExit, afterID)
	} else {
		b.blocks[condID].Successors = []int{thenEntry, afterID}
	}
	b.connectIfOpen(thenExit, afterID)

	return condID, afterID
}

func (b *builder) buildIf(s *ast.IfStmt, prev, continueTarget, breakTarget int) int {
	entry, exit := b.ifCore(s, continueTarget, breakTarget)
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildIfEntry(s *ast.IfStmt, continueTarget, breakTarget int) int {
	entry, _ := b.ifCore(s, continueTarget, breakTarget)
	return entry
}
