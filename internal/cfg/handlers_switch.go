package cfg

import (
	"go/ast"
	"go/token"
)

// switchCaseResult is a case clause's built chain plus whether it ends in
// an explicit fallthrough.
type switchCaseResult struct {
	entry, exit int
	fall        bool
}

// switchCore lowers an expression switch. continueTarget passes through
// unchanged — a switch does not itself establish a continue target —
// while each case body gets the switch's own after-block as its break
// target. A case ending in `fallthrough` wires straight into the next
// case's entry instead of the after-block.
func (b *builder) switchCore(s *ast.SwitchStmt, continueTarget int, label string) (entry, exit int) {
	headerID := b.insertSingle(s, KindSwitch)
	afterID := b.insertMerge()
	if label != "" {
		b.afterBlocks[label] = afterID
		b.labelMap[label] = headerID
		b.labelBound[headerID] = true
		b.blocks[headerID].Label = label
	}

	var results []switchCaseResult
	for _, c := range s.Body.List {
		clause, ok := c.(*ast.CaseClause)
		if !ok {
			continue
		}
		e, x := b.buildChain(clause.Body, continueTarget, afterID)
		fall := false
		if n := len(clause.Body); n > 0 {
			if br, ok := clause.Body[n-1].(*ast.BranchStmt); ok && br.Tok == token.FALLTHROUGH {
				fall = true
			}
		}
		results = append(results, switchCaseResult{entry: e, exit: x, fall: fall})
	}

	if len(results) == 0 {
		b.blocks[headerID].Successors = []int{afterID}
		return headerID, afterID
	}

	entries := make([]int, len(results))
	for i, r := range results {
		entries[i] = r.entry
	}
	b.blocks[headerID].Successors = entries

	for i, r := range results {
		if r.fall && i+1 < len(results) {
			b.connectIfOpen(r.exit, entries[i+1])
		} else {
			b.connectIfOpen(r.exit, afterID)
		}
	}

	return headerID, afterID
}

func (b *builder) buildSwitch(s *ast.SwitchStmt, prev, continueTarget, breakTarget int) int {
	entry, exit := b.switchCore(s, continueTarget, "")
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildSwitchEntry(s *ast.SwitchStmt, continueTarget, breakTarget int) int {
	entry, _ := b.switchCore(s, continueTarget, "")
	return entry
}

// typeSwitchCore lowers a type switch. Go disallows fallthrough here, so
// every case wires directly to the after-block.
func (b *builder) typeSwitchCore(s *ast.TypeSwitchStmt, continueTarget int, label string) (entry, exit int) {
	headerID := b.insertSingle(s, KindTypeSwitch)
	afterID := b.insertMerge()
	if label != "" {
		b.afterBlocks[label] = afterID
		b.labelMap[label] = headerID
		b.labelBound[headerID] = true
		b.blocks[headerID].Label = label
	}

	var entries []int
	for _, c := range s.Body.List {
		clause, ok := c.(*ast.CaseClause)
		if !ok {
			continue
		}
		e, x := b.buildChain(clause.Body, continueTarget, afterID)
		entries = append(entries, e)
		b.connectIfOpen(x, afterID)
	}

	if len(entries) == 0 {
		b.blocks[headerID].Successors = []int{afterID}
	} else {
		b.blocks[headerID].Successors = entries
	}

	return headerID, afterID
}

func (b *builder) buildTypeSwitch(s *ast.TypeSwitchStmt, prev, continueTarget, breakTarget int) int {
	entry, exit := b.typeSwitchCore(s, continueTarget, "")
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildTypeSwitchEntry(s *ast.TypeSwitchStmt, continueTarget, breakTarget int) int {
	entry, _ := b.typeSwitchCore(s, continueTarget, "")
	return entry
}
