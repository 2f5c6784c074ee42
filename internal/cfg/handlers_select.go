package cfg

import "go/ast"

// selectCore lowers a select statement: one successor per comm clause,
// each built independently, all converging on a single after-block.
func (b *builder) selectCore(s *ast.SelectStmt, continueTarget int, label string) (entry, exit int) {
	headerID := b.insertSingle(s, KindSelect)
	afterID := b.insertMerge()
	if label != "" {
		b.afterBlocks[label] = afterID
		b.labelMap[label] = headerID
		b.labelBound[headerID] = true
		b.blocks[headerID].Label = label
	}

	var entries []int
	for _, c := range s.Body.List {
		clause, ok := c.(*ast.CommClause)
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

func (b *builder) buildSelect(s *ast.SelectStmt, prev, continueTarget, breakTarget int) int {
	entry, exit := b.selectCore(s, continueTarget, "")
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildSelectEntry(s *ast.SelectStmt, continueTarget, breakTarget int) int {
	entry, _ := b.selectCore(s, continueTarget, "")
	return entry
}
