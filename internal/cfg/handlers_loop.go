package cfg

import "go/ast"

// forCore lowers a classic for-loop (Init; Cond; Post) or an infinite
// `for {}`. label is non-empty only when this loop carries a Go label,
// in which case break/continue targets are also registered under that
// label for use by nested constructs.
//
// continue inside the body targets the condition block directly, even
// when a post statement exists; the post block sits on the body's normal
// (non-continue) exit path only.
func (b *builder) forCore(s *ast.ForStmt, label string) (entry, exit int) {
	hasInit := s.Init != nil
	var initID int
	if hasInit {
		initID = b.insertSingle(s.Init, KindPlain)
	}

	condID := b.insertCondBlock(KindForCond, s.Cond)
	b.blocks[condID].Statements[0].Node = s
	afterID := b.insertMerge()

	hasPost := s.Post != nil
	var postID int
	if hasPost {
		postID = b.insertSingle(s.Post, KindPlain)
	}

	continueTarget := condID

	if label != "" {
		b.loopContexts[label] = loopContext{CondID: continueTarget, AfterID: afterID}
		b.labelBound[afterID] = true
	}

	bodyEntry, bodyExit := b.buildChain(s.Body.List, continueTarget, afterID)

	if hasPost {
		b.blocks[postID].Successors = []int{condID}
		b.connectIfOpen(bodyExit, postID)
	} else {
		b.connectIfOpen(bodyExit, condID)
	}

	if s.Cond != nil {
		b.blocks[condID].Successors = []int{bodyEntry, afterID}
	} else {
		b.blocks[condID].Successors = []int{bodyEntry}
	}

	entry = condID
	if hasInit {
		b.blocks[initID].Successors = []int{condID}
		entry = initID
	}

	if label != "" {
		b.labelMap[label] = entry
		b.labelBound[entry] = true
		b.blocks[entry].Label = label
	}

	return entry, afterID
}

func (b *builder) buildFor(s *ast.ForStmt, prev int) int {
	entry, exit := b.forCore(s, "")
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildForEntry(s *ast.ForStmt) int {
	entry, _ := b.forCore(s, "")
	return entry
}

// rangeCore lowers a for-range loop. As in a classic for-loop, continue
// targets the header block directly.
func (b *builder) rangeCore(s *ast.RangeStmt, label string) (entry, exit int) {
	condID := b.insertSingle(s, KindRangeCond)
	afterID := b.insertMerge()

	continueTarget := condID
	if label != "" {
		b.loopContexts[label] = loopContext{CondID: continueTarget, AfterID: afterID}
		b.labelBound[afterID] = true
	}

	bodyEntry, bodyExit := b.buildChain(s.Body.List, continueTarget, afterID)
	b.connectIfOpen(bodyExit, condID)
	b.blocks[condID].Successors = []int{bodyEntry, afterID}

	entry = condID
	if label != "" {
		b.labelMap[label] = entry
		b.labelBound[entry] = true
		b.blocks[entry].Label = label
	}

	return entry, afterID
}

func (b *builder) buildRange(s *ast.RangeStmt, prev int) int {
	entry, exit := b.rangeCore(s, "")
	b.connectIfOpen(prev, entry)
	return exit
}

func (b *builder) buildRangeEntry(s *ast.RangeStmt) int {
	entry, _ := b.rangeCore(s, "")
	return entry
}
