package cfg

// maxCollapsePasses bounds the empty-block collapsing loop: each pass
// removes at least one block or stops early, so real graphs converge in
// a handful of passes; this is a safety cap against a pathological
// input, not an expected iteration count.
const maxCollapsePasses = 10

// PostProcess runs the mandatory CFG simplification passes: unreachable
// pruning (before and after collapsing, since collapsing can expose
// further unreachable blocks), empty-block collapsing to a fixpoint, and
// redundant-jump elimination. labelBound marks blocks a Go label
// addresses (a `goto` target, or the after-block a labelled loop's
// `break L` leaves to); those are never collapsed away.
//
// Block merging (the fourth post-processor pass) is optional and not
// run here — callers that want a denser graph (e.g. DOT rendering) call
// MergeStraightLine explicitly after PostProcess.
func PostProcess(g *ControlFlowGraph, labelBound map[int]bool) {
	pruneUnreachable(g)
	collapseEmptyBlocks(g, labelBound)
	eliminateRedundantJumps(g)
	pruneUnreachable(g)
}

// MergeStraightLine runs the optional block-merging pass: consecutive
// blocks A -> B fold into one when A has exactly one successor (B) and B
// has exactly one predecessor (A), neither is entry/exit. Safe to call
// any number of times on an already-merged graph.
func MergeStraightLine(g *ControlFlowGraph) {
	mergeStraightLine(g)
}

// pruneUnreachable removes every block not reachable from entry by a DFS
// over successor edges.
func pruneUnreachable(g *ControlFlowGraph) {
	reachable := make(map[int]bool)
	stack := []int{g.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		blk, ok := g.Blocks[id]
		if !ok {
			continue
		}
		for _, s := range blk.Successors {
			if !reachable[s] {
				stack = append(stack, s)
			}
		}
	}

	for id := range g.Blocks {
		if !reachable[id] {
			delete(g.Blocks, id)
		}
	}
}

// isEmpty reports whether a block carries no real code: exactly one
// statement, and that one the synthetic implicit placeholder
// insertMerge/the zero-value for-condition produce. A block with no
// statements at all is not treated as empty.
func isEmpty(blk *BasicBlock) bool {
	if blk.Kind == KindEntry || blk.Kind == KindExit {
		return false
	}
	if len(blk.Statements) != 1 {
		return false
	}
	return blk.Statements[0].Implicit
}

// collapseEmptyBlocks repeatedly removes empty, non-label-bound blocks
// with at most one successor, rewriting every other block's successor
// list to skip over them, until a pass removes nothing or the safety
// cap is hit.
func collapseEmptyBlocks(g *ControlFlowGraph, labelBound map[int]bool) {
	for pass := 0; pass < maxCollapsePasses; pass++ {
		removed := false

		for id, blk := range g.Blocks {
			if id == g.Entry || id == g.Exit {
				continue
			}
			if labelBound != nil && labelBound[id] {
				continue
			}
			if !isEmpty(blk) {
				continue
			}
			if len(blk.Successors) > 1 {
				continue
			}

			var target int
			hasTarget := len(blk.Successors) == 1
			if hasTarget {
				target = blk.Successors[0]
				if target == id {
					// self-loop empty block: leave it, nothing sane to collapse to.
					continue
				}
			}

			for _, other := range g.Blocks {
				if other.ID == id {
					continue
				}
				for i, s := range other.Successors {
					if s == id {
						if hasTarget {
							other.Successors[i] = target
						}
					}
				}
			}

			if g.Entry == id && hasTarget {
				g.Entry = target
			}

			delete(g.Blocks, id)
			removed = true
		}

		if !removed {
			break
		}
	}
}

// eliminateRedundantJumps drops duplicate successor entries a collapse
// pass can leave behind — e.g. an if-block whose then and else arms both
// collapsed onto the same after-block ends up listing it twice.
func eliminateRedundantJumps(g *ControlFlowGraph) {
	for _, blk := range g.Blocks {
		if len(blk.Successors) < 2 {
			continue
		}
		seen := make(map[int]bool, len(blk.Successors))
		out := blk.Successors[:0]
		for _, s := range blk.Successors {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
		blk.Successors = out
	}
}

// mergeStraightLine folds a block into its unique successor when that
// successor has no other predecessor, collapsing straight-line runs
// into a single block without changing the graph's branch structure.
func mergeStraightLine(g *ControlFlowGraph) {
	for {
		predCount := make(map[int]int)
		for _, blk := range g.Blocks {
			for _, s := range blk.Successors {
				predCount[s]++
			}
		}

		merged := false
		for id, blk := range g.Blocks {
			if id == g.Exit {
				continue
			}
			if len(blk.Successors) != 1 {
				continue
			}
			next := blk.Successors[0]
			if next == id || next == g.Entry || next == g.Exit {
				continue
			}
			if predCount[next] != 1 {
				continue
			}
			nb, ok := g.Blocks[next]
			if !ok || nb.Kind == KindExit {
				continue
			}

			blk.Statements = append(blk.Statements, nb.Statements...)
			blk.Successors = nb.Successors
			if nb.EndLine > blk.EndLine {
				blk.EndLine = nb.EndLine
			}
			delete(g.Blocks, next)
			merged = true
			break
		}

		if !merged {
			break
		}
	}
}
