package cfg

import "fmt"

// Validate checks the post-processed graph's structural invariants and
// appends a warning for every violation found — validation never fails
// the build; a malformed block is reported and left in place for the
// caller to inspect, per the error handling design's "warnings never
// abort analysis" rule.
func Validate(g *ControlFlowGraph) {
	for id, blk := range g.Blocks {
		for _, s := range blk.Successors {
			if _, ok := g.Blocks[s]; !ok {
				g.Warnings = append(g.Warnings, fmt.Sprintf(
					"block %d (%s) has dangling successor %d", id, blk.Kind, s))
			}
		}
		if id != g.Exit && len(blk.Successors) == 0 {
			g.Warnings = append(g.Warnings, fmt.Sprintf(
				"block %d (%s) has no successors and is not the exit block", id, blk.Kind))
		}
	}
	if _, ok := g.Blocks[g.Entry]; !ok {
		g.Warnings = append(g.Warnings, fmt.Sprintf("entry block %d missing after post-processing", g.Entry))
	}
	if _, ok := g.Blocks[g.Exit]; !ok {
		g.Warnings = append(g.Warnings, fmt.Sprintf("exit block %d missing after post-processing", g.Exit))
	}
}
