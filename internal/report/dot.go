package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"goflow/internal/cfg"
)

// DOT renders one digraph per function, each in its own cluster
// subgraph. Nodes are labelled by block id plus a trimmed
// first-statement summary;
// edges are emitted in successor order so branch edge 0 always precedes
// edge 1 in the source, matching the planner's succ_index convention.
func DOT(graphs map[string]*cfg.ControlFlowGraph) []byte {
	names := make([]string, 0, len(graphs))
	for fn := range graphs {
		names = append(names, fn)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("digraph goflow {\n  node [shape=box, fontname=\"monospace\"];\n\n")
	for _, fn := range names {
		writeFunctionCluster(&buf, fn, graphs[fn])
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func writeFunctionCluster(buf *bytes.Buffer, fn string, g *cfg.ControlFlowGraph) {
	cluster := dotID(fn)
	fmt.Fprintf(buf, "  subgraph cluster_%s {\n    label=%q;\n", cluster, fn)

	ids := make([]int, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		blk := g.Blocks[id]
		shape := "box"
		if id == g.Entry || id == g.Exit {
			shape = "ellipse"
		}
		fmt.Fprintf(buf, "    %s [label=%q, shape=%s];\n", nodeName(cluster, id), blockLabel(blk), shape)
	}
	for _, id := range ids {
		blk := g.Blocks[id]
		for _, target := range blk.Successors {
			fmt.Fprintf(buf, "    %s -> %s;\n", nodeName(cluster, id), nodeName(cluster, target))
		}
	}
	buf.WriteString("  }\n\n")
}

func nodeName(cluster string, id int) string {
	return fmt.Sprintf("%s_b%d", cluster, id)
}

// blockLabel summarises a block as "#id kind: first statement text",
// truncated so DOT rendering stays readable for large functions.
func blockLabel(blk *cfg.BasicBlock) string {
	summary := ""
	for _, s := range blk.Statements {
		if !s.Implicit && s.Text != "" {
			summary = s.Text
			break
		}
	}
	summary = strings.ReplaceAll(summary, "\n", " ")
	if len(summary) > 40 {
		summary = summary[:37] + "..."
	}
	if summary == "" {
		return fmt.Sprintf("#%d %s", blk.ID, blk.Kind)
	}
	return fmt.Sprintf("#%d %s: %s", blk.ID, blk.Kind, summary)
}

// dotID sanitizes a Go identifier (which may contain '.', '(', ')' for
// methods) into a valid DOT node/cluster id fragment.
func dotID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
