package ddg

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// nodeIndex is the number a node is shown as: the absolute value of its
// order, which is the same before and after reversal.
func nodeIndex(n *Node) int {
	if n.Order < 0 {
		return -n.Order
	}
	return n.Order
}

// numberedEdges returns all edges in the order they are numbered in dot
// output: by node, then by successor creation order.
func (g *Graph) numberedEdges() []*Edge {
	var edges []*Edge
	for _, n := range g.nodes {
		edges = append(edges, n.successors...)
	}
	return edges
}

// WriteDot writes a graphviz rendering of the graph including the current
// cycle numbers of its statements. Every line starts with linePrefix.
func WriteDot(w io.Writer, g *Graph, linePrefix string) error {
	g.live()
	var sb strings.Builder
	line := func(format string, args ...any) {
		sb.WriteString(linePrefix)
		fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}

	line("digraph ddg {")
	line("")
	line("  graph [ rankdir=TD ]")
	line("  edge [ fontsize=16, arrowhead=vee, arrowsize=0.5 ]")
	line("")

	for id, n := range g.nodes {
		idx := nodeIndex(n)
		label := fmt.Sprintf("n%d: %s<br/>cycle %d", idx, htmlEscaper.Replace(ir.Describe(n.Statement)), n.Statement.Cycle())
		if r, ok := g.Remaining(NodeID(id)); ok {
			label += fmt.Sprintf(", remaining %d", r)
		}
		line("  n%d [ label=<%s>, shape=box, fontcolor=black, style=filled, fontsize=16 ]", idx, label)
	}
	line("")

	// Rank the nodes by cycle, but only when the graph looks scheduled.
	var cycles []int
	for _, n := range g.nodes {
		cycles = append(cycles, n.Statement.Cycle())
	}
	slices.Sort(cycles)
	cycles = slices.Compact(cycles)
	if len(cycles) > 1 {
		first, last := "Source", "Sink"
		if g.direction < 0 {
			first, last = last, first
		}
		line("  {")
		line("    node [ shape=plaintext, fontsize=16, fontcolor=blue ]")
		sb.WriteString(linePrefix + "    " + first)
		gaps, col := 0, 0
		for i, c := range cycles {
			if i > 0 && c-1 > cycles[i-1] {
				fmt.Fprintf(&sb, " -> Gap%d", gaps)
				gaps++
				col++
			}
			fmt.Fprintf(&sb, " -> Cycle%d", c)
			col++
			if col >= 10 {
				sb.WriteByte('\n')
				fmt.Fprintf(&sb, "%s    Cycle%d", linePrefix, c)
				col = 0
			}
		}
		sb.WriteString(" -> " + last + "\n")
		for gap := 0; gap < gaps; gap++ {
			line("    Gap%d [ label=\"...\" ]", gap)
		}
		line("  }")
		line("")
		for _, n := range g.nodes {
			rank := fmt.Sprintf("Cycle%d", n.Statement.Cycle())
			switch {
			case len(n.predecessors) == 0:
				rank = "Source"
			case len(n.successors) == 0:
				rank = "Sink"
			}
			line("  { rank=same; %s; n%d; }", rank, nodeIndex(n))
		}
		line("")
	}

	for i, e := range g.numberedEdges() {
		line("  n%d -> n%d [ label=\"e%d (%d)\" ]",
			nodeIndex(g.nodes[e.From]), nodeIndex(g.nodes[e.To]), i, e.Weight)
	}
	line("}")

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteDotKey writes the companion key for WriteDot: one header line per
// edge followed by one line per cause.
func WriteDotKey(w io.Writer, g *Graph) error {
	g.live()
	var sb strings.Builder
	for i, e := range g.numberedEdges() {
		fmt.Fprintf(&sb, "e%d: n%d -> n%d weight %d\n",
			i, nodeIndex(g.nodes[e.From]), nodeIndex(g.nodes[e.To]), e.Weight)
		for _, c := range e.Causes {
			fmt.Fprintf(&sb, "  %s %s->%s\n", c.Reference, c.Type.First, c.Type.Second)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
