package ddg

import (
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
)

// Reverse turns the graph around in place: source and sink swap roles,
// successors and predecessors swap, node order and edge weights are negated
// and the direction flips. Scheduling a reversed graph yields ALAP instead
// of ASAP.
func (g *Graph) Reverse() {
	g.live()
	g.source, g.sink = g.sink, g.source
	g.direction = -g.direction
	for _, n := range g.nodes {
		n.successors, n.predecessors = n.predecessors, n.successors
		n.succIndex, n.predIndex = n.predIndex, n.succIndex
		n.Order = -n.Order
		for _, e := range n.successors {
			e.From, e.To = e.To, e.From
			e.Weight = -e.Weight
		}
	}
	g.remaining = nil
}

// ComputeRemaining annotates every node with the length of the longest
// weighted path from it to the sink. Only valid for a forward graph.
func (g *Graph) ComputeRemaining() error {
	g.live()
	if g.direction != 1 {
		return errs.Internalf("cannot compute remaining cycles on a reversed data dependency graph")
	}
	rem := make([]int, len(g.nodes))
	// Edges always point from a lower to a higher node ID, so walking the
	// IDs backwards visits every successor first.
	for id := len(g.nodes) - 1; id >= 0; id-- {
		for _, e := range g.nodes[id].successors {
			if e.Weight < 0 {
				return errs.Internalf("negative edge weight %d in forward graph", e.Weight)
			}
			errs.Assert(int(e.To) > id, "forward edges point to later nodes")
			if r := e.Weight + rem[e.To]; r > rem[id] {
				rem[id] = r
			}
		}
	}
	g.remaining = rem
	return nil
}

// Remaining returns the annotation computed by ComputeRemaining.
func (g *Graph) Remaining(id NodeID) (int, bool) {
	if g.live().remaining == nil {
		return 0, false
	}
	return g.remaining[id], true
}
