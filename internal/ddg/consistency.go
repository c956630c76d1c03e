package ddg

import (
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

const (
	unvisited = iota
	onPath
	done
)

// pathfind marks every node reachable from id, failing on a cycle.
func (g *Graph) pathfind(id NodeID, state []int) {
	switch state[id] {
	case onPath:
		errs.ICE("found cycle")
	case done:
		return
	}
	state[id] = onPath
	for _, e := range g.nodes[id].successors {
		g.pathfind(e.To, state)
	}
	state[id] = done
}

// CheckConsistency verifies the structural invariants of the graph. The
// builder never produces an inconsistent graph; this is a debugging aid.
func (g *Graph) CheckConsistency() (err error) {
	defer errs.Recover(&err, "data dependency graph consistency check failed")

	if g == nil || g.nodes == nil {
		errs.ICE("missing data dependency graph")
	}
	if g.direction != 1 && g.direction != -1 {
		errs.ICE("invalid graph direction %d", g.direction)
	}

	source := g.nodes[g.source]
	if len(source.predecessors) != 0 {
		errs.ICE("source node has incoming edges")
	}
	if len(source.successors) == 0 {
		errs.ICE("source node has no outgoing edges")
	}
	if source.Order > 0 {
		errs.ICE("source node does not have order <= 0")
	}
	sink := g.nodes[g.sink]
	if len(sink.predecessors) == 0 {
		errs.ICE("sink node has no incoming edges")
	}
	if len(sink.successors) != 0 {
		errs.ICE("sink node has outgoing edges")
	}
	if sink.Order < 0 {
		errs.ICE("sink node does not have order >= 0")
	}

	state := make([]int, len(g.nodes))
	g.pathfind(g.source, state)

	seen := make(map[NodeID]bool, len(g.nodes))
	seen[g.source] = true
	for _, s := range g.block.Statements {
		id, ok := g.byStmt[s]
		if !ok {
			errs.ICE("statement %s has no node", ir.Describe(s))
		}
		if state[id] != done {
			errs.ICE("node for %s statement is not reachable from the source node", ir.Describe(s))
		}
		if seen[id] {
			errs.ICE("node is used for more than one statement")
		}
		seen[id] = true
	}
	if state[g.sink] != done {
		errs.ICE("sink node is not reachable from the source node")
	}
	if seen[g.sink] {
		errs.ICE("node is used for more than one statement")
	}
	seen[g.sink] = true

	reachable := 0
	for _, st := range state {
		if st == done {
			reachable++
		}
	}
	if len(seen) != reachable || len(seen) != len(g.nodes) {
		errs.ICE("node-statement relationship is not one-to-one")
	}

	for _, s := range g.block.Statements {
		n := g.nodes[g.byStmt[s]]
		if len(n.successors) == 0 {
			errs.ICE("non-sentinel statement node is missing successors")
		}
		if len(n.predecessors) == 0 {
			errs.ICE("non-sentinel statement node is missing predecessors")
		}
	}

	edges := make(map[*Edge]bool)
	type pair struct{ from, to NodeID }
	pairs := make(map[pair]bool)
	for _, n := range g.nodes {
		for _, e := range n.successors {
			if edges[e] {
				errs.ICE("edge is used more than once")
			}
			edges[e] = true
			if pairs[pair{e.From, e.To}] {
				errs.ICE("more than one edge between the same pair of nodes")
			}
			pairs[pair{e.From, e.To}] = true
		}
	}
	for id, n := range g.nodes {
		for _, e := range n.successors {
			if e.From != NodeID(id) {
				errs.ICE("outgoing edge of node does not have that node as predecessor")
			}
			if n.succIndex[e.To] != e {
				errs.ICE("successor index does not match successor list")
			}
		}
		for _, e := range n.predecessors {
			if e.To != NodeID(id) {
				errs.ICE("incoming edge of node does not have that node as successor")
			}
			if !edges[e] {
				errs.ICE("incoming edge was not found as outgoing edge of any node")
			}
			if n.predIndex[e.From] != e {
				errs.ICE("predecessor index does not match predecessor list")
			}
		}
	}

	for e := range edges {
		if e.Weight != 0 && (e.Weight > 0) != (g.direction > 0) {
			errs.ICE("sign of edge weight does not correspond to graph direction")
		}
	}
	return nil
}
