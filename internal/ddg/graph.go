package ddg

import (
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// NodeID indexes a node in its graph. IDs follow build order: the source
// sentinel is 0, then the block's statements, then the sink.
type NodeID int

// Edge is a dependency between two nodes.
type Edge struct {
	From   NodeID
	To     NodeID
	Weight int
	Causes []Cause
}

// Node is the graph vertex for one statement.
type Node struct {
	Statement ir.Statement
	// Order is the position in the block, used to break ties. It is negated
	// by Reverse.
	Order int

	successors   []*Edge
	predecessors []*Edge
	succIndex    map[NodeID]*Edge
	predIndex    map[NodeID]*Edge
}

func newNode(s ir.Statement, order int) *Node {
	return &Node{
		Statement: s,
		Order:     order,
		succIndex: make(map[NodeID]*Edge),
		predIndex: make(map[NodeID]*Edge),
	}
}

// Successors returns the outgoing edges in creation order.
func (n *Node) Successors() []*Edge { return n.successors }

// Predecessors returns the incoming edges in creation order.
func (n *Node) Predecessors() []*Edge { return n.predecessors }

// Graph is the data dependency graph of one block.
type Graph struct {
	block     *ir.SubBlock
	nodes     []*Node
	byStmt    map[ir.Statement]NodeID
	source    NodeID
	sink      NodeID
	direction int
	remaining []int
}

// Block returns the block the graph was built for.
func (g *Graph) Block() *ir.SubBlock { return g.live().block }

// Len returns the number of nodes, sentinels included.
func (g *Graph) Len() int { return len(g.live().nodes) }

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) *Node { return g.live().nodes[id] }

// Nodes returns all nodes in build order.
func (g *Graph) Nodes() []*Node { return g.live().nodes }

// NodeOf returns the node ID of a statement in the graph.
func (g *Graph) NodeOf(s ir.Statement) (NodeID, bool) {
	id, ok := g.live().byStmt[s]
	return id, ok
}

// Statement returns the statement of node id.
func (g *Graph) Statement(id NodeID) ir.Statement { return g.Node(id).Statement }

// Source returns the node every schedule starts from. After Reverse this is
// the sentinel that was built as the sink.
func (g *Graph) Source() NodeID { return g.live().source }

// Sink returns the node every schedule ends with.
func (g *Graph) Sink() NodeID { return g.live().sink }

// Direction is +1 for a forward (ASAP) graph and -1 once reversed (ALAP).
func (g *Graph) Direction() int { return g.live().direction }

// Edge returns the edge from -> to, or nil.
func (g *Graph) Edge(from, to NodeID) *Edge {
	return g.Node(from).succIndex[to]
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, node := range g.live().nodes {
		n += len(node.successors)
	}
	return n
}

// Clear releases the graph. Any later use is an internal error.
func (g *Graph) Clear() {
	g.nodes = nil
	g.byStmt = nil
	g.remaining = nil
	g.block = nil
}

func (g *Graph) live() *Graph {
	if g == nil || g.nodes == nil {
		errs.ICE("use of cleared or missing data dependency graph")
	}
	return g
}

func (g *Graph) addNode(s ir.Statement, order int) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, newNode(s, order))
	g.byStmt[s] = id
	return id
}

// edge returns the edge from -> to, creating it if needed.
func (g *Graph) edge(from, to NodeID) *Edge {
	f := g.nodes[from]
	if e, ok := f.succIndex[to]; ok {
		return e
	}
	e := &Edge{From: from, To: to}
	t := g.nodes[to]
	_, dup := t.predIndex[from]
	errs.Assert(!dup, "predecessor map has no edge that the successor map lacks")
	f.successors = append(f.successors, e)
	f.succIndex[to] = e
	t.predecessors = append(t.predecessors, e)
	t.predIndex[from] = e
	return e
}
