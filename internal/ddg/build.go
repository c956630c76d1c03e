package ddg

import (
	"context"
	"log/slog"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// Options control graph construction.
type Options struct {
	// CommuteMultiQubit honors COMMUTE_* modes of multi-qubit instructions.
	CommuteMultiQubit bool
	// CommuteSingleQubit honors COMMUTE_* modes of single-qubit instructions.
	CommuteSingleQubit bool
	// Logger receives debug traces. Defaults to slog.Default().
	Logger *slog.Logger
}

// eventNode is an event together with the node whose statement caused it.
type eventNode struct {
	event Event
	node  NodeID
}

type builder struct {
	g        *Graph
	gatherer *EventGatherer
	log      *slog.Logger
	debug    bool

	// commuting holds in-flight events that all commute with each other.
	// Incoming events always land here, first evicting whatever they do not
	// commute with into nonCommuting.
	commuting []eventNode

	// nonCommuting holds events that can no longer commute with future
	// events. Every incoming event gets an edge from each entry it may
	// overlap.
	nonCommuting []eventNode

	order int
}

// Build constructs the forward data dependency graph of block. Statements
// are processed once, in order, between a source and a sink sentinel.
func Build(p *ir.Platform, block *ir.SubBlock, opts Options) *Graph {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	b := &builder{
		g: &Graph{
			block:     block,
			byStmt:    make(map[ir.Statement]NodeID, len(block.Statements)+2),
			direction: 1,
		},
		gatherer: NewEventGatherer(p),
		log:      log,
		debug:    log.Enabled(context.Background(), slog.LevelDebug),
	}
	b.gatherer.DisableMultiQubitCommutation = !opts.CommuteMultiQubit
	b.gatherer.DisableSingleQubitCommutation = !opts.CommuteSingleQubit

	source := &ir.SentinelStatement{Name: "source"}
	sink := &ir.SentinelStatement{Name: "sink"}
	b.g.source = b.processStatement(source)
	for _, s := range block.Statements {
		b.processStatement(s)
	}
	b.g.sink = b.processStatement(sink)
	return b.g
}

func (b *builder) processStatement(s ir.Statement) NodeID {
	if b.debug {
		b.log.Debug("ddg: process statement",
			"stmt", ir.Describe(s),
			"commuting", len(b.commuting),
			"non_commuting", len(b.nonCommuting))
	}
	_, dup := b.g.byStmt[s]
	errs.Assert(!dup, "statement occurs only once in block")
	id := b.g.addNode(s, b.order)
	b.order++

	b.gatherer.Reset()
	b.gatherer.AddStatement(s)

	// A statement without events, like while (true) {}, would become an
	// island. Treat it as a barrier.
	if len(b.gatherer.Events()) == 0 {
		b.gatherer.AddReference(ir.ModeBarrier, nil)
	}
	for _, ev := range b.gatherer.Events() {
		b.processEvent(eventNode{event: ev, node: id})
	}
	return id
}

// commutes reports whether two entries may be reordered. Events of the same
// node always commute with each other.
func commutes(a, b eventNode) bool {
	if a.node == b.node {
		return true
	}
	return a.event.CommutesWith(b.event)
}

func (b *builder) processEvent(in eventNode) {
	if b.debug {
		b.log.Debug("ddg: process event", "event", in.event.String())
	}

	kept := b.commuting[:0]
	for _, c := range b.commuting {
		if commutes(c, in) {
			kept = append(kept, c)
			continue
		}
		b.evict(c)
	}
	clear(b.commuting[len(kept):])
	b.commuting = kept

	// Edges to global-state entries are only needed when no specific edge
	// was added: any specific predecessor is itself ordered after them.
	anyEdge := false
	var global []eventNode
	for _, nc := range b.nonCommuting {
		if nc.event.Reference.IsGlobal() {
			global = append(global, nc)
			continue
		}
		if !nc.event.Reference.ProvablyDistinctFrom(in.event.Reference) {
			b.addEdge(nc, in)
			anyEdge = true
		}
	}
	if !anyEdge {
		for _, nc := range global {
			errs.Assert(!commutes(nc, in), "global entry does not commute with incoming event")
			b.addEdge(nc, in)
		}
	}

	b.commuting = append(b.commuting, in)
}

// evict moves an entry from commuting to nonCommuting. Entries already in
// nonCommuting that the evicted event shadows are dropped: anything that
// would need an edge from them gets one from the evicted entry, which is
// itself ordered after them.
func (b *builder) evict(c eventNode) {
	if b.debug {
		b.log.Debug("ddg: evict", "event", c.event.String(), "stmt", ir.Describe(b.g.nodes[c.node].Statement))
	}
	kept := b.nonCommuting[:0]
	for _, nc := range b.nonCommuting {
		if !nc.event.ShadowedBy(c.event) {
			kept = append(kept, nc)
		}
	}
	clear(b.nonCommuting[len(kept):])
	b.nonCommuting = append(kept, c)
}

func (b *builder) addEdge(from, to eventNode) {
	errs.Assert(from.node != to.node, "no self edges")
	e := b.g.edge(from.node, to.node)
	if d := ir.Duration(b.g.nodes[from.node].Statement); d > e.Weight {
		e.Weight = d
	}
	cause := Cause{
		Reference: from.event.Reference.Intersect(to.event.Reference),
		Type:      DependencyType{First: from.event.Mode, Second: to.event.Mode},
	}
	e.Causes = append(e.Causes, cause)
	if b.debug {
		b.log.Debug("ddg: add edge",
			"from", ir.Describe(b.g.nodes[from.node].Statement),
			"to", ir.Describe(b.g.nodes[to.node].Statement),
			"cause", cause.String(),
			"weight", e.Weight)
	}
}
