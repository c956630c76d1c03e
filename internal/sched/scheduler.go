// Package sched implements resource-constrained list scheduling of a block
// over its data dependency graph.
//
// A Scheduler walks the cycles of one block in the direction of its graph.
// Every statement is in exactly one of four sets: waiting for predecessors,
// pending until a known future cycle, available, or scheduled. Scheduling a
// statement releases its successors; advancing the cycle promotes pending
// statements. The heuristic decides which available statement goes first.
package sched

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/ddg"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
)

// ErrDeadlock is returned when no statement could be scheduled for more
// consecutive cycles than allowed.
var ErrDeadlock = errors.New("resource deadlock")

type nodeState uint8

const (
	stateWaiting nodeState = iota
	statePending
	stateAvailable
	stateScheduled
)

// pendingCycle holds the statements that become available in one cycle.
type pendingCycle struct {
	cycle int
	nodes []ddg.NodeID
}

// Scheduler is the list scheduling state machine for one graph.
type Scheduler struct {
	graph     *ddg.Graph
	heuristic Heuristic
	resources rmgr.State
	logger    *slog.Logger

	direction int
	cycle     int

	states    []nodeState
	cycles    []int
	available []ddg.NodeID
	// pending is ordered nearest cycle first.
	pending      []pendingCycle
	numScheduled int
}

// New creates a scheduler for g and schedules its source in cycle 0. A nil
// oracle means no resource constraints; a nil heuristic means Trivial.
func New(g *ddg.Graph, h Heuristic, oracle rmgr.Oracle, logger *slog.Logger) *Scheduler {
	if h == nil {
		h = Trivial{}
	}
	if oracle == nil {
		oracle = rmgr.Unconstrained
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		graph:     g,
		heuristic: h,
		resources: oracle.Build(rmgr.DirectionOf(g.Direction())),
		logger:    logger,
		direction: g.Direction(),
		states:    make([]nodeState, g.Len()),
		cycles:    make([]int, g.Len()),
	}
	s.states[g.Source()] = stateAvailable
	s.available = append(s.available, g.Source())
	s.schedule(g.Source())
	return s
}

// Cycle returns the current cycle.
func (s *Scheduler) Cycle() int { return s.cycle }

// Direction returns +1 when cycles count up (ASAP) and -1 when they count
// down (ALAP).
func (s *Scheduler) Direction() int { return s.direction }

// CycleOf returns the cycle node id was scheduled in.
func (s *Scheduler) CycleOf(id ddg.NodeID) (int, bool) {
	if s.states[id] != stateScheduled {
		return 0, false
	}
	return s.cycles[id], true
}

// Cycles returns the scheduled cycle of every node, indexed by node ID.
// Only meaningful once IsDone reports true.
func (s *Scheduler) Cycles() []int { return slices.Clone(s.cycles) }

func (s *Scheduler) debug(msg string, args ...any) {
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug(msg, args...)
	}
}

// byCriticality orders nodes most critical first, then by order.
func (s *Scheduler) byCriticality(nodes []ddg.NodeID) []ddg.NodeID {
	out := slices.Clone(nodes)
	slices.SortStableFunc(out, func(a, b ddg.NodeID) int {
		switch {
		case s.heuristic.Less(b, a):
			return -1
		case s.heuristic.Less(a, b):
			return 1
		}
		return cmp.Compare(s.graph.Node(a).Order, s.graph.Node(b).Order)
	})
	return out
}

// Available returns the statements that could be scheduled in the current
// cycle, most critical first.
func (s *Scheduler) Available() []ir.Statement {
	var out []ir.Statement
	for _, id := range s.byCriticality(s.available) {
		st := s.graph.Statement(id)
		if s.resources.Available(s.cycle, st) {
			out = append(out, st)
		}
	}
	return out
}

func (s *Scheduler) absMax(a, b int) int {
	if abs(b) > abs(a) {
		return b
	}
	return a
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (s *Scheduler) addPending(cycle int, id ddg.NodeID) {
	i, found := slices.BinarySearchFunc(s.pending, cycle, func(p pendingCycle, c int) int {
		return cmp.Compare(s.direction*p.cycle, s.direction*c)
	})
	if !found {
		s.pending = slices.Insert(s.pending, i, pendingCycle{cycle: cycle})
	}
	s.pending[i].nodes = append(s.pending[i].nodes, id)
	s.states[id] = statePending
}

// promote moves every pending statement due by the current cycle to the
// available set.
func (s *Scheduler) promote() {
	for len(s.pending) > 0 && s.direction*s.pending[0].cycle <= s.direction*s.cycle {
		for _, id := range s.pending[0].nodes {
			s.states[id] = stateAvailable
			s.available = append(s.available, id)
		}
		s.pending = s.pending[1:]
	}
}

// schedule commits an available node to the current cycle. The caller has
// checked resource availability.
func (s *Scheduler) schedule(id ddg.NodeID) {
	errs.Assert(s.states[id] == stateAvailable, "only available statements are scheduled")
	st := s.graph.Statement(id)
	if err := s.resources.Reserve(s.cycle, st); err != nil {
		errs.ICE("resource state rejected a reservation it reported available: %v", err)
	}
	s.debug("scheduled statement", "cycle", s.cycle, "statement", ir.Describe(st))
	s.cycles[id] = s.cycle
	s.states[id] = stateScheduled
	s.numScheduled++
	idx := slices.Index(s.available, id)
	s.available = slices.Delete(s.available, idx, idx+1)

	for _, e := range s.graph.Node(id).Successors() {
		succ := e.To
		if s.states[succ] != stateWaiting {
			errs.ICE("successor of a statement being scheduled is no longer waiting")
		}
		ready := true
		from := 0
		for _, pe := range s.graph.Node(succ).Predecessors() {
			if s.states[pe.From] != stateScheduled {
				ready = false
				break
			}
			from = s.absMax(from, s.cycles[pe.From]+pe.Weight)
		}
		if !ready {
			continue
		}
		if from == s.cycle {
			s.states[succ] = stateAvailable
			s.available = append(s.available, succ)
		} else {
			s.addPending(from, succ)
		}
	}

	if len(s.available) == 0 && len(s.pending) > 0 {
		s.cycle = s.pending[0].cycle
		s.promote()
	}
}

// TrySchedule schedules st in the current cycle if it is available and its
// resources are free.
func (s *Scheduler) TrySchedule(st ir.Statement) bool {
	id, ok := s.graph.NodeOf(st)
	if !ok || s.states[id] != stateAvailable {
		return false
	}
	if !s.resources.Available(s.cycle, st) {
		return false
	}
	s.schedule(id)
	return true
}

// TryScheduleNext schedules the most critical available statement whose
// resources are free in the current cycle.
func (s *Scheduler) TryScheduleNext() bool {
	for _, id := range s.byCriticality(s.available) {
		if s.resources.Available(s.cycle, s.graph.Statement(id)) {
			s.schedule(id)
			return true
		}
	}
	return false
}

// Advance moves the current cycle by the given number of cycles in the
// scheduling direction.
func (s *Scheduler) Advance(by int) {
	s.cycle += s.direction * by
	s.debug("advanced", "cycle", s.cycle)
	s.promote()
}

// IsDone reports whether every statement has been scheduled.
func (s *Scheduler) IsDone() bool {
	if len(s.available) > 0 || len(s.pending) > 0 {
		return false
	}
	if s.numScheduled < s.graph.Len() {
		// Waiting statements left.
		return false
	}
	errs.Assert(s.numScheduled == s.graph.Len(), "scheduled count matches the graph")
	return true
}

// Run schedules until done. It fails with ErrDeadlock when it had to advance
// more than maxAdvance consecutive cycles without scheduling anything; zero
// disables the limit.
func (s *Scheduler) Run(maxAdvance int) error {
	advanced := 0
	for !s.IsDone() {
		if s.TryScheduleNext() {
			advanced = 0
			continue
		}
		if len(s.available) == 0 && len(s.pending) == 0 {
			errs.ICE("scheduler has waiting statements but nothing available or pending")
		}
		s.Advance(1)
		advanced++
		if maxAdvance > 0 && advanced > maxAdvance {
			return s.deadlock(maxAdvance)
		}
	}
	return nil
}

func (s *Scheduler) deadlock(maxAdvance int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "no statement could be scheduled for %d consecutive cycles, now at cycle %d\n", maxAdvance, s.cycle)
	b.WriteString("available statements:\n")
	for _, id := range s.byCriticality(s.available) {
		fmt.Fprintf(&b, "    %s\n", ir.Describe(s.graph.Statement(id)))
	}
	b.WriteString("resource state:\n")
	s.resources.Dump(&b, "    ")
	return fmt.Errorf("%w: %w: %s", errs.ErrUser, ErrDeadlock, strings.TrimRight(b.String(), "\n"))
}

// ConvertCycles writes the schedule to the statements, shifted so that the
// earliest of source and sink is cycle 0, and sorts the block by cycle.
func (s *Scheduler) ConvertCycles() {
	errs.Assert(s.IsDone(), "cycles are converted after scheduling finished")
	offset := min(s.cycles[s.graph.Source()], s.cycles[s.graph.Sink()])
	for id, n := range s.graph.Nodes() {
		n.Statement.SetCycle(s.cycles[id] - offset)
	}
	block := s.graph.Block()
	slices.SortStableFunc(block.Statements, func(a, b ir.Statement) int {
		return cmp.Compare(a.Cycle(), b.Cycle())
	})
}

// Clone returns an independent copy of the scheduler sharing the graph.
func (s *Scheduler) Clone() *Scheduler {
	c := *s
	c.resources = s.resources.Clone()
	c.states = slices.Clone(s.states)
	c.cycles = slices.Clone(s.cycles)
	c.available = slices.Clone(s.available)
	c.pending = make([]pendingCycle, len(s.pending))
	for i, p := range s.pending {
		c.pending[i] = pendingCycle{cycle: p.cycle, nodes: slices.Clone(p.nodes)}
	}
	return &c
}
