// Package rmgr is the resource oracle consulted by the scheduler. A Manager
// describes the resources of a platform; Build creates a fresh State for one
// scheduling run, which answers whether a statement fits in a cycle and
// records reservations.
package rmgr

import (
	"fmt"
	"io"
	"math"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// Direction is the order in which cycles are reserved.
type Direction int

const (
	// Forward reservations never go back in time (ASAP).
	Forward Direction = iota
	// Backward reservations never go forward in time (ALAP).
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// DirectionOf maps a graph direction (+1 or -1) to a Direction.
func DirectionOf(dir int) Direction {
	if dir < 0 {
		return Backward
	}
	return Forward
}

// Oracle creates resource states.
type Oracle interface {
	Build(dir Direction) State
}

// State tracks reservations during one scheduling run. Cycles must be
// presented in the run's direction; a state whose reservation failed is
// broken and must not be used again.
type State interface {
	Available(cycle int, s ir.Statement) bool
	Reserve(cycle int, s ir.Statement) error
	Dump(w io.Writer, linePrefix string)
	Clone() State
}

// gate is what resources see of a statement.
type gate struct {
	stmt     ir.Statement
	name     string
	kind     string
	duration int
	qubits   []int
}

func gateOf(s ir.Statement) *gate {
	g := &gate{stmt: s, duration: ir.Duration(s), qubits: ir.QubitOperands(s)}
	switch st := s.(type) {
	case *ir.CustomInstruction:
		g.name = st.Type.Name
		g.kind = st.Type.Kind
	case *ir.SetInstruction:
		g.name = "set"
	case *ir.GotoInstruction:
		g.name = "goto"
	case *ir.WaitInstruction:
		g.name = "wait"
	case *ir.BreakStatement:
		g.name = "break"
	case *ir.ContinueStatement:
		g.name = "continue"
	}
	return g
}

// resource is one scheduling resource inside a state.
type resource interface {
	Name() string
	Type() string
	use(cycle int, g *gate, commit bool) bool
	dumpState(w io.Writer, linePrefix string)
	clone() resource
}

// base implements the ordering check shared by all resources.
type base struct {
	name      string
	typ       string
	direction Direction
	prevCycle int
}

func newBase(name, typ string, dir Direction) base {
	b := base{name: name, typ: typ, direction: dir, prevCycle: math.MinInt}
	if dir == Backward {
		b.prevCycle = math.MaxInt
	}
	return b
}

func (b *base) Name() string { return b.name }
func (b *base) Type() string { return b.typ }

func (b *base) outOfOrder(cycle int) bool {
	if b.direction == Backward {
		return cycle > b.prevCycle
	}
	return cycle < b.prevCycle
}

// check runs fn unless the cycle is out of order, and advances the previous
// cycle on a successful commit.
func (b *base) check(cycle int, commit bool, fn func() bool) bool {
	if b.outOfOrder(cycle) {
		return false
	}
	if !fn() {
		return false
	}
	if commit {
		b.prevCycle = cycle
	}
	return true
}

type state struct {
	resources []resource
	broken    bool
}

func (s *state) ensureUsable() {
	if s.broken {
		errs.ICE("usage of resource state that was left in an undefined state")
	}
}

func (s *state) Available(cycle int, st ir.Statement) bool {
	s.ensureUsable()
	g := gateOf(st)
	for _, r := range s.resources {
		if !r.use(cycle, g, false) {
			return false
		}
	}
	return true
}

func (s *state) Reserve(cycle int, st ir.Statement) error {
	s.ensureUsable()
	g := gateOf(st)
	for _, r := range s.resources {
		if !r.use(cycle, g, true) {
			s.broken = true
			return fmt.Errorf("failed to reserve %s for cycle %d with resource %s of type %s",
				ir.Describe(st), cycle, r.Name(), r.Type())
		}
	}
	return nil
}

func (s *state) Dump(w io.Writer, linePrefix string) {
	for _, r := range s.resources {
		fmt.Fprintf(w, "%sResource %s of type %s:\n", linePrefix, r.Name(), r.Type())
		r.dumpState(w, linePrefix+"    ")
		fmt.Fprintln(w)
	}
}

func (s *state) Clone() State {
	c := &state{resources: make([]resource, len(s.resources)), broken: s.broken}
	for i, r := range s.resources {
		c.resources[i] = r.clone()
	}
	return c
}

// unconstrained is a state without resources.
type unconstrained struct{}

// Unconstrained is an oracle whose states accept everything.
var Unconstrained Oracle = unconstrained{}

func (unconstrained) Build(Direction) State { return unconstrained{} }
func (unconstrained) Available(int, ir.Statement) bool { return true }
func (unconstrained) Reserve(int, ir.Statement) error { return nil }
func (unconstrained) Dump(w io.Writer, linePrefix string) { fmt.Fprintf(w, "%s<no resources>\n", linePrefix) }
func (unconstrained) Clone() State { return unconstrained{} }
