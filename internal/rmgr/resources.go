package rmgr

import (
	"fmt"
	"io"
	"math"
	"slices"
)

// qubitResource lets each qubit be used by one instruction at a time.
// Forward it tracks the cycle each qubit becomes free; backward, the cycle
// from which it is occupied.
type qubitResource struct {
	base
	state []int
}

func newQubitResource(numQubits int, dir Direction) *qubitResource {
	r := &qubitResource{base: newBase("qubits", "qubit", dir), state: make([]int, numQubits)}
	init := math.MinInt
	if dir == Backward {
		init = math.MaxInt
	}
	for i := range r.state {
		r.state[i] = init
	}
	return r
}

func (r *qubitResource) use(cycle int, g *gate, commit bool) bool {
	return r.check(cycle, commit, func() bool {
		for _, q := range g.qubits {
			if q < 0 || q >= len(r.state) {
				continue
			}
			if r.direction == Forward && cycle < r.state[q] {
				return false
			}
			if r.direction == Backward && cycle+g.duration > r.state[q] {
				return false
			}
		}
		if commit {
			for _, q := range g.qubits {
				if q < 0 || q >= len(r.state) {
					continue
				}
				if r.direction == Forward {
					r.state[q] = cycle + g.duration
				} else {
					r.state[q] = cycle
				}
			}
		}
		return true
	})
}

func (r *qubitResource) dumpState(w io.Writer, linePrefix string) {
	label := "busy until"
	if r.direction == Backward {
		label = "busy from"
	}
	for q, c := range r.state {
		switch c {
		case math.MinInt, math.MaxInt:
			fmt.Fprintf(w, "%squbit %d: free\n", linePrefix, q)
		default:
			fmt.Fprintf(w, "%squbit %d: %s cycle %d\n", linePrefix, q, label, c)
		}
	}
}

func (r *qubitResource) clone() resource {
	c := *r
	c.state = slices.Clone(r.state)
	return &c
}

// instrumentResource models a control instrument driving a group of qubits
// for one instruction kind. Instructions of that kind on the group may only
// overlap when they perform the same operation and start in the same cycle.
type instrumentResource struct {
	base
	kind   string
	qubits map[int]bool

	operation string
	start     int
	// bound is the end of the current occupation forward, or its start
	// backward.
	bound int
	busy  bool
}

func newInstrumentResource(spec Instrument, dir Direction) *instrumentResource {
	r := &instrumentResource{
		base:   newBase(spec.Name, "instrument", dir),
		kind:   spec.Kind,
		qubits: make(map[int]bool, len(spec.Qubits)),
	}
	for _, q := range spec.Qubits {
		r.qubits[q] = true
	}
	return r
}

func (r *instrumentResource) applies(g *gate) bool {
	if g.kind == "" || g.kind != r.kind {
		return false
	}
	for _, q := range g.qubits {
		if r.qubits[q] {
			return true
		}
	}
	return false
}

func (r *instrumentResource) conflicts(cycle int, g *gate) bool {
	if !r.busy {
		return false
	}
	var overlaps bool
	if r.direction == Forward {
		overlaps = cycle < r.bound
	} else {
		overlaps = cycle+g.duration > r.bound
	}
	if !overlaps {
		return false
	}
	return g.name != r.operation || cycle != r.start
}

func (r *instrumentResource) use(cycle int, g *gate, commit bool) bool {
	return r.check(cycle, commit, func() bool {
		if !r.applies(g) {
			return true
		}
		if r.conflicts(cycle, g) {
			return false
		}
		if !commit {
			return true
		}
		shared := r.busy && g.name == r.operation && cycle == r.start
		switch {
		case !shared && r.direction == Forward:
			r.bound = cycle + g.duration
		case !shared:
			r.bound = cycle
		case r.direction == Forward:
			r.bound = max(r.bound, cycle+g.duration)
		}
		r.operation = g.name
		r.start = cycle
		r.busy = true
		return true
	})
}

func (r *instrumentResource) dumpState(w io.Writer, linePrefix string) {
	qs := make([]int, 0, len(r.qubits))
	for q := range r.qubits {
		qs = append(qs, q)
	}
	slices.Sort(qs)
	fmt.Fprintf(w, "%skind %s, qubits %v\n", linePrefix, r.kind, qs)
	if !r.busy {
		fmt.Fprintf(w, "%sidle\n", linePrefix)
		return
	}
	label := "until"
	if r.direction == Backward {
		label = "from"
	}
	fmt.Fprintf(w, "%sbusy with %s started in cycle %d, %s cycle %d\n", linePrefix, r.operation, r.start, label, r.bound)
}

func (r *instrumentResource) clone() resource {
	c := *r
	return &c
}
