package sched

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/ddg"
)

// Heuristic orders available statements by criticality.
type Heuristic interface {
	// Less reports whether a is strictly less critical than b.
	Less(a, b ddg.NodeID) bool
}

// Trivial considers all statements equally critical, so program order
// decides.
type Trivial struct{}

func (Trivial) Less(a, b ddg.NodeID) bool { return false }

// CriticalPath ranks a statement by the absolute cycle it got in a schedule
// of the same graph run in the opposite direction: the further it was from
// that schedule's start, the longer the path behind it.
type CriticalPath struct {
	cycles []int
}

// NewCriticalPath uses cycles, indexed by node ID, from a pre-schedule.
func NewCriticalPath(cycles []int) *CriticalPath {
	return &CriticalPath{cycles: cycles}
}

func (h *CriticalPath) length(id ddg.NodeID) int { return abs(h.cycles[id]) }

func (h *CriticalPath) Less(a, b ddg.NodeID) bool {
	return h.length(a) < h.length(b)
}

const noDependent ddg.NodeID = -1

// DeepCriticality breaks critical path ties by comparing the most critical
// dependents of both statements, recursively.
type DeepCriticality struct {
	CriticalPath
	graph     *ddg.Graph
	dependent []ddg.NodeID
	annotated []bool
}

// NewDeepCriticality uses pre-schedule cycles like CriticalPath. Dependents
// are the successors of each node in g, so g must be in the direction of
// the schedule the heuristic is used for.
func NewDeepCriticality(g *ddg.Graph, cycles []int) *DeepCriticality {
	h := &DeepCriticality{
		CriticalPath: CriticalPath{cycles: cycles},
		graph:        g,
		dependent:    make([]ddg.NodeID, g.Len()),
		annotated:    make([]bool, g.Len()),
	}
	for i := range h.dependent {
		h.dependent[i] = noDependent
	}
	return h
}

// mostCriticalDependent annotates id on first use.
func (h *DeepCriticality) mostCriticalDependent(id ddg.NodeID) ddg.NodeID {
	if h.annotated[id] {
		return h.dependent[id]
	}
	best := noDependent
	for _, e := range h.graph.Node(id).Successors() {
		if best == noDependent || h.Less(best, e.To) {
			best = e.To
		}
	}
	h.dependent[id] = best
	h.annotated[id] = true
	return best
}

func (h *DeepCriticality) Less(a, b ddg.NodeID) bool {
	for {
		la, lb := h.length(a), h.length(b)
		if la != lb {
			return la < lb
		}
		da, db := h.mostCriticalDependent(a), h.mostCriticalDependent(b)
		switch {
		case da == noDependent:
			return db != noDependent
		case db == noDependent:
			return false
		}
		a, b = da, db
	}
}

// Chain describes the criticality of id as its path length followed by
// those of its chain of most critical dependents.
func (h *DeepCriticality) Chain(id ddg.NodeID) string {
	var parts []string
	for id != noDependent {
		parts = append(parts, fmt.Sprintf("n%d:%d", id, h.length(id)))
		id = h.mostCriticalDependent(id)
	}
	return strings.Join(parts, " -> ")
}
