package sched_test

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/gyaneshwarpardhi/qsched/internal/ddg"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/ir/irtest"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
	"github.com/gyaneshwarpardhi/qsched/internal/sched"
)

const propQubits = 3

func randomBlock(p *ir.Platform, codes []int) *ir.SubBlock {
	sb := &ir.SubBlock{}
	for _, c := range codes {
		a := (c / 8) % propQubits
		b := (a + 1 + (c/32)%(propQubits-1)) % propQubits
		var s ir.Statement
		switch c % 8 {
		case 0:
			s = irtest.Gate(p, "x", a)
		case 1:
			s = irtest.Gate(p, "rz", a)
		case 2:
			s = irtest.Gate(p, "cz", a, b)
		case 3:
			s = irtest.Gate(p, "cnot", a, b)
		case 4:
			s = irtest.Gate(p, "measure", a)
		case 5:
			s = &ir.WaitInstruction{Duration: 2, Objects: []*ir.Reference{irtest.Qubit(p, a)}}
		case 6:
			g := irtest.Gate(p, "y", a)
			g.Condition = irtest.Bit(p, b)
			s = g
		default:
			s = irtest.Gate(p, "h", a)
		}
		sb.Add(s)
	}
	return sb
}

var (
	targets    = []sched.Target{sched.ASAP, sched.ALAP}
	heuristics = []sched.HeuristicKind{sched.HeuristicTrivial, sched.HeuristicCriticalPath, sched.HeuristicDeepCriticality}
)

func TestScheduleBlock_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	codes := gen.SliceOf(gen.IntRange(0, 1<<8))

	properties.Property("schedule respects every dependency and qubit", prop.ForAll(
		func(cs []int, target, heuristic int, commute bool) bool {
			p := irtest.NewPlatform(propQubits)
			block := randomBlock(p, cs)
			original := slices.Clone(block.Statements)

			m, err := rmgr.NewManager(p, rmgr.Config{
				Qubits:      true,
				Instruments: []rmgr.Instrument{{Name: "awg", Kind: "mw", Qubits: []int{0, 1, 2}}},
			})
			if err != nil {
				return false
			}
			o := sched.DefaultOptions()
			o.Target = targets[target]
			o.Heuristic = heuristics[heuristic]
			o.CommuteMultiQubit = commute
			o.CommuteSingleQubit = commute
			if _, err := sched.ScheduleBlock(p, block, m, o, "main"); err != nil {
				return false
			}

			// The block is sorted by cycle and holds the same statements.
			for i := 1; i < len(block.Statements); i++ {
				if block.Statements[i].Cycle() < block.Statements[i-1].Cycle() {
					return false
				}
			}
			if len(block.Statements) != len(original) {
				return false
			}

			// Every edge of the dependency graph over the original order
			// is honoured.
			ref := &ir.SubBlock{Statements: original}
			g := ddg.Build(p, ref, ddg.Options{CommuteMultiQubit: commute, CommuteSingleQubit: commute})
			for _, n := range g.Nodes() {
				if n.Statement.Kind() == ir.KindSentinel {
					continue
				}
				for _, e := range n.Successors() {
					to := g.Statement(e.To)
					if to.Kind() == ir.KindSentinel {
						continue
					}
					if to.Cycle()-n.Statement.Cycle() < e.Weight {
						return false
					}
				}
			}

			// No two statements overlap on a qubit.
			busy := map[int][][2]int{}
			for _, s := range original {
				start, end := s.Cycle(), s.Cycle()+ir.Duration(s)
				for _, q := range ir.QubitOperands(s) {
					for _, iv := range busy[q] {
						if start < iv[1] && iv[0] < end {
							return false
						}
					}
					busy[q] = append(busy[q], [2]int{start, end})
				}
			}
			return true
		},
		codes, gen.IntRange(0, 1), gen.IntRange(0, 2), gen.Bool(),
	))

	properties.Property("unconstrained ASAP starts every statement as early as its edges allow", prop.ForAll(
		func(cs []int) bool {
			p := irtest.NewPlatform(propQubits)
			block := randomBlock(p, cs)
			original := slices.Clone(block.Statements)
			o := sched.DefaultOptions()
			o.Target = sched.ASAP
			o.Heuristic = sched.HeuristicTrivial
			if _, err := sched.ScheduleBlock(p, block, nil, o, "main"); err != nil {
				return false
			}
			g := ddg.Build(p, &ir.SubBlock{Statements: original}, ddg.Options{})
			for _, n := range g.Nodes() {
				if n.Statement.Kind() == ir.KindSentinel {
					continue
				}
				earliest := 0
				for _, e := range n.Predecessors() {
					from := g.Statement(e.From)
					if from.Kind() == ir.KindSentinel {
						continue
					}
					earliest = max(earliest, from.Cycle()+e.Weight)
				}
				if n.Statement.Cycle() != earliest {
					return false
				}
			}
			return true
		},
		codes,
	))

	properties.TestingRun(t)
}
