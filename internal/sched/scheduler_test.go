package sched_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/qsched/internal/ddg"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/ir/irtest"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
	"github.com/gyaneshwarpardhi/qsched/internal/sched"
)

func cyclesOf(sb *ir.SubBlock) map[string]int {
	out := make(map[string]int)
	for _, s := range sb.Statements {
		out[ir.Describe(s)] = s.Cycle()
	}
	return out
}

func order(sb *ir.SubBlock) []string {
	var out []string
	for _, s := range sb.Statements {
		out = append(out, ir.Describe(s))
	}
	return out
}

func opts(target sched.Target, h sched.HeuristicKind) sched.Options {
	o := sched.DefaultOptions()
	o.Target = target
	o.Heuristic = h
	return o
}

func TestScheduleBlock_WriteThenMeasure(t *testing.T) {
	for _, target := range []sched.Target{sched.ASAP, sched.ALAP} {
		t.Run(string(target), func(t *testing.T) {
			p := irtest.NewPlatform(1)
			x := irtest.Gate(p, "x", 0)
			m := irtest.Gate(p, "measure", 0)
			block := irtest.Block(x, m)

			stats, err := sched.ScheduleBlock(p, block, nil, opts(target, sched.HeuristicTrivial), "main")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, m.Cycle(), x.Cycle()+1)
			assert.Equal(t, 0, x.Cycle())
			assert.Equal(t, 6, stats.Cycles)
		})
	}
}

func TestScheduleBlock_ALAPDelaysIndependentGate(t *testing.T) {
	p := irtest.NewPlatform(2)
	block := irtest.Block(
		irtest.Gate(p, "x", 0),
		irtest.Gate(p, "measure", 0),
		irtest.Gate(p, "x", 1),
	)
	_, err := sched.ScheduleBlock(p, block, nil, opts(sched.ALAP, sched.HeuristicTrivial), "main")
	require.NoError(t, err)

	want := map[string]int{"x q[0]": 0, "measure q[0]": 1, "x q[1]": 5}
	if diff := cmp.Diff(want, cyclesOf(block)); diff != "" {
		t.Errorf("cycles mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"x q[0]", "measure q[0]", "x q[1]"}, order(block))
}

func sharedInstrument(t *testing.T, p *ir.Platform, qubits ...int) rmgr.Oracle {
	t.Helper()
	m, err := rmgr.NewManager(p, rmgr.Config{Instruments: []rmgr.Instrument{
		{Name: "awg0", Kind: "mw", Qubits: qubits},
	}})
	require.NoError(t, err)
	return m
}

func TestScheduleBlock_TrivialKeepsProgramOrder(t *testing.T) {
	p := irtest.NewPlatform(3)

	t.Run("unconstrained", func(t *testing.T) {
		block := irtest.Block(irtest.Gate(p, "h", 2), irtest.Gate(p, "x", 0), irtest.Gate(p, "y", 1))
		_, err := sched.ScheduleBlock(p, block, nil, opts(sched.ASAP, sched.HeuristicTrivial), "main")
		require.NoError(t, err)
		assert.Equal(t, []string{"h q[2]", "x q[0]", "y q[1]"}, order(block))
		for _, s := range block.Statements {
			assert.Equal(t, 0, s.Cycle())
		}
	})

	t.Run("shared instrument", func(t *testing.T) {
		block := irtest.Block(irtest.Gate(p, "h", 2), irtest.Gate(p, "x", 0), irtest.Gate(p, "y", 1))
		_, err := sched.ScheduleBlock(p, block, sharedInstrument(t, p, 0, 1, 2), opts(sched.ASAP, sched.HeuristicTrivial), "main")
		require.NoError(t, err)
		want := map[string]int{"h q[2]": 0, "x q[0]": 1, "y q[1]": 2}
		if diff := cmp.Diff(want, cyclesOf(block)); diff != "" {
			t.Errorf("cycles mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("same operation shares the instrument", func(t *testing.T) {
		block := irtest.Block(irtest.Gate(p, "x", 0), irtest.Gate(p, "x", 1), irtest.Gate(p, "y", 2))
		_, err := sched.ScheduleBlock(p, block, sharedInstrument(t, p, 0, 1, 2), opts(sched.ASAP, sched.HeuristicTrivial), "main")
		require.NoError(t, err)
		want := map[string]int{"x q[0]": 0, "x q[1]": 0, "y q[2]": 1}
		if diff := cmp.Diff(want, cyclesOf(block)); diff != "" {
			t.Errorf("cycles mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestScheduleBlock_CriticalityShortensSchedule(t *testing.T) {
	tests := []struct {
		heuristic sched.HeuristicKind
		want      map[string]int
		cycles    int
	}{
		{
			heuristic: sched.HeuristicTrivial,
			want:      map[string]int{"x q[1]": 0, "h q[0]": 1, "measure q[0]": 2},
			cycles:    7,
		},
		{
			heuristic: sched.HeuristicCriticalPath,
			want:      map[string]int{"h q[0]": 0, "x q[1]": 1, "measure q[0]": 1},
			cycles:    6,
		},
		{
			heuristic: sched.HeuristicDeepCriticality,
			want:      map[string]int{"h q[0]": 0, "x q[1]": 1, "measure q[0]": 1},
			cycles:    6,
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.heuristic), func(t *testing.T) {
			p := irtest.NewPlatform(2)
			block := irtest.Block(irtest.Gate(p, "x", 1), irtest.Gate(p, "h", 0), irtest.Gate(p, "measure", 0))
			stats, err := sched.ScheduleBlock(p, block, sharedInstrument(t, p, 0, 1), opts(sched.ASAP, tt.heuristic), "main")
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, cyclesOf(block)); diff != "" {
				t.Errorf("cycles mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.cycles, stats.Cycles)
		})
	}
}

func TestDeepCriticality_Chain(t *testing.T) {
	p := irtest.NewPlatform(2)
	block := irtest.Block(irtest.Gate(p, "x", 1), irtest.Gate(p, "h", 0), irtest.Gate(p, "measure", 0))
	g := ddg.Build(p, block, ddg.Options{})

	g.Reverse()
	pre := sched.New(g, nil, nil, nil)
	require.NoError(t, pre.Run(0))
	cycles := pre.Cycles()
	g.Reverse()

	h := sched.NewDeepCriticality(g, cycles)
	xID, _ := g.NodeOf(block.Statements[0])
	hID, _ := g.NodeOf(block.Statements[1])
	assert.True(t, h.Less(xID, hID))
	assert.False(t, h.Less(hID, xID))
	assert.False(t, h.Less(hID, hID))
	assert.Equal(t, "n2:6 -> n3:5 -> n4:0", h.Chain(hID))
}

// rejectingOracle never lets statements with the given instruction name
// through and records the cycles it was asked about.
type rejectingOracle struct {
	name    string
	queries *[]int
}

func (o rejectingOracle) Build(rmgr.Direction) rmgr.State { return o }

func (o rejectingOracle) Available(cycle int, s ir.Statement) bool {
	ci, ok := s.(*ir.CustomInstruction)
	if !ok || ci.Type.Name != o.name {
		return true
	}
	*o.queries = append(*o.queries, cycle)
	return false
}

func (o rejectingOracle) Reserve(cycle int, s ir.Statement) error {
	if !o.Available(cycle, s) {
		return errors.New("rejected")
	}
	return nil
}

func (o rejectingOracle) Dump(w io.Writer, linePrefix string) {
	io.WriteString(w, linePrefix+"rejecting "+o.name+"\n")
}

func (o rejectingOracle) Clone() rmgr.State { return o }

func TestRun_Deadlock(t *testing.T) {
	p := irtest.NewPlatform(1)
	block := irtest.Block(irtest.Gate(p, "x", 0))
	var queries []int
	o := opts(sched.ASAP, sched.HeuristicTrivial)
	o.MaxResourceBlockCycles = 5

	_, err := sched.ScheduleBlock(p, block, rejectingOracle{name: "x", queries: &queries}, o, "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sched.ErrDeadlock))
	assert.True(t, errs.IsUser(err))
	assert.False(t, errs.IsInternal(err))

	// One attempt in the starting cycle, then one after each of the five
	// allowed advances.
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, queries)
	assert.Contains(t, err.Error(), "no statement could be scheduled for 5 consecutive cycles, now at cycle 6")
	assert.Contains(t, err.Error(), "available statements:\n    x q[0]\n")
	assert.Contains(t, err.Error(), "resource state:\n    rejecting x")
}

func TestScheduler_Introspection(t *testing.T) {
	p := irtest.NewPlatform(2)
	x0 := irtest.Gate(p, "x", 0)
	y0 := irtest.Gate(p, "y", 0)
	x1 := irtest.Gate(p, "x", 1)
	block := irtest.Block(x0, y0, x1)
	g := ddg.Build(p, block, ddg.Options{})

	s := sched.New(g, nil, nil, nil)
	assert.Equal(t, 0, s.Cycle())
	assert.Equal(t, 1, s.Direction())
	assert.Equal(t, []ir.Statement{x0, x1}, s.Available())

	assert.False(t, s.TrySchedule(y0), "y waits for x on the same qubit")
	require.True(t, s.TrySchedule(x1))

	c := s.Clone()
	require.True(t, c.TryScheduleNext())
	assert.Equal(t, []ir.Statement{x0}, s.Available(), "clone does not affect the original")

	require.True(t, s.TryScheduleNext())
	// y0 only becomes available one cycle later; with nothing else left
	// the scheduler jumps there.
	assert.Equal(t, 1, s.Cycle())
	assert.Equal(t, []ir.Statement{y0}, s.Available())
	require.NoError(t, s.Run(0))
	assert.True(t, s.IsDone())

	cy, ok := s.CycleOf(g.Sink())
	require.True(t, ok)
	assert.Equal(t, 2, cy)
	s.ConvertCycles()
	assert.Equal(t, []ir.Statement{x0, x1, y0}, block.Statements)
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestScheduleBlock_WriteDot(t *testing.T) {
	p := irtest.NewPlatform(1)
	files := map[string]*bytes.Buffer{}
	o := opts(sched.ALAP, sched.HeuristicDeepCriticality)
	o.WriteDotGraphs = true
	o.DotPrefix = "out"
	o.CreateFile = func(name string) (io.WriteCloser, error) {
		files[name] = &bytes.Buffer{}
		return nopCloser{files[name]}, nil
	}

	block := irtest.Block(irtest.Gate(p, "x", 0), irtest.Gate(p, "measure", 0))
	_, err := sched.ScheduleBlock(p, block, nil, o, "main")
	require.NoError(t, err)

	require.Contains(t, files, "out_main.dot")
	require.Contains(t, files, "out_main.key")
	assert.Contains(t, files["out_main.dot"].String(), "measure q[0]<br/>cycle 1, remaining 5")
	assert.Contains(t, files["out_main.key"].String(), "weight 1\n  q[0] write->write\n")
}

func TestScheduleProgram_NamesAndRecursion(t *testing.T) {
	p := irtest.NewPlatform(2)
	ie := &ir.IfElse{
		Branches: []*ir.IfElseBranch{{
			Condition: irtest.Bit(p, 0),
			Body:      irtest.Block(irtest.Gate(p, "x", 1), irtest.Gate(p, "y", 1)),
		}},
		Otherwise: irtest.Block(irtest.Gate(p, "h", 1)),
	}
	loop := &ir.RepeatUntilLoop{Body: irtest.Block(irtest.Gate(p, "measure", 0)), Condition: irtest.Bit(p, 0)}
	a := &ir.Block{Name: "main", SubBlock: *irtest.Block(irtest.Gate(p, "measure", 0), ie)}
	b := &ir.Block{Name: "main", SubBlock: *irtest.Block(loop)}
	prog := &ir.Program{Name: "test", Platform: p, Blocks: []*ir.Block{a, b}, EntryPoint: a}

	stats, err := sched.ScheduleProgram(prog, nil, opts(sched.ASAP, sched.HeuristicCriticalPath))
	require.NoError(t, err)

	var names []string
	for _, s := range stats {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"main", "main_if", "main_else", "main_1", "main_1_loop"}, names)
	assert.Equal(t, 2, stats[1].Cycles)
	assert.Equal(t, 5, ie.Cycle(), "the if statement waits for the measurement result")
}
