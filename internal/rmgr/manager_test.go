package rmgr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/ir/irtest"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
)

func TestNewManager_Validation(t *testing.T) {
	p := irtest.NewPlatform(2)
	_, err := rmgr.NewManager(p, rmgr.Config{Instruments: []rmgr.Instrument{
		{Name: "awg", Kind: "mw", Qubits: []int{0, 5}},
		{Name: "awg", Kind: "", Qubits: []int{1}},
	}})
	require.Error(t, err)
	assert.True(t, errs.IsUser(err))
	assert.Contains(t, err.Error(), `instrument "awg" refers to qubit 5, platform has 2`)
	assert.Contains(t, err.Error(), `duplicate instrument "awg"`)
	assert.Contains(t, err.Error(), `instrument "awg" has no instruction kind`)
}

func TestQubitResource_Forward(t *testing.T) {
	p := irtest.NewPlatform(2)
	m, err := rmgr.NewManager(p, rmgr.Config{Qubits: true})
	require.NoError(t, err)
	s := m.Build(rmgr.Forward)

	cz := irtest.Gate(p, "cz", 0, 1)
	require.True(t, s.Available(0, cz))
	require.NoError(t, s.Reserve(0, cz))

	x := irtest.Gate(p, "x", 0)
	assert.False(t, s.Available(1, x), "qubit 0 is busy until cycle 2")
	assert.True(t, s.Available(2, x))
	assert.False(t, s.Available(-1, x), "cycles before the last reservation are rejected")

	set := ir.MakeSetInstruction(irtest.Var(p, "i"), ir.MakeIntLit(1))
	assert.True(t, s.Available(0, set), "classical instructions use no qubits")
}

func TestQubitResource_Backward(t *testing.T) {
	p := irtest.NewPlatform(1)
	m, err := rmgr.NewManager(p, rmgr.Config{Qubits: true})
	require.NoError(t, err)
	s := m.Build(rmgr.Backward)

	meas := irtest.Gate(p, "measure", 0)
	require.NoError(t, s.Reserve(0, meas))

	x := irtest.Gate(p, "x", 0)
	assert.False(t, s.Available(0, x), "x would overlap the measurement")
	assert.True(t, s.Available(-1, x))
	assert.False(t, s.Available(1, x), "later cycles are out of order when going backward")
}

func TestInstrumentResource(t *testing.T) {
	p := irtest.NewPlatform(3)
	m, err := rmgr.NewManager(p, rmgr.Config{Instruments: []rmgr.Instrument{
		{Name: "awg0", Kind: "mw", Qubits: []int{0, 1}},
	}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		second *ir.CustomInstruction
		cycle  int
		want   bool
	}{
		{name: "same operation same cycle", second: irtest.Gate(p, "x", 1), cycle: 0, want: true},
		{name: "different operation", second: irtest.Gate(p, "y", 1), cycle: 0, want: false},
		{name: "other qubit group", second: irtest.Gate(p, "y", 2), cycle: 0, want: true},
		{name: "other kind", second: irtest.Gate(p, "measure", 1), cycle: 0, want: true},
		{name: "after the occupation", second: irtest.Gate(p, "y", 1), cycle: 1, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := m.Build(rmgr.Forward)
			require.NoError(t, s.Reserve(0, irtest.Gate(p, "x", 0)))
			assert.Equal(t, tt.want, s.Available(tt.cycle, tt.second))
		})
	}
}

func TestState_BrokenAfterFailedReserve(t *testing.T) {
	p := irtest.NewPlatform(1)
	m, err := rmgr.NewManager(p, rmgr.Config{Qubits: true})
	require.NoError(t, err)
	s := m.Build(rmgr.Forward)

	require.NoError(t, s.Reserve(0, irtest.Gate(p, "prepz", 0)))
	err = s.Reserve(1, irtest.Gate(p, "x", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reserve x q[0] for cycle 1 with resource qubits of type qubit")

	assert.Panics(t, func() { s.Available(5, irtest.Gate(p, "x", 0)) })
}

func TestState_Clone(t *testing.T) {
	p := irtest.NewPlatform(1)
	m, err := rmgr.NewManager(p, rmgr.Config{
		Qubits:      true,
		Instruments: []rmgr.Instrument{{Name: "awg0", Kind: "mw", Qubits: []int{0}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	s := m.Build(rmgr.Forward)
	require.NoError(t, s.Reserve(0, irtest.Gate(p, "x", 0)))
	c := s.Clone()
	require.NoError(t, c.Reserve(1, irtest.Gate(p, "prepz", 0)))

	assert.True(t, s.Available(1, irtest.Gate(p, "y", 0)), "original is unaffected by the clone")
	assert.False(t, c.Available(2, irtest.Gate(p, "y", 0)))

	var buf bytes.Buffer
	c.Dump(&buf, "  ")
	assert.Contains(t, buf.String(), "  Resource qubits of type qubit:\n")
	assert.Contains(t, buf.String(), "qubit 0: busy until cycle 4")
	assert.Contains(t, buf.String(), "  Resource awg0 of type instrument:\n")
}

func TestUnconstrained(t *testing.T) {
	p := irtest.NewPlatform(1)
	s := rmgr.Unconstrained.Build(rmgr.Backward)
	x := irtest.Gate(p, "x", 0)
	require.NoError(t, s.Reserve(0, x))
	assert.True(t, s.Available(0, x))
	assert.True(t, s.Clone().Available(10, x))
}
