package pass_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/dec"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/frontend"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
	"github.com/gyaneshwarpardhi/qsched/internal/pass/schedule"
	"github.com/gyaneshwarpardhi/qsched/internal/pass/structure"
)

const platformYAML = `
version: "1"
name: three-qubit
qubits: 3
instructions:
  - {name: x, duration: 20, operands: ["write qubit"], kind: mw}
  - {name: measure, duration: 100, operands: ["measure qubit"], kind: readout}
resources:
  qubits: true
  instruments:
    - {name: awg0, kind: mw, qubits: [0, 1, 2]}
`

func newRegistry() *pass.Registry {
	reg := pass.NewRegistry()
	reg.Register(structure.New())
	reg.Register(schedule.New())
	return reg
}

func setup(t *testing.T, program string) (*frontend.Platform, *ir.Program) {
	t.Helper()
	cfg, err := config.ParsePlatform([]byte(platformYAML))
	require.NoError(t, err)
	plat, err := frontend.NewPlatform(cfg)
	require.NoError(t, err)
	def, err := config.ParseProgram([]byte(program))
	require.NoError(t, err)
	prog, err := frontend.Build(plat, def)
	require.NoError(t, err)
	return plat, prog
}

func TestRegistry(t *testing.T) {
	reg := newRegistry()
	assert.Equal(t, []string{"dec.structure", "sch.list_schedule"}, reg.Types())
	assert.True(t, reg.Has("dec.structure"))
	assert.False(t, reg.Has("opt.magic"))

	_, err := reg.Get("opt.magic")
	assert.EqualError(t, err, `no pass registered for type "opt.magic"`)
	assert.Panics(t, func() { reg.Register(schedule.New()) })
}

func TestNewPipeline_Errors(t *testing.T) {
	_, err := pass.NewPipeline(newRegistry(), []config.PassDef{
		{Type: "opt.magic"},
		{Type: "dec.structure", Params: map[string]any{"depth": 2}},
		{Type: "sch.list_schedule", Name: "sched", Params: map[string]any{"scheduler_target": "sideways"}},
		{Type: "sch.list_schedule", Params: map[string]any{"max_resource_block_cycles": -1}},
	})
	require.Error(t, err)
	assert.True(t, errs.IsUser(err))
	for _, want := range []string{
		`passes[0]: no pass registered for type "opt.magic"`,
		"pass dec.structure: dec.structure takes no parameters",
		`pass sched: user error: parameter scheduler_target: unknown scheduler target "sideways"`,
		"parameter max_resource_block_cycles: must not be negative, got -1",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

const ifProgram = `
name: feedback
blocks:
  - name: main
    statements:
      - x q[0]
      - measure q[0]
      - if: bit(q[0])
        then:
          - x q[1]
`

func TestPipeline_Run(t *testing.T) {
	plat, prog := setup(t, ifProgram)
	pl, err := pass.NewPipeline(newRegistry(), config.DefaultPasses)
	require.NoError(t, err)
	assert.Equal(t, []string{"decompose", "schedule"}, pl.Names())

	out, results, err := pl.Run(context.Background(), prog, &pass.Context{
		Resources: plat.Resources,
		Scheduler: plat.Config.Scheduler,
	})
	require.NoError(t, err)
	require.NoError(t, dec.CheckBasicBlockForm(out))

	require.Len(t, results, 2)
	assert.Equal(t, "decompose", results[0].Name)
	assert.Equal(t, "dec.structure", results[0].Type)
	assert.Equal(t, "schedule", results[1].Name)
	assert.Len(t, results[1].Blocks, len(out.Blocks))
	assert.Contains(t, results[1].Message, "alap with deep_criticality heuristic")

	first := out.EntryPoint.Statements
	require.Len(t, first, 3)
	x, m, g := first[0], first[1], first[2]
	assert.Equal(t, "x q[0]", ir.Describe(x))
	assert.Equal(t, 0, x.Cycle())
	assert.Equal(t, 1, m.Cycle())
	assert.Equal(t, ir.KindGotoInstruction, g.Kind())
	assert.GreaterOrEqual(t, g.Cycle(), m.Cycle()+5, "the branch waits for the measurement result")
}

func TestPipeline_UserError(t *testing.T) {
	plat, prog := setup(t, "name: p\nblocks:\n  - name: main\n    statements: [break]\n")
	pl, err := pass.NewPipeline(newRegistry(), config.DefaultPasses)
	require.NoError(t, err)

	_, results, err := pl.Run(context.Background(), prog, &pass.Context{Resources: plat.Resources})
	require.Error(t, err)
	assert.Empty(t, results)
	assert.True(t, errs.IsUser(err))
	assert.True(t, errors.Is(err, dec.ErrLoopControl))
	assert.Contains(t, err.Error(), "pass decompose: ")
}

type panicPass struct{ value any }

func (p panicPass) Type() string { return "test.panic" }

func (p panicPass) Validate(map[string]any) error { return nil }

func (p panicPass) Run(context.Context, *ir.Program, map[string]any, *pass.Context) (*ir.Program, *pass.Result, error) {
	if err, ok := p.value.(error); ok && errs.IsInternal(err) {
		errs.ICE("statement graph has a cycle")
	}
	panic(p.value)
}

func TestPipeline_RecoversInternalErrors(t *testing.T) {
	_, prog := setup(t, ifProgram)

	reg := pass.NewRegistry()
	reg.Register(panicPass{value: errs.ErrInternal})
	pl, err := pass.NewPipeline(reg, []config.PassDef{{Type: "test.panic", Name: "boom"}})
	require.NoError(t, err)

	_, _, err = pl.Run(context.Background(), prog, &pass.Context{})
	require.Error(t, err)
	assert.True(t, errs.IsInternal(err))
	assert.Equal(t, "pass boom: internal compiler error: statement graph has a cycle", err.Error())

	reg = pass.NewRegistry()
	reg.Register(panicPass{value: "not an error"})
	pl, err = pass.NewPipeline(reg, []config.PassDef{{Type: "test.panic"}})
	require.NoError(t, err)
	assert.Panics(t, func() { _, _, _ = pl.Run(context.Background(), prog, &pass.Context{}) })
}

func TestPipeline_Cancelled(t *testing.T) {
	_, prog := setup(t, ifProgram)
	pl, err := pass.NewPipeline(newRegistry(), config.DefaultPasses)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = pl.Run(ctx, prog, &pass.Context{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListSchedule_OverridesBeatParams(t *testing.T) {
	plat, prog := setup(t, "name: p\nblocks:\n  - name: main\n    statements: [\"x q[0]\", \"measure q[0]\", \"x q[1]\"]\n")
	pl, err := pass.NewPipeline(newRegistry(), []config.PassDef{
		{Type: "sch.list_schedule", Params: map[string]any{"scheduler_target": "alap"}},
	})
	require.NoError(t, err)

	out, results, err := pl.Run(context.Background(), prog, &pass.Context{
		Resources: plat.Resources,
		Scheduler: plat.Config.Scheduler,
		Overrides: map[string]any{"scheduler_target": "asap"},
	})
	require.NoError(t, err)
	assert.Contains(t, results[0].Message, "asap")
	for _, s := range out.EntryPoint.Statements {
		if ir.Describe(s) == "x q[1]" {
			assert.Equal(t, 0, s.Cycle())
		}
	}

	_, _, err = pl.Run(context.Background(), prog, &pass.Context{
		Resources: plat.Resources,
		Overrides: map[string]any{"scheduler_target": "sideways"},
	})
	require.Error(t, err)
	assert.True(t, errs.IsUser(err))
}

func TestApplySchedulerParams(t *testing.T) {
	on := true
	base := config.SchedulerConf{ResourceConstraints: &on, Target: "alap", Heuristic: "deep_criticality"}

	conf, err := pass.ApplySchedulerParams(base, map[string]any{
		"resource_constraints":      false,
		"scheduler_target":          "asap",
		"max_resource_block_cycles": float64(40),
		"commute_multi_qubit":       true,
	})
	require.NoError(t, err)
	assert.False(t, *conf.ResourceConstraints)
	assert.True(t, *base.ResourceConstraints, "base is not modified")
	assert.Equal(t, "asap", conf.Target)
	assert.Equal(t, 40, *conf.MaxResourceBlockCycles)
	assert.True(t, conf.CommuteMultiQubit)

	opts, err := pass.SchedulerOptions(conf)
	require.NoError(t, err)
	assert.False(t, opts.ResourceConstraints)
	assert.Equal(t, "deep_criticality", string(opts.Heuristic))
	assert.Equal(t, "schedule", opts.DotPrefix)

	for name, params := range map[string]map[string]any{
		"fractional": {"max_resource_block_cycles": 2.5},
		"wrong type": {"commute_single_qubit": "yes"},
		"unknown":    {"scheduler_mood": "calm"},
	} {
		_, err := pass.ApplySchedulerParams(base, params)
		assert.Error(t, err, name)
		assert.True(t, errs.IsUser(err), name)
	}
}
