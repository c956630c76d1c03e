package frontend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/frontend"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

const platformYAML = `
version: "1"
name: five-qubit
qubits: 5
registers:
  - {name: r, type: int, size: 4}
  - {name: flag, type: bit}
instructions:
  - {name: x, duration: 20, operands: ["write qubit"], kind: mw}
  - {name: cz, duration: 60, operands: ["commute_z qubit", "commute_z qubit"], kind: flux}
  - {name: measure, duration: 300, operands: ["measure qubit"], kind: readout}
resources:
  qubits: true
  instruments:
    - {name: awg0, kind: mw, qubits: [0, 1]}
`

func loadPlatform(t *testing.T) *frontend.Platform {
	t.Helper()
	cfg, err := config.ParsePlatform([]byte(platformYAML))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg, nil))
	plat, err := frontend.NewPlatform(cfg)
	require.NoError(t, err)
	return plat
}

func TestNewPlatform(t *testing.T) {
	plat := loadPlatform(t)
	p := plat.IR

	assert.Equal(t, 5, p.NumQubits())
	for name, cycles := range map[string]int{"x": 1, "cz": 3, "measure": 15} {
		it, ok := p.InstructionType(name)
		require.True(t, ok, name)
		assert.Equal(t, cycles, it.Duration, name)
	}
	cz, _ := p.InstructionType("cz")
	assert.Equal(t, ir.ModeCommuteZ, cz.Operands[1].Mode)
	assert.Equal(t, "flux", cz.Kind)

	r, ok := p.Object("r")
	require.True(t, ok)
	assert.Equal(t, []int{4}, r.Shape)
	flag, ok := p.Object("flag")
	require.True(t, ok)
	assert.Nil(t, flag.Shape)
	assert.Equal(t, 2, plat.Resources.Len())
}

func TestNewPlatform_BadInstrument(t *testing.T) {
	cfg, err := config.ParsePlatform([]byte(platformYAML))
	require.NoError(t, err)
	cfg.Resources.Instruments[0].Qubits = []int{7}
	_, err = frontend.NewPlatform(cfg)
	require.Error(t, err)
	assert.True(t, errs.IsUser(err))
}

const programYAML = `
name: mixed
variables:
  - {name: n, type: int}
blocks:
  - name: main
    statements:
      - x q[0]
      - foreach: {var: i, from: 0, to: 3}
        body:
          - cz q[0], q[1]
      - repeat:
          - measure q[1]
        until: bit(q[1])
      - if: bit(q[0])
        then:
          - x q[2]
        elif:
          - cond: "!bit(q[1])"
            then:
              - x q[3]
        else:
          - x q[4]
      - for: {init: "n = 0", cond: "n < 3", update: "set n = n + 1"}
        body:
          - cond (bit(q[0])) x q[0]
      - while: flag
        body:
          - set flag = bit(q[2])
  - name: tail
    statements:
      - wait 2
`

func TestBuild(t *testing.T) {
	plat := loadPlatform(t)
	def, err := config.ParseProgram([]byte(programYAML))
	require.NoError(t, err)
	require.NoError(t, config.ValidateProgram(def))

	prog, err := frontend.Build(plat, def)
	require.NoError(t, err)

	require.Len(t, prog.Blocks, 2)
	main, tail := prog.Blocks[0], prog.Blocks[1]
	assert.Same(t, main, prog.EntryPoint)
	assert.Same(t, tail, main.Next)
	assert.Nil(t, tail.Next)

	var got []string
	for _, s := range main.Statements {
		got = append(got, ir.Describe(s))
	}
	assert.Equal(t, []string{
		"x q[0]",
		"for (i = 0 .. 3) { cz q[0], q[1] }",
		"repeat { measure q[1] } until (bit(q[1]))",
		"if (bit(q[0])) { x q[2] } else if (!bit(q[1])) { x q[3] } else { x q[4] }",
		"for (set n = 0; n < 3; set n = n + 1) { cond (bit(q[0])) x q[0] }",
		"while (flag) { set flag = bit(q[2]) }",
	}, got)
	assert.Equal(t, "wait 2", ir.Describe(tail.Statements[0]))

	var vars []string
	for _, v := range prog.Variables {
		vars = append(vars, v.Name)
	}
	assert.Equal(t, []string{"n", "i"}, vars)
	_, leaked := plat.IR.Object("i")
	assert.False(t, leaked, "program variables stay out of the shared platform")
}

func TestBuild_ExplicitNext(t *testing.T) {
	plat := loadPlatform(t)
	def := &config.ProgramDef{Name: "loop", Blocks: []config.BlockDef{
		{Name: "a", Next: "c"},
		{Name: "b"},
		{Name: "c", Next: "a"},
	}}
	prog, err := frontend.Build(plat, def)
	require.NoError(t, err)
	assert.Equal(t, "c", prog.Blocks[0].Next.Name)
	assert.Equal(t, "c", prog.Blocks[1].Next.Name)
	assert.Equal(t, "a", prog.Blocks[2].Next.Name)
}

func TestBuild_Errors(t *testing.T) {
	plat := loadPlatform(t)
	cond := "flag"
	tests := []struct {
		name string
		def  config.ProgramDef
		want string
	}{
		{
			name: "unknown instruction in loop body",
			def: config.ProgramDef{Name: "p", Blocks: []config.BlockDef{{Name: "main", Statements: []config.StatementDef{
				{Line: "x q[0]"},
				{While: &cond, Body: []config.StatementDef{{Line: "frobnicate q[0]"}}},
			}}}},
			want: "block main: statement 2: ",
		},
		{
			name: "nested error location",
			def: config.ProgramDef{Name: "p", Blocks: []config.BlockDef{{Name: "main", Statements: []config.StatementDef{
				{Foreach: &config.ForeachDef{Var: "i", To: 1}, Body: []config.StatementDef{{Line: "frobnicate q[0]"}}},
			}}}},
			want: `block main: statement 1: body: statement 1: unknown instruction "frobnicate"`,
		},
		{
			name: "bit loop variable",
			def: config.ProgramDef{Name: "p", Blocks: []config.BlockDef{{Name: "main", Statements: []config.StatementDef{
				{Foreach: &config.ForeachDef{Var: "flag", To: 1}},
			}}}},
			want: "loop variable flag must be an int scalar or register element",
		},
		{
			name: "conditional for update",
			def: config.ProgramDef{Name: "p", Blocks: []config.BlockDef{{Name: "main", Statements: []config.StatementDef{
				{For: &config.ForDef{Cond: "r[0] < 2", Update: "cond (flag) set r[0] = 1"}},
			}}}},
			want: "must be an unconditional assignment",
		},
		{
			name: "duplicate variable",
			def:  config.ProgramDef{Name: "p", Variables: []config.RegisterDef{{Name: "r", Type: "int"}}, Blocks: []config.BlockDef{{Name: "main"}}},
			want: `duplicate object "r"`,
		},
		{
			name: "missing next block",
			def:  config.ProgramDef{Name: "p", Blocks: []config.BlockDef{{Name: "main", Next: "elsewhere"}}},
			want: `next block "elsewhere" does not exist`,
		},
		{
			name: "no blocks",
			def:  config.ProgramDef{Name: "p"},
			want: "program p has no blocks",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := frontend.Build(plat, &tt.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, errs.IsUser(err), "want a user error, got %v", err)
		})
	}
}

func TestSampleConfigs(t *testing.T) {
	loader, err := config.NewLoader("../../configs/platform.yaml")
	require.NoError(t, err)
	cfg := loader.Config()
	require.NoError(t, config.Validate(cfg, nil))
	plat, err := frontend.NewPlatform(cfg)
	require.NoError(t, err)

	def, err := config.LoadProgram("../../configs/programs/repeat_until_success.yaml")
	require.NoError(t, err)
	require.NoError(t, config.ValidateProgram(def))
	prog, err := frontend.Build(plat, def)
	require.NoError(t, err)
	require.Len(t, prog.Blocks, 1)
	assert.Len(t, prog.EntryPoint.Statements, 8)
}
