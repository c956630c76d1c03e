package job_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/ir/irtest"
	"github.com/gyaneshwarpardhi/qsched/internal/job"
)

func TestSummarize(t *testing.T) {
	p := irtest.NewPlatform(2)
	x := irtest.Gate(p, "x", 0)
	m := irtest.Gate(p, "measure", 0)
	m.SetCycle(1)
	tail := &ir.Block{Name: "tail"}
	main := &ir.Block{Name: "main", SubBlock: *irtest.Block(x, m), Next: tail}
	prog := &ir.Program{Name: "p", Platform: p, Blocks: []*ir.Block{main, tail}, EntryPoint: main}

	var res job.Result
	res.Summarize(prog)

	require.Len(t, res.Blocks, 2)
	assert.Equal(t, job.Block{
		Name:   "main",
		Next:   "tail",
		Cycles: 6,
		Statements: []job.Statement{
			{Cycle: 0, Duration: 1, Text: "x q[0]"},
			{Cycle: 1, Duration: 5, Text: "measure q[0]"},
		},
	}, res.Blocks[0])
	assert.Empty(t, res.Blocks[1].Statements)
	assert.Equal(t, 6, res.TotalCycles)
}

func TestSetError(t *testing.T) {
	var res job.Result
	assert.False(t, res.Failed())

	res.SetError(errs.Userf("unknown instruction %q", "foo"))
	assert.True(t, res.Failed())
	assert.Equal(t, job.ErrorKindUser, res.ErrorKind)

	res.SetError(errs.Internalf("broken graph"))
	assert.Equal(t, job.ErrorKindInternal, res.ErrorKind)

	res.SetError(errors.New("timeout"))
	assert.Equal(t, job.ErrorKindInternal, res.ErrorKind)
}
