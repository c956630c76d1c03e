// Package job is the input and output model of compile requests.
package job

import (
	"time"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
)

// Request is the canonical input model for a compile job.
type Request struct {
	ID      string            `json:"id" yaml:"id"`
	Program config.ProgramDef `json:"program" yaml:"program"`
	// Options override the platform scheduler settings for this job only,
	// using the same keys as the schedule pass parameters.
	Options    map[string]any `json:"options,omitempty" yaml:"options"`
	ReceivedAt time.Time      `json:"-" yaml:"-"`
}

// Error kinds reported in Result.ErrorKind.
const (
	ErrorKindUser     = "user"
	ErrorKindInternal = "internal"
)

// Result is the outcome of compiling one request.
type Result struct {
	JobID       string         `json:"job_id"`
	Program     string         `json:"program"`
	DurationMs  int64          `json:"duration_ms"`
	Passes      []*pass.Result `json:"passes"`
	Blocks      []Block        `json:"blocks,omitempty"`
	TotalCycles int            `json:"total_cycles"`
	Error       string         `json:"error,omitempty"`
	ErrorKind   string         `json:"error_kind,omitempty"`
}

// Block is one scheduled block of the output program.
type Block struct {
	Name       string      `json:"name"`
	Next       string      `json:"next,omitempty"`
	Cycles     int         `json:"cycles"`
	Statements []Statement `json:"statements"`
}

// Statement is one scheduled statement.
type Statement struct {
	Cycle    int    `json:"cycle"`
	Duration int    `json:"duration"`
	Text     string `json:"text"`
}

// Failed reports whether the job ended with an error.
func (r *Result) Failed() bool { return r.Error != "" }

// SetError records err and classifies it.
func (r *Result) SetError(err error) {
	r.Error = err.Error()
	r.ErrorKind = ErrorKindUser
	if !errs.IsUser(err) {
		r.ErrorKind = ErrorKindInternal
	}
}

// Summarize renders the blocks of a compiled program. Structured statements
// that survive compilation (when no decomposition pass ran) are rendered on
// one line.
func (r *Result) Summarize(prog *ir.Program) {
	r.Blocks = r.Blocks[:0]
	r.TotalCycles = 0
	for _, b := range prog.Blocks {
		blk := Block{
			Name:       b.Name,
			Cycles:     ir.BlockDuration(&b.SubBlock),
			Statements: make([]Statement, 0, len(b.Statements)),
		}
		if b.Next != nil {
			blk.Next = b.Next.Name
		}
		for _, s := range b.Statements {
			blk.Statements = append(blk.Statements, Statement{
				Cycle:    s.Cycle(),
				Duration: ir.Duration(s),
				Text:     ir.Describe(s),
			})
		}
		r.TotalCycles += blk.Cycles
		r.Blocks = append(r.Blocks, blk)
	}
}
