// Package pass runs compiler passes over IR programs. Passes are looked up
// by type in a Registry and executed in the order the platform lists them.
package pass

import (
	"context"
	"io"
	"log/slog"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
	"github.com/gyaneshwarpardhi/qsched/internal/sched"
)

// Result holds the outcome of running a single pass.
type Result struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Message    string             `json:"message"`
	DurationMs float64            `json:"duration_ms"`
	Blocks     []sched.BlockStats `json:"blocks,omitempty"`
}

// Context is what a pass sees of the platform besides the program itself.
type Context struct {
	// Resources is the resource oracle of the platform; nil means
	// unconstrained.
	Resources rmgr.Oracle
	// Scheduler holds the platform-wide scheduler settings that pass
	// parameters override.
	Scheduler config.SchedulerConf
	// Overrides are per-job scheduler parameters. They take precedence over
	// both Scheduler and the pass parameters.
	Overrides map[string]any
	// CreateFile opens output files such as dot graphs; nil means os.Create.
	CreateFile func(name string) (io.WriteCloser, error)
	Logger     *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Pass is the interface all compiler passes must satisfy.
type Pass interface {
	// Type returns the string key this pass is registered under.
	Type() string
	// Validate checks params when the pipeline is built.
	Validate(params map[string]any) error
	// Run transforms prog. A pass may modify prog in place and return it, or
	// return a new program.
	Run(ctx context.Context, prog *ir.Program, params map[string]any, pc *Context) (*ir.Program, *Result, error)
}
