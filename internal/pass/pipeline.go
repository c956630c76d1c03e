package pass

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/metrics"
)

type step struct {
	name   string
	pass   Pass
	params map[string]any
}

// Pipeline is a validated, ordered list of passes.
type Pipeline struct {
	steps []step
}

// NewPipeline resolves every pass definition against reg and validates its
// parameters. All problems are reported together.
func NewPipeline(reg *Registry, defs []config.PassDef) (*Pipeline, error) {
	pl := &Pipeline{}
	var problems []string
	for i, d := range defs {
		p, err := reg.Get(d.Type)
		if err != nil {
			problems = append(problems, fmt.Sprintf("passes[%d]: %v", i, err))
			continue
		}
		name := d.Name
		if name == "" {
			name = d.Type
		}
		if err := p.Validate(d.Params); err != nil {
			problems = append(problems, fmt.Sprintf("pass %s: %v", name, err))
			continue
		}
		pl.steps = append(pl.steps, step{name: name, pass: p, params: d.Params})
	}
	if len(problems) > 0 {
		return nil, errs.Userf("invalid pass pipeline:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return pl, nil
}

// Names returns the pass names in execution order.
func (pl *Pipeline) Names() []string {
	out := make([]string, len(pl.steps))
	for i, s := range pl.steps {
		out[i] = s.name
	}
	return out
}

// Run executes the passes in order and returns the final program. Internal
// compiler errors raised inside a pass are returned as errors, so a broken
// program never takes the process down.
func (pl *Pipeline) Run(ctx context.Context, prog *ir.Program, pc *Context) (*ir.Program, []*Result, error) {
	results := make([]*Result, 0, len(pl.steps))
	for _, s := range pl.steps {
		if err := ctx.Err(); err != nil {
			return prog, results, err
		}
		start := time.Now()
		out, res, err := s.run(ctx, prog, pc)
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		metrics.PassDuration.WithLabelValues(s.pass.Type()).Observe(elapsed)
		if err != nil {
			return prog, results, fmt.Errorf("pass %s: %w", s.name, err)
		}
		if res == nil {
			res = &Result{}
		}
		res.Name, res.Type, res.DurationMs = s.name, s.pass.Type(), elapsed
		results = append(results, res)
		pc.logger().Debug("pass finished", "pass", s.name, "duration_ms", elapsed)
		prog = out
	}
	return prog, results, nil
}

func (s step) run(ctx context.Context, prog *ir.Program, pc *Context) (out *ir.Program, res *Result, err error) {
	defer errs.Recover(&err, "")
	return s.pass.Run(ctx, prog, s.params, pc)
}
