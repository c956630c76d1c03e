// Package schedule is the "sch.list_schedule" pass: it assigns a cycle to
// every statement of every block with the resource-constrained list
// scheduler.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/metrics"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
	"github.com/gyaneshwarpardhi/qsched/internal/sched"
)

// Type is the registry key of the pass.
const Type = "sch.list_schedule"

// ListSchedule is the list scheduling pass. Its parameters override the
// platform scheduler settings; see the pass.Param constants.
type ListSchedule struct{}

func New() *ListSchedule { return &ListSchedule{} }

func (l *ListSchedule) Type() string { return Type }

func (l *ListSchedule) Validate(params map[string]any) error {
	conf, err := pass.ApplySchedulerParams(config.SchedulerConf{}, params)
	if err != nil {
		return err
	}
	_, err = pass.SchedulerOptions(conf)
	return err
}

func (l *ListSchedule) Run(_ context.Context, prog *ir.Program, params map[string]any, pc *pass.Context) (*ir.Program, *pass.Result, error) {
	conf, err := pass.ApplySchedulerParams(pc.Scheduler, params)
	if err != nil {
		return nil, nil, err
	}
	if conf, err = pass.ApplySchedulerParams(conf, pc.Overrides); err != nil {
		return nil, nil, err
	}
	opts, err := pass.SchedulerOptions(conf)
	if err != nil {
		return nil, nil, err
	}
	opts.Logger = pc.Logger
	opts.CreateFile = pc.CreateFile

	stats, err := sched.ScheduleProgram(prog, pc.Resources, opts)
	record(stats, opts)
	if err != nil {
		if errors.Is(err, sched.ErrDeadlock) {
			metrics.Deadlocks.Inc()
		}
		return nil, nil, err
	}

	total := 0
	for _, s := range stats {
		total += s.Cycles
	}
	return prog, &pass.Result{
		Message: fmt.Sprintf("scheduled %d blocks %s with %s heuristic, %d cycles in total",
			len(stats), opts.Target, opts.Heuristic, total),
		Blocks: stats,
	}, nil
}

func record(stats []sched.BlockStats, opts sched.Options) {
	for _, s := range stats {
		metrics.BlocksScheduled.WithLabelValues(string(opts.Heuristic), string(opts.Target)).Inc()
		metrics.DDGEdges.Observe(float64(s.Edges))
		metrics.ScheduleLength.Observe(float64(s.Cycles))
	}
}
