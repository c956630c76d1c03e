package sched

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/gyaneshwarpardhi/qsched/internal/ddg"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
)

// Target selects as-soon-as-possible or as-late-as-possible scheduling.
type Target string

const (
	ASAP Target = "asap"
	ALAP Target = "alap"
)

// HeuristicKind names a criticality heuristic.
type HeuristicKind string

const (
	HeuristicTrivial         HeuristicKind = "trivial"
	HeuristicCriticalPath    HeuristicKind = "critical_path"
	HeuristicDeepCriticality HeuristicKind = "deep_criticality"
)

// ParseTarget accepts "asap" or "alap".
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case ASAP, ALAP:
		return t, nil
	}
	return "", fmt.Errorf("unknown scheduler target %q", s)
}

// ParseHeuristic accepts "trivial", "critical_path" or "deep_criticality".
func ParseHeuristic(s string) (HeuristicKind, error) {
	switch h := HeuristicKind(s); h {
	case HeuristicTrivial, HeuristicCriticalPath, HeuristicDeepCriticality:
		return h, nil
	}
	return "", fmt.Errorf("unknown scheduler heuristic %q", s)
}

// Options control scheduling of a block or program.
type Options struct {
	// ResourceConstraints enables the resource oracle.
	ResourceConstraints bool
	Target              Target
	Heuristic           HeuristicKind
	CommuteMultiQubit   bool
	CommuteSingleQubit  bool
	// MaxResourceBlockCycles bounds consecutive cycles without progress.
	// Zero disables the bound.
	MaxResourceBlockCycles int

	WriteDotGraphs bool
	// DotPrefix is prepended to dot and key file names.
	DotPrefix string
	// CreateFile opens dot output; defaults to os.Create.
	CreateFile func(name string) (io.WriteCloser, error)

	Logger *slog.Logger
}

// DefaultOptions returns the pass defaults.
func DefaultOptions() Options {
	return Options{
		ResourceConstraints:    true,
		Target:                 ALAP,
		Heuristic:              HeuristicDeepCriticality,
		MaxResourceBlockCycles: 10000,
		DotPrefix:              "schedule",
	}
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Options) create(name string) (io.WriteCloser, error) {
	if o.CreateFile != nil {
		return o.CreateFile(name)
	}
	return os.Create(name)
}

// BlockStats summarizes the schedule of one block.
type BlockStats struct {
	Name       string `json:"name"`
	Statements int    `json:"statements"`
	Edges      int    `json:"edges"`
	// Cycles is the duration of the scheduled block.
	Cycles int `json:"cycles"`
}

// ScheduleBlock schedules the statements of block in place: cycles are
// assigned and the statements are sorted by cycle. name is used for dot
// output.
func ScheduleBlock(p *ir.Platform, block *ir.SubBlock, oracle rmgr.Oracle, opts Options, name string) (BlockStats, error) {
	logger := opts.logger().With("block", name)
	g := ddg.Build(p, block, ddg.Options{
		CommuteMultiQubit:  opts.CommuteMultiQubit,
		CommuteSingleQubit: opts.CommuteSingleQubit,
		Logger:             logger,
	})
	defer g.Clear()
	stats := BlockStats{Name: name, Statements: len(block.Statements), Edges: g.EdgeCount()}

	if opts.Target == ALAP {
		g.Reverse()
	}

	var h Heuristic = Trivial{}
	if opts.Heuristic == HeuristicCriticalPath || opts.Heuristic == HeuristicDeepCriticality {
		g.Reverse()
		pre := New(g, Trivial{}, nil, logger)
		if err := pre.Run(0); err != nil {
			return stats, err
		}
		cycles := pre.Cycles()
		g.Reverse()
		if opts.Heuristic == HeuristicCriticalPath {
			h = NewCriticalPath(cycles)
		} else {
			h = NewDeepCriticality(g, cycles)
		}
	}

	if !opts.ResourceConstraints {
		oracle = nil
	}
	s := New(g, h, oracle, logger)
	if err := s.Run(opts.MaxResourceBlockCycles); err != nil {
		return stats, fmt.Errorf("scheduling block %s: %w", name, err)
	}
	s.ConvertCycles()
	stats.Cycles = ir.BlockDuration(block)
	logger.Debug("scheduled block", "statements", stats.Statements, "edges", stats.Edges, "cycles", stats.Cycles)

	if opts.WriteDotGraphs {
		if g.Direction() < 0 {
			g.Reverse()
		}
		if err := g.ComputeRemaining(); err != nil {
			return stats, err
		}
		if err := writeDot(g, opts, name); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func writeDot(g *ddg.Graph, opts Options, name string) error {
	base := opts.DotPrefix + "_" + name
	write := func(file string, fn func(io.Writer) error) error {
		f, err := opts.create(file)
		if err != nil {
			return fmt.Errorf("creating %s: %w", file, err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", file, err)
		}
		return f.Close()
	}
	if err := write(base+".dot", func(w io.Writer) error { return ddg.WriteDot(w, g, "") }); err != nil {
		return err
	}
	return write(base+".key", func(w io.Writer) error { return ddg.WriteDotKey(w, g) })
}

// programScheduler schedules every block of a program under a unique name.
type programScheduler struct {
	platform *ir.Platform
	oracle   rmgr.Oracle
	opts     Options
	used     map[string]bool
	stats    []BlockStats
}

func (ps *programScheduler) uniqueName(name string) string {
	unique := name
	for i := 1; ps.used[unique]; i++ {
		unique = name + "_" + strconv.Itoa(i)
	}
	ps.used[unique] = true
	return unique
}

func (ps *programScheduler) scheduleBlock(block *ir.SubBlock, name string) error {
	name = ps.uniqueName(name)
	stats, err := ScheduleBlock(ps.platform, block, ps.oracle, ps.opts, name)
	if err != nil {
		return err
	}
	ps.stats = append(ps.stats, stats)
	for _, st := range block.Statements {
		switch s := st.(type) {
		case *ir.IfElse:
			for _, br := range s.Branches {
				if err := ps.scheduleBlock(br.Body, name+"_if"); err != nil {
					return err
				}
			}
			if s.Otherwise != nil {
				if err := ps.scheduleBlock(s.Otherwise, name+"_else"); err != nil {
					return err
				}
			}
		default:
			if body := ir.LoopBody(st); body != nil {
				if err := ps.scheduleBlock(body, name+"_loop"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ScheduleProgram schedules every block of prog, including the bodies of
// structured statements when the program is not in basic-block form.
func ScheduleProgram(prog *ir.Program, oracle rmgr.Oracle, opts Options) ([]BlockStats, error) {
	ps := &programScheduler{
		platform: prog.Platform,
		oracle:   oracle,
		opts:     opts,
		used:     make(map[string]bool),
	}
	for _, b := range prog.Blocks {
		if err := ps.scheduleBlock(&b.SubBlock, b.Name); err != nil {
			return ps.stats, err
		}
	}
	return ps.stats, nil
}
