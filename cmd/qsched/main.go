// Command qsched compiles a single program against a platform description
// and prints the resulting schedule.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/engine"
	"github.com/gyaneshwarpardhi/qsched/internal/frontend"
	"github.com/gyaneshwarpardhi/qsched/internal/job"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
	"github.com/gyaneshwarpardhi/qsched/internal/pass/schedule"
	"github.com/gyaneshwarpardhi/qsched/internal/pass/structure"
)

// Exit codes.
const (
	exitOK       = 0
	exitUser     = 1
	exitInternal = 2
	exitUsage    = 64
)

type options struct {
	platform  string
	program   string
	target    string
	heuristic string
	format    string
	dotDir    string
	color     string
	watch     bool
	verbose   bool
}

func main() {
	var o options
	flag.StringVar(&o.platform, "platform", "configs/platform.yaml", "Path to platform YAML config")
	flag.StringVar(&o.program, "program", "", "Path to program YAML or JSON (or pass it as the only argument)")
	flag.StringVar(&o.target, "target", "", "Override the scheduler target (asap or alap)")
	flag.StringVar(&o.heuristic, "heuristic", "", "Override the scheduler heuristic")
	flag.StringVar(&o.format, "format", "table", "Output format: table, json or yaml")
	flag.StringVar(&o.dotDir, "dot", "", "Write dependency graphs of every scheduled block into this directory")
	flag.StringVar(&o.color, "color", "auto", "Colorize table output: auto, always or never")
	flag.BoolVar(&o.watch, "watch", false, "Recompile whenever the platform config changes")
	flag.BoolVar(&o.verbose, "v", false, "Log scheduler decisions")
	flag.Parse()

	if o.program == "" && flag.NArg() == 1 {
		o.program = flag.Arg(0)
	}
	if o.program == "" {
		fmt.Fprintln(os.Stderr, "usage: qsched [flags] <program.yaml>")
		flag.PrintDefaults()
		os.Exit(exitUsage)
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, o, os.Stdout, logger))
}

func run(ctx context.Context, o options, out io.Writer, logger *slog.Logger) int {
	if err := o.validate(); err != nil {
		fmt.Fprintln(os.Stderr, "qsched:", err)
		return exitUsage
	}

	// ── Pass registry ─────────────────────────────────────────────────────────
	reg := pass.NewRegistry()
	reg.Register(structure.New())
	reg.Register(schedule.New())

	// ── Load platform ─────────────────────────────────────────────────────────
	loader, err := config.NewLoader(o.platform)
	if err != nil {
		logger.Error("failed to load platform", "err", err)
		return exitUser
	}
	cfg := o.prepare(loader.Config())
	if err := config.Validate(cfg, reg.Has); err != nil {
		logger.Error("platform validation failed", "err", err)
		return exitUser
	}
	plat, err := frontend.NewPlatform(cfg)
	if err != nil {
		logger.Error("failed to build platform", "err", err)
		return exitUser
	}

	// The engine runs no background workers; jobs compile on this goroutine.
	conf := cfg.Engine
	conf.Workers = 0
	eng, err := engine.New(ctx, plat, reg, conf, logger)
	if err != nil {
		logger.Error("failed to create engine", "err", err)
		return exitUser
	}
	defer eng.Shutdown()

	st := o.styles(out)
	compile := func() int {
		def, err := config.LoadProgram(o.program)
		if err != nil {
			logger.Error("failed to load program", "err", err)
			return exitUser
		}
		req := &job.Request{ID: filepath.Base(o.program), Program: *def, Options: o.jobOptions()}
		res := eng.Compile(ctx, req)
		if err := o.write(out, res, st); err != nil {
			logger.Error("failed to write result", "err", err)
			return exitInternal
		}
		switch res.ErrorKind {
		case "":
			return exitOK
		case job.ErrorKindUser:
			return exitUser
		default:
			return exitInternal
		}
	}

	code := compile()
	if !o.watch {
		return code
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	changed := make(chan struct{}, 1)
	loader.OnChange(func(newCfg *config.PlatformConfig) {
		if err := eng.LoadPlatform(o.prepare(newCfg)); err != nil {
			logger.Warn("platform reload skipped", "err", err)
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	stop, err := loader.Watch()
	if err != nil {
		logger.Error("config watcher unavailable", "err", err)
		return exitInternal
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return code
		case <-changed:
			fmt.Fprintln(out)
			code = compile()
		}
	}
}

func (o options) validate() error {
	switch o.format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", o.format)
	}
	switch o.color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", o.color)
	}
	return nil
}

// prepare applies command line settings that only the platform
// configuration may carry.
func (o options) prepare(cfg *config.PlatformConfig) *config.PlatformConfig {
	if o.dotDir == "" {
		return cfg
	}
	c := *cfg
	c.Scheduler.WriteDotGraphs = true
	c.Scheduler.DotPrefix = filepath.Join(o.dotDir, cfg.Scheduler.DotPrefix)
	return &c
}

func (o options) jobOptions() map[string]any {
	opts := map[string]any{}
	if o.target != "" {
		opts[pass.ParamTarget] = o.target
	}
	if o.heuristic != "" {
		opts[pass.ParamHeuristic] = o.heuristic
	}
	return opts
}

func (o options) styles(out io.Writer) styles {
	switch o.color {
	case "always":
		return colorStyles()
	case "never":
		return plainStyles()
	}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return colorStyles()
	}
	return plainStyles()
}

func (o options) write(out io.Writer, res *job.Result, st styles) error {
	switch o.format {
	case "table":
		render(out, res, st)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", o.format)
}
