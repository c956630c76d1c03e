package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/frontend"
	"github.com/gyaneshwarpardhi/qsched/internal/job"
	"github.com/gyaneshwarpardhi/qsched/internal/metrics"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
)

var (
	// ErrQueueFull is returned when the compile queue has no room left.
	ErrQueueFull = errors.New("compile queue full")
	// ErrTimeout is returned when a synchronous compile does not finish in
	// time.
	ErrTimeout = errors.New("compile timeout")
	// ErrDuplicateJob is returned when an asynchronous job reuses the id of
	// a job that is still tracked.
	ErrDuplicateJob = errors.New("job id already in use")
)

// maxStoredResults bounds how many asynchronous results are kept.
const maxStoredResults = 1000

// compiler is a platform together with its validated pass pipeline. It is
// swapped as a whole on reload.
type compiler struct {
	platform *frontend.Platform
	pipeline *pass.Pipeline
}

// Engine compiles programs on a pool of workers.
type Engine struct {
	compiler atomic.Pointer[compiler]
	registry *pass.Registry
	pool     *workerPool[*compileWork, *job.Result]
	results  *resultStore
	conf     config.EngineConf
	logger   *slog.Logger
}

type compileWork struct {
	ctx     context.Context
	req     *job.Request
	resultC chan *job.Result
}

// New creates an Engine for plat using the passes in reg and starts the
// worker pool. The pool stops when ctx is cancelled.
func New(ctx context.Context, plat *frontend.Platform, reg *pass.Registry, conf config.EngineConf, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		registry: reg,
		results:  newResultStore(maxStoredResults),
		conf:     conf,
		logger:   logger,
	}
	if err := e.SwapPlatform(plat); err != nil {
		return nil, err
	}

	e.pool = newWorkerPool[*compileWork, *job.Result](
		ctx,
		conf.Workers,
		conf.QueueDepth,
		func(ctx context.Context, w *compileWork) (*job.Result, error) {
			wctx := w.ctx
			if wctx == nil {
				wctx = ctx
			}
			wctx, cancel := context.WithTimeout(wctx, e.timeout())
			defer cancel()
			res := e.Compile(wctx, w.req)
			if w.resultC != nil {
				w.resultC <- res
			} else {
				e.results.finish(res)
			}
			return res, nil
		},
	)
	return e, nil
}

// SwapPlatform atomically replaces the platform and its pass pipeline (used
// on hot-reload). Jobs already running finish on the old platform.
func (e *Engine) SwapPlatform(plat *frontend.Platform) error {
	pl, err := pass.NewPipeline(e.registry, plat.Config.Passes)
	if err != nil {
		return err
	}
	e.compiler.Store(&compiler{platform: plat, pipeline: pl})
	return nil
}

// LoadPlatform validates cfg, builds its platform and swaps it in. The
// current platform stays in place when any step fails.
func (e *Engine) LoadPlatform(cfg *config.PlatformConfig) error {
	err := e.loadPlatform(cfg)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.PlatformReloads.WithLabelValues(result).Inc()
	return err
}

func (e *Engine) loadPlatform(cfg *config.PlatformConfig) error {
	if err := config.Validate(cfg, e.registry.Has); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrUser, err)
	}
	plat, err := frontend.NewPlatform(cfg)
	if err != nil {
		return err
	}
	if err := e.SwapPlatform(plat); err != nil {
		return err
	}
	e.logger.Info("platform loaded", "platform", cfg.Name, "version", cfg.Version, "passes", e.Passes())
	return nil
}

// Platform returns the current platform.
func (e *Engine) Platform() *frontend.Platform {
	return e.compiler.Load().platform
}

// Passes returns the names of the current pipeline's passes.
func (e *Engine) Passes() []string {
	return e.compiler.Load().pipeline.Names()
}

func (e *Engine) timeout() time.Duration {
	return time.Duration(e.conf.JobTimeoutMs) * time.Millisecond
}

// ProcessSync compiles a request on the pool and waits for the result.
// Returns ErrQueueFull if the queue is full.
func (e *Engine) ProcessSync(ctx context.Context, req *job.Request) (*job.Result, error) {
	resultC := make(chan *job.Result, 1)
	w := &compileWork{ctx: ctx, req: req, resultC: resultC}

	timeout := e.timeout()
	if !e.pool.Submit(w) {
		metrics.JobsDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.JobsEnqueued.Inc()

	select {
	case res := <-resultC:
		return res, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues a request for background compilation. The result
// can be fetched with Result. Returns ErrDuplicateJob if the id is already
// tracked and ErrQueueFull if the queue is full.
func (e *Engine) ProcessAsync(req *job.Request) error {
	if !e.results.pending(req.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, req.ID)
	}
	if !e.pool.Submit(&compileWork{req: req}) {
		e.results.forget(req.ID)
		metrics.JobsDropped.Inc()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.JobsEnqueued.Inc()
	return nil
}

// Result returns the result of an asynchronous job. done is false while
// the job is still queued or running; ok is false for unknown ids.
func (e *Engine) Result(id string) (res *job.Result, done, ok bool) {
	return e.results.get(id)
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// ActiveWorkers returns how many workers are compiling right now.
func (e *Engine) ActiveWorkers() int {
	return e.pool.Active()
}

// Compile runs a request through the frontend and the pass pipeline of the
// current platform in the calling goroutine. Failures are reported in the
// result.
func (e *Engine) Compile(ctx context.Context, req *job.Request) *job.Result {
	start := time.Now()
	c := e.compiler.Load()
	res := &job.Result{JobID: req.ID, Program: req.Program.Name}
	logger := e.logger.With("job", req.ID, "program", req.Program.Name)

	if err := e.compile(ctx, c, req, res, logger); err != nil {
		res.SetError(err)
		logger.Info("compile failed", "kind", res.ErrorKind, "err", err)
	}

	res.DurationMs = time.Since(start).Milliseconds()

	// Metrics.
	status := "success"
	if res.Failed() {
		status = res.ErrorKind + "_error"
	}
	metrics.JobsProcessed.WithLabelValues(status).Inc()
	metrics.CompileDuration.Observe(float64(res.DurationMs))
	return res
}

func (e *Engine) compile(ctx context.Context, c *compiler, req *job.Request, res *job.Result, logger *slog.Logger) error {
	if err := config.ValidateProgram(&req.Program); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrUser, err)
	}
	for _, key := range []string{pass.ParamWriteDotGraphs, pass.ParamDotPrefix} {
		if _, set := req.Options[key]; set {
			return errs.Userf("option %s can only be set in the platform configuration", key)
		}
	}
	sconf, err := pass.ApplySchedulerParams(c.platform.Config.Scheduler, req.Options)
	if err != nil {
		return err
	}
	if _, err := pass.SchedulerOptions(sconf); err != nil {
		return err
	}

	prog, err := frontend.Build(c.platform, &req.Program)
	if err != nil {
		return err
	}
	pc := &pass.Context{Scheduler: c.platform.Config.Scheduler, Overrides: req.Options, Logger: logger}
	if c.platform.Resources != nil {
		pc.Resources = c.platform.Resources
	}
	out, passes, err := c.pipeline.Run(ctx, prog, pc)
	res.Passes = passes
	if err != nil {
		return err
	}
	res.Summarize(out)
	return nil
}

// Shutdown drains the pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
