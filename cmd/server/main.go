package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/qsched/internal/api"
	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/engine"
	"github.com/gyaneshwarpardhi/qsched/internal/frontend"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
	"github.com/gyaneshwarpardhi/qsched/internal/pass/schedule"
	"github.com/gyaneshwarpardhi/qsched/internal/pass/structure"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/platform.yaml", "Path to platform YAML config")
	debug := flag.Bool("debug", false, "Log scheduler decisions at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Pass registry ─────────────────────────────────────────────────────────
	reg := pass.NewRegistry()
	reg.Register(structure.New())
	reg.Register(schedule.New())

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg, reg.Has); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Build platform ────────────────────────────────────────────────────────
	plat, err := frontend.NewPlatform(cfg)
	if err != nil {
		slog.Error("failed to build platform", "err", err)
		os.Exit(1)
	}
	slog.Info("platform built",
		"platform", cfg.Name,
		"qubits", cfg.Qubits,
		"instructions", len(cfg.Instructions),
		"resources", plat.Resources.Len(),
	)

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(ctx, plat, reg, cfg.Engine, logger)
	if err != nil {
		slog.Error("failed to start engine", "err", err)
		os.Exit(1)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.PlatformConfig) {
		if err := eng.LoadPlatform(newCfg); err != nil {
			slog.Warn("hot-reload skipped: platform invalid", "err", err)
		}
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, loader)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr, "passes", eng.Passes())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
}
