package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"officeconv/internal/batch"
	"officeconv/internal/config"
	"officeconv/internal/formats"
	"officeconv/internal/runs"
	"officeconv/internal/schedule"
	"officeconv/internal/soffice"
	"officeconv/internal/webserver"
)

// Exit codes of convert mode.
const (
	exitOK         = 0 // pass ran, nothing failed
	exitSomeFailed = 1 // pass ran, at least one file failed
	exitFatal      = 2 // the pass could not run at all
)

func main() {
	mode := flag.String("mode", "serve", "Run mode: 'serve' or 'convert'")
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(exitFatal)
	}

	setupLogging(cfg.Logging)

	reg, err := formats.Default()
	if err != nil {
		slog.Error("loading format registry", "error", err)
		os.Exit(exitFatal)
	}

	if cfg.Converter.FormatsFile != "" {
		if err := reg.MergeFile(cfg.Converter.FormatsFile); err != nil {
			slog.Error("loading extra format definitions", "error", err, "path", cfg.Converter.FormatsFile)
			os.Exit(exitFatal)
		}
	}

	runner := soffice.New(soffice.Locate(cfg.Converter.Binary), cfg.Converter.Timeout)
	slog.Info("using converter", "binary", runner.Binary(), "timeout", cfg.Converter.Timeout)

	orch := batch.New(batch.Options{
		SourceRoot:      cfg.Source.Path,
		DestRoot:        cfg.Destination.Path,
		Workers:         cfg.Converter.Workers,
		CopyPassthrough: cfg.Converter.CopyPassthrough,
		FailOnEmpty:     cfg.Converter.FailOnEmpty,
	}, reg, runner, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "convert":
		os.Exit(runOnce(ctx, orch, runner))

	case "serve":
		if err := serve(ctx, cfg, orch, runner, reg); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(exitFatal)
		}
		slog.Info("shutdown complete")

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q, want 'serve' or 'convert'\n", *mode)
		os.Exit(exitFatal)
	}
}

// runOnce executes a single pass and maps its outcome onto an exit code.
func runOnce(ctx context.Context, orch *batch.Orchestrator, runner *soffice.Runner) int {
	if err := runner.Check(); err != nil {
		slog.Error("converter unavailable", "error", err)
		return exitFatal
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		slog.Error("pass failed", "error", err)
		return exitFatal
	}

	printSummary(summary)

	if !summary.Success() {
		return exitSomeFailed
	}

	return exitOK
}

func serve(ctx context.Context, cfg *config.Config, orch *batch.Orchestrator, runner *soffice.Runner, reg *formats.Registry) error {
	for _, dir := range []string{cfg.Source.Path, cfg.Destination.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := runner.Check(); err != nil {
		slog.Warn("converter not ready, conversions will fail until it is", "error", err)
	}

	mgr := runs.NewManager(orch, slog.Default())

	if cfg.Schedule.Cron != "" {
		sched, err := schedule.New(cfg.Schedule.Cron, mgr, runner, slog.Default())
		if err != nil {
			return err
		}

		sched.Start(ctx)
		defer sched.Stop()
	}

	srv := webserver.New(webserver.Options{
		SourceRoot: cfg.Source.Path,
		DestRoot:   cfg.Destination.Path,
		Formats:    reg,
		Checker:    runner,
		Runs:       mgr,
		Logger:     slog.Default(),
	})

	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func printSummary(s *batch.Summary) {
	fmt.Println("Conversion pass finished")
	fmt.Println("------------------------")
	fmt.Printf("scanned:   %d\n", s.Total)
	fmt.Printf("converted: %d\n", s.Converted)
	if s.Copied > 0 {
		fmt.Printf("copied:    %d\n", s.Copied)
	}
	fmt.Printf("skipped:   %d\n", s.Skipped)
	fmt.Printf("failed:    %d\n", s.Failed)
	fmt.Printf("elapsed:   %s\n", s.Elapsed.Round(time.Millisecond))

	for _, r := range s.Results {
		if r.Outcome == batch.OutcomeFailed {
			fmt.Printf("  failed: %s (%s)\n", r.Path, r.Reason)
		}
	}
}
