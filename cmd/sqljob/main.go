package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	config "sqljob/configs"
	"sqljob/pkg/discovery"
	"sqljob/pkg/executor"
	"sqljob/pkg/executor/runner"
	"sqljob/pkg/logger"
	"sqljob/pkg/metrics"
	"sqljob/pkg/models"
	tracing "sqljob/pkg/observability"
	"sqljob/pkg/report"
)

func main() {
	os.Exit(run(os.Stdout))
}

func run(stdout io.Writer) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqljob: %v\n", err)
		return models.ExitConfigError
	}

	log, err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
		Service:    "sqljob",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqljob: failed to initialize logger: %v\n", err)
		return models.ExitConfigError
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceCfg := tracing.DefaultConfig("sqljob")
	traceCfg.Endpoint = cfg.TracingEndpoint
	traceCfg.SamplingRate = cfg.TracingSample
	tracer, err := tracing.Init(ctx, traceCfg)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		tracer = tracing.Noop()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	logHost(log, cfg.Parallel)

	progress := report.NewProgress(stdout)
	cwd, err := os.Getwd()
	if err != nil {
		log.Warn("Failed to resolve working directory", zap.Error(err))
	}
	progress.Start(cwd)

	files, err := discovery.Discover(cfg.Dir, cfg.Pattern)
	if err != nil {
		if !errors.Is(err, discovery.ErrDirectory) {
			log.Error("Invalid test file pattern", zap.Error(err))
			return models.ExitConfigError
		}
		log.Warn("No test files discovered", zap.Error(err))
	}

	exec := executor.NewExecutor(executor.Config{
		Binary:     cfg.Binary,
		BinaryFlag: cfg.BinaryFlag,
		Parallel:   cfg.Parallel,
		Timeout:    cfg.Timeout,
		Policy:     cfg.Policy,
		Tracer:     tracer,
		Logger:     log,
		OnResult:   progress.Result,
	}, runner.NewProcessRunner())

	rep, runErr := exec.Run(ctx, files)
	if err := report.Summarize(stdout, rep); err != nil {
		log.Error("Failed to print summary", zap.Error(err))
	}

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, "sqljob"); err != nil {
			log.Warn("Metrics push failed", zap.String("url", cfg.PushgatewayURL), zap.Error(err))
		}
		cancel()
	}

	if runErr != nil {
		log.Warn("Stopped before all test files ran", zap.Error(runErr))
	}
	return rep.ExitCode()
}

func logHost(log *zap.Logger, workers int) {
	fields := []zap.Field{zap.Int("workers", workers)}
	if v, err := mem.VirtualMemory(); err == nil {
		// In MB
		fields = append(fields, zap.Uint64("total_memory_mb", v.Total/1024/1024))
	}
	log.Debug("Host resources", fields...)
}
