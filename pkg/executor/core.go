package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"sqljob/pkg/executor/runner"
	"sqljob/pkg/logger"
	"sqljob/pkg/metrics"
	"sqljob/pkg/models"
	tracing "sqljob/pkg/observability"
)

// Config describes how each test file is run and classified.
type Config struct {
	Binary     string
	BinaryFlag string // placed before the file path; omitted when empty
	Parallel   int    // values below 1 run sequentially
	Timeout    time.Duration
	Policy     Policy

	Tracer *tracing.Provider
	Logger *zap.Logger

	// OnResult is called once per finished file, from a single goroutine.
	OnResult func(models.RunResult)
}

// Executor runs a batch of test files against the binary under test.
type Executor struct {
	ID string

	binary   string
	flag     string
	parallel int
	timeout  time.Duration
	policy   Policy

	runner   runner.JobRunner
	tracer   *tracing.Provider
	log      *zap.Logger
	onResult func(models.RunResult)
}

func NewExecutor(cfg Config, r runner.JobRunner) *Executor {
	id := uuid.New().String()

	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.Noop()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	return &Executor{
		ID:       id,
		binary:   cfg.Binary,
		flag:     cfg.BinaryFlag,
		parallel: parallel,
		timeout:  cfg.Timeout,
		policy:   cfg.Policy,
		runner:   r,
		tracer:   tracer,
		log:      log.With(zap.String("run_id", id)),
		onResult: cfg.OnResult,
	}
}

// Run executes every file once and returns the sorted tally.
//
// A file's outcome never stops the batch. When ctx is cancelled no new file is
// started, children already running are killed, and the partial report is
// returned together with ctx.Err().
func (e *Executor) Run(ctx context.Context, files []models.TestFile) (*models.Report, error) {
	start := time.Now()
	report := models.NewReport(e.ID, len(files))
	metrics.FilesDiscovered.Set(float64(len(files)))

	ctx, span := e.tracer.StartSpan(ctx, "sqljob.batch",
		trace.WithAttributes(tracing.AttrRunID.String(e.ID)))
	defer span.End()

	e.log.Info("Starting batch",
		zap.Int("files", len(files)),
		zap.Int("workers", e.parallel),
		zap.String("binary", e.binary),
		zap.String("trace_id", tracing.TraceID(ctx)))

	results := make(chan models.RunResult)
	go e.dispatch(ctx, files, results)

	// Single writer for the tally.
	for res := range results {
		report.Add(res)
		if e.onResult != nil {
			e.onResult(res)
		}
	}

	report.Duration = time.Since(start)
	report.Sort()

	fields := []zap.Field{
		zap.Int("successes", len(report.Successes)),
		zap.Int("failures", len(report.Failures)),
		zap.Int("crashes", len(report.Crashes)),
		zap.Int("unclassified", len(report.Unclassified)),
		zap.Duration("duration", report.Duration),
	}

	if err := ctx.Err(); err != nil {
		report.Interrupted = true
		tracing.SetError(ctx, err)
		e.log.Warn("Batch interrupted",
			append(fields, zap.Int("not_run", len(files)-report.Processed()))...)
		return report, err
	}

	metrics.RecordBatch(report.Duration, report.ExitCode() == models.ExitClean)
	e.log.Info("Batch finished", fields...)
	return report, nil
}

// dispatch starts at most e.parallel runs at a time and closes results once
// every started run has reported.
func (e *Executor) dispatch(ctx context.Context, files []models.TestFile, results chan<- models.RunResult) {
	defer close(results)

	// Worker pool semaphore
	sem := make(chan struct{}, e.parallel)
	var wg sync.WaitGroup
	defer wg.Wait()

	for _, file := range files {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(file models.TestFile) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- e.runOne(ctx, file)
		}(file)
	}
}

func (e *Executor) runOne(ctx context.Context, file models.TestFile) models.RunResult {
	ctx, span := e.tracer.StartSpan(ctx, "sqljob.run",
		trace.WithAttributes(tracing.AttrFile.String(string(file))))
	defer span.End()

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	metrics.RunsInFlight.Inc()
	r := e.runner.Run(runCtx, e.binary, e.args(file))
	metrics.RunsInFlight.Dec()

	res := models.RunResult{
		File:       file,
		ExitStatus: r.ExitStatus,
		Outcome:    e.policy.Classify(r.ExitStatus),
		Duration:   r.Duration,
		Err:        r.Error,
	}

	tracing.SetAttributes(ctx,
		tracing.AttrExitStatus.Int(res.ExitStatus),
		tracing.AttrOutcome.String(string(res.Outcome)),
	)
	metrics.RecordRun(string(res.Outcome), res.Duration.Seconds())
	e.logResult(ctx, res)

	return res
}

func (e *Executor) logResult(ctx context.Context, res models.RunResult) {
	fields := []zap.Field{
		zap.String("file", string(res.File)),
		zap.Int("exit_status", res.ExitStatus),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("duration", res.Duration),
	}

	switch {
	case errors.Is(res.Err, context.Canceled):
		e.log.Info("Run cancelled", fields...)
	case errors.Is(res.Err, context.DeadlineExceeded):
		tracing.SetError(ctx, res.Err)
		e.log.Warn("Run timed out", append(fields, zap.Duration("timeout", e.timeout))...)
	case res.ExitStatus == runner.LaunchFailedStatus && res.Err != nil:
		metrics.LaunchErrors.Inc()
		tracing.SetError(ctx, res.Err)
		e.log.Error("Failed to launch binary", append(fields, zap.String("binary", e.binary), zap.Error(res.Err))...)
	case res.Outcome == models.OutcomeCrash:
		e.log.Warn("Binary crashed", fields...)
	case res.Outcome == models.OutcomeUnclassified:
		e.log.Warn("Exit status matched no bucket", fields...)
	default:
		e.log.Debug("Run finished", fields...)
	}
}

func (e *Executor) args(file models.TestFile) []string {
	if e.flag == "" {
		return []string{string(file)}
	}
	return []string{e.flag, string(file)}
}
