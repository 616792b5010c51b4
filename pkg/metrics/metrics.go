package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every sqljob metric. It is separate from the default
// registry so a push only carries batch metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// FilesDiscovered is the number of test files found for the batch.
	FilesDiscovered = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqljob",
			Name:      "files_discovered",
			Help:      "Number of test files discovered for the batch",
		},
	)

	// RunsTotal counts finished runs by outcome.
	RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sqljob",
			Name:      "runs_total",
			Help:      "Total number of test file runs by outcome",
		},
		[]string{"outcome"},
	)

	// RunDuration tracks wall time of a single run.
	RunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sqljob",
			Name:      "run_duration_seconds",
			Help:      "Duration of a single test file run in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
		},
		[]string{"outcome"},
	)

	// RunsInFlight tracks children currently running.
	RunsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqljob",
			Name:      "runs_in_flight",
			Help:      "Number of test file runs currently executing",
		},
	)

	// LaunchErrors counts children that could not be started.
	LaunchErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sqljob",
			Name:      "launch_errors_total",
			Help:      "Total number of runs where the binary could not be started",
		},
	)

	// BatchDuration is the wall time of the last batch.
	BatchDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqljob",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of the last batch in seconds",
		},
	)

	// LastSuccess is set when a batch finishes without failures or crashes.
	LastSuccess = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqljob",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last batch without failures or crashes",
		},
	)
)

// RecordRun records metrics for a completed run.
func RecordRun(outcome string, durationSeconds float64) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordBatch records the end of a batch.
func RecordBatch(duration time.Duration, clean bool) {
	BatchDuration.Set(duration.Seconds())
	if clean {
		LastSuccess.SetToCurrentTime()
	}
}

// Push replaces the sqljob group on a Prometheus Pushgateway with the
// current registry.
func Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(Registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
