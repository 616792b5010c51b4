package models

import (
	"sort"
	"time"
)

// TestFile is the path of one SQL input case, exactly as discovered.
type TestFile string

// Outcome is the bucket a test file lands in after its run.
type Outcome string

const (
	OutcomeSuccess      Outcome = "SUCCESS"
	OutcomeFailure      Outcome = "FAILURE"
	OutcomeCrash        Outcome = "CRASH"
	OutcomeUnclassified Outcome = "UNCLASSIFIED"
)

// RunResult is the observed outcome of running the binary once on a TestFile.
type RunResult struct {
	File       TestFile      `json:"file"`
	ExitStatus int           `json:"exit_status"`
	Outcome    Outcome       `json:"outcome"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"` // launch failure or cancellation
}

// Report is the tally of a whole batch.
// It is filled by a single owner and is read-only once returned.
type Report struct {
	RunID        string        `json:"run_id"`
	Discovered   int           `json:"discovered"`
	Successes    []TestFile    `json:"successes"`
	Failures     []TestFile    `json:"failures"`
	Crashes      []TestFile    `json:"crashes"`
	Unclassified []TestFile    `json:"unclassified"`
	Results      []RunResult   `json:"results"` // completion order
	Duration     time.Duration `json:"duration"`
	Interrupted  bool          `json:"interrupted"`
}

// NewReport returns an empty tally for the given batch.
func NewReport(runID string, discovered int) *Report {
	return &Report{
		RunID:      runID,
		Discovered: discovered,
		Results:    make([]RunResult, 0, discovered),
	}
}

// Add appends a result to the bucket named by its outcome.
func (r *Report) Add(res RunResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeSuccess:
		r.Successes = append(r.Successes, res.File)
	case OutcomeFailure:
		r.Failures = append(r.Failures, res.File)
	case OutcomeCrash:
		r.Crashes = append(r.Crashes, res.File)
	default:
		r.Unclassified = append(r.Unclassified, res.File)
	}
}

// Sort orders every bucket lexicographically by path.
func (r *Report) Sort() {
	for _, list := range [][]TestFile{r.Successes, r.Failures, r.Crashes, r.Unclassified} {
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	}
}

// Processed is the number of files that produced a result.
func (r *Report) Processed() int {
	return len(r.Results)
}

// Count returns the size of the bucket for an outcome.
func (r *Report) Count(o Outcome) int {
	switch o {
	case OutcomeSuccess:
		return len(r.Successes)
	case OutcomeFailure:
		return len(r.Failures)
	case OutcomeCrash:
		return len(r.Crashes)
	case OutcomeUnclassified:
		return len(r.Unclassified)
	}
	return 0
}

// Process exit codes of the harness.
const (
	ExitClean       = 0
	ExitFailures    = 1
	ExitCrashes     = 2
	ExitConfigError = 3
	ExitInterrupted = 130
)

// ExitCode maps the tally to the harness exit code. Crashes dominate
// failures; unclassified results count as failures.
func (r *Report) ExitCode() int {
	switch {
	case r.Interrupted:
		return ExitInterrupted
	case len(r.Crashes) > 0:
		return ExitCrashes
	case len(r.Failures) > 0 || len(r.Unclassified) > 0:
		return ExitFailures
	default:
		return ExitClean
	}
}
