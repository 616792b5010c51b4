package report

import (
	"bufio"
	"fmt"
	"io"

	"sqljob/pkg/models"
)

// Summarize writes the end-of-batch summary: counts, then the sorted failing
// paths, then the sorted crashing paths.
func Summarize(w io.Writer, r *models.Report) error {
	r.Sort()

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Job's done")
	fmt.Fprintf(bw, "Successes: %d Failures: %d Segfaults: %d\n",
		r.Count(models.OutcomeSuccess), r.Count(models.OutcomeFailure), r.Count(models.OutcomeCrash))
	if n := r.Count(models.OutcomeUnclassified); n > 0 {
		fmt.Fprintf(bw, "Unclassified: %d\n", n)
	}

	fmt.Fprintln(bw, "Failed:")
	for _, file := range r.Failures {
		fmt.Fprintln(bw, file)
	}

	fmt.Fprintln(bw, "Segfaults:")
	for _, file := range r.Crashes {
		fmt.Fprintln(bw, file)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// Progress prints the per-file lines that appear while the batch runs.
type Progress struct {
	w io.Writer
}

func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Start prints the working directory the batch runs from.
func (p *Progress) Start(cwd string) {
	fmt.Fprintln(p.w, cwd)
}

// Result prints the raw exit status of one finished file.
func (p *Progress) Result(res models.RunResult) {
	fmt.Fprintln(p.w, res.ExitStatus)
}
