// internal/runner/headless.go
package runner

import (
	"context"
	"time"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/output"
)

// RunFunc matches the signature of a bound docgen.Run.
type RunFunc func(ctx context.Context, req docgen.Request) (*docgen.Result, error)

// HeadlessRunner executes a single documentation run and collects a report.
type HeadlessRunner struct {
	run RunFunc
	now func() time.Time
}

// NewHeadlessRunner creates a new HeadlessRunner with the given run function.
func NewHeadlessRunner(run RunFunc) *HeadlessRunner {
	return &HeadlessRunner{run: run, now: time.Now}
}

// Run executes req and returns its report. A fatal run error is recorded
// in the report and also returned so callers can pick an exit code.
func (r *HeadlessRunner) Run(ctx context.Context, source string, req docgen.Request) (*output.RunReport, error) {
	start := r.now()
	res, err := r.run(ctx, req)
	report := &output.RunReport{
		Result:     res,
		Source:     source,
		DurationMs: r.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		report.Result = nil
		report.Error = err.Error()
		return report, err
	}
	return report, nil
}
