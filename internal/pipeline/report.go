package pipeline

import (
	"encoding/json"
	"sync"
)

// UnitResult is the outcome of one unit of work (a file, a chunk or a
// composed section). Err is nil on success.
type UnitResult struct {
	Stage   string
	Unit    string
	Err     error
	Skipped bool // nothing to do for the unit; never set together with Err
}

// OK reports whether the unit succeeded.
func (r UnitResult) OK() bool { return r.Err == nil }

// MarshalJSON renders Err as its message.
func (r UnitResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Stage   string `json:"stage"`
		Unit    string `json:"unit"`
		Error   string `json:"error,omitempty"`
		Skipped bool   `json:"skipped,omitempty"`
	}{Stage: r.Stage, Unit: r.Unit, Skipped: r.Skipped}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Report collects unit results for a run.
type Report struct {
	mu      sync.Mutex
	results []UnitResult
}

// NewReport returns an empty report.
func NewReport() *Report { return &Report{} }

// Succeed records a successful unit.
func (r *Report) Succeed(stage, unit string) {
	r.add(UnitResult{Stage: stage, Unit: unit})
}

// Fail records a failed unit.
func (r *Report) Fail(stage, unit string, err error) {
	r.add(UnitResult{Stage: stage, Unit: unit, Err: err})
}

// Skip records a unit that needed no work.
func (r *Report) Skip(stage, unit string) {
	r.add(UnitResult{Stage: stage, Unit: unit, Skipped: true})
}

func (r *Report) add(u UnitResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, u)
}

// Results returns every recorded result in insertion order.
func (r *Report) Results() []UnitResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UnitResult, len(r.results))
	copy(out, r.results)
	return out
}

// Failures returns the failed units in insertion order.
func (r *Report) Failures() []UnitResult {
	return r.filter(func(u UnitResult) bool { return u.Err != nil })
}

// Succeeded returns the units of stage that succeeded.
func (r *Report) Succeeded(stage string) []string {
	return units(r.filter(func(u UnitResult) bool { return u.Stage == stage && u.Err == nil && !u.Skipped }))
}

// Skipped returns the units of stage that were skipped.
func (r *Report) Skipped(stage string) []string {
	return units(r.filter(func(u UnitResult) bool { return u.Stage == stage && u.Skipped }))
}

// Failed returns the units of stage that failed.
func (r *Report) Failed(stage string) []string {
	return units(r.filter(func(u UnitResult) bool { return u.Stage == stage && u.Err != nil }))
}

func (r *Report) filter(keep func(UnitResult) bool) []UnitResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []UnitResult
	for _, u := range r.results {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

func units(rs []UnitResult) []string {
	out := make([]string, 0, len(rs))
	for _, u := range rs {
		out = append(out, u.Unit)
	}
	return out
}
