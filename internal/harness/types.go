package harness

import (
	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/trace"
)

// Result is the outcome of running one scenario.
type Result struct {
	// RunID identifies this run in the archive.
	RunID string `json:"run_id"`

	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Events are the drained trace, in arrival order.
	Events []trace.Event `json:"events"`

	// Report holds the verification findings.
	Report *matcher.Report `json:"report"`

	// Steps counts delivered steps.
	Steps int64 `json:"steps"`

	// Catalog resolves ids to names for rendering. Nil when the scenario
	// declared no names.
	Catalog *trace.Catalog `json:"-"`
}

// Passed reports whether verification produced no failures.
func (r *Result) Passed() bool {
	return r.Report != nil && r.Report.Passed
}
