package matcher

import (
	"fmt"
	"io"
)

// Kind classifies a Finding.
type Kind string

const (
	// KindFailure fails the scenario.
	KindFailure Kind = "failure"
	// KindDiagnostic records a known discrepancy without failing.
	KindDiagnostic Kind = "diagnostic"
	// KindStaleMarker flags a soft marker that no longer reproduces.
	KindStaleMarker Kind = "stale-marker"
)

// ScenarioPosition is the Position of findings about the scenario as a whole.
const ScenarioPosition = -1

// Finding is one line of verification output.
type Finding struct {
	// Position is the index into the expected sequence, or ScenarioPosition.
	Position int    `json:"position"`
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
}

// String renders "[3] failure: expected ...".
func (f Finding) String() string {
	pos := "-"
	if f.Position != ScenarioPosition {
		pos = fmt.Sprintf("%d", f.Position)
	}
	return fmt.Sprintf("[%s] %s: %s", pos, f.Kind, f.Message)
}

// Report is the outcome of one Verify call.
type Report struct {
	// Findings are ordered as they were produced.
	Findings []Finding `json:"findings"`

	// Checks counts individual comparisons: ids, flag bits and params.
	Checks int `json:"checks"`

	// Passed is true when no finding is a failure.
	Passed bool `json:"passed"`

	// Aborted is set when a soft mismatch stopped the comparison early.
	Aborted bool `json:"aborted,omitempty"`
}

func newReport() *Report {
	return &Report{Findings: []Finding{}}
}

func (r *Report) add(pos int, kind Kind, msg string) {
	r.Findings = append(r.Findings, Finding{Position: pos, Kind: kind, Message: msg})
}

// Failures returns the failing findings.
func (r *Report) Failures() []Finding {
	return r.filter(KindFailure)
}

// Diagnostics returns the non-fatal known-discrepancy findings.
func (r *Report) Diagnostics() []Finding {
	return r.filter(KindDiagnostic)
}

// StaleMarkers returns the findings that ask for a soft marker to be removed.
func (r *Report) StaleMarkers() []Finding {
	return r.filter(KindStaleMarker)
}

func (r *Report) filter(kind Kind) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Render writes one line per finding, prefixed with name.
func (r *Report) Render(w io.Writer, name string) error {
	for _, f := range r.Findings {
		if _, err := fmt.Fprintf(w, "%s: %s\n", name, f); err != nil {
			return err
		}
	}
	return nil
}

// Summary aggregates reports across scenarios.
type Summary struct {
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Total        int `json:"total"`
	Diagnostics  int `json:"diagnostics"`
	StaleMarkers int `json:"stale_markers"`
}

// Add folds r into the summary.
func (s *Summary) Add(r *Report) {
	s.Total++
	if r.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
	s.Diagnostics += len(r.Diagnostics())
	s.StaleMarkers += len(r.StaleMarkers())
}

// OK reports whether every scenario passed.
func (s Summary) OK() bool {
	return s.Failed == 0
}
