package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/trace"
)

// Run is one archived verification run.
type Run struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Passed   bool   `json:"passed"`
	Aborted  bool   `json:"aborted,omitempty"`
	Checks   int    `json:"checks"`

	// EventCount is len(Events) for runs returned by GetRun and the stored
	// count for ListRuns summaries, which leave Events empty.
	EventCount int `json:"event_count"`

	// Seq is the archive's logical clock, assigned by WriteRun.
	Seq int64 `json:"recorded_seq"`

	Events   []trace.Event     `json:"events,omitempty"`
	Findings []matcher.Finding `json:"findings,omitempty"`
}

// NewRun builds an archive record from a verification outcome.
func NewRun(id, scenario string, events []trace.Event, report *matcher.Report) Run {
	r := Run{
		ID:         id,
		Scenario:   scenario,
		EventCount: len(events),
		Events:     events,
	}
	if report != nil {
		r.Passed = report.Passed
		r.Aborted = report.Aborted
		r.Checks = report.Checks
		r.Findings = report.Findings
	}
	return r
}

// WriteRun archives a run with its events and findings in one transaction
// and returns the recorded sequence number.
//
// Writing a run id that is already archived is a no-op; the existing
// sequence number is returned.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		rebind(s.dialect, `SELECT recorded_seq FROM runs WHERE id = ?`), run.ID,
	).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("write run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(recorded_seq), 0) + 1 FROM runs`,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	if _, err := s.exec(ctx, tx, `
		INSERT INTO runs (id, scenario, passed, aborted, checks, event_count, recorded_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Scenario,
		boolInt(run.Passed),
		boolInt(run.Aborted),
		run.Checks,
		len(run.Events),
		seq,
	); err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	for i, e := range run.Events {
		if _, err := s.exec(ctx, tx, `
			INSERT INTO run_events (run_id, idx, event_id, flags, param_a, param_b)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			run.ID, i, int64(e.ID), int64(e.Flags), e.ParamA, e.ParamB,
		); err != nil {
			return 0, fmt.Errorf("write run: event %d: %w", i, err)
		}
	}

	for i, f := range run.Findings {
		if _, err := s.exec(ctx, tx, `
			INSERT INTO run_findings (run_id, idx, position, kind, message)
			VALUES (?, ?, ?, ?, ?)
		`,
			run.ID, i, f.Position, string(f.Kind), f.Message,
		); err != nil {
			return 0, fmt.Errorf("write run: finding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
