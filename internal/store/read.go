package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/trace"
)

// Filter narrows ListRuns.
type Filter struct {
	// Scenario keeps only runs of this scenario when set.
	Scenario string

	// FailedOnly keeps only runs that did not pass.
	FailedOnly bool

	// Limit caps the result to the most recent runs. Zero means no limit.
	Limit int
}

// ListRuns returns run summaries in recorded order (oldest first).
// Events and findings are not loaded; use GetRun for those.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, f.Scenario)
	}
	if f.FailedOnly {
		where = append(where, "passed = 0")
	}

	query := `SELECT id, scenario, passed, aborted, checks, event_count, recorded_seq FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		// Newest N, then flipped back to recorded order.
		query = `SELECT * FROM (` + query + ` ORDER BY recorded_seq DESC LIMIT ?) AS recent`
		args = append(args, f.Limit)
	}
	query += " ORDER BY recorded_seq ASC"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its events and findings.
// Returns ErrNotFound if the id is not archived.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		SELECT id, scenario, passed, aborted, checks, event_count, recorded_seq
		FROM runs WHERE id = ?
	`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	if run.Events, err = s.readEvents(ctx, id); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if run.Findings, err = s.readFindings(ctx, id); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run             Run
		passed, aborted int64
	)
	if err := sc.Scan(&run.ID, &run.Scenario, &passed, &aborted, &run.Checks, &run.EventCount, &run.Seq); err != nil {
		return Run{}, err
	}
	run.Passed = passed != 0
	run.Aborted = aborted != 0
	return run, nil
}

func (s *Store) readEvents(ctx context.Context, id string) ([]trace.Event, error) {
	rows, err := s.query(ctx, `
		SELECT event_id, flags, param_a, param_b
		FROM run_events WHERE run_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var eventID, flags int64
		var e trace.Event
		if err := rows.Scan(&eventID, &flags, &e.ParamA, &e.ParamB); err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		e.ID = uint32(eventID)
		e.Flags = trace.Flags(flags)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) readFindings(ctx context.Context, id string) ([]matcher.Finding, error) {
	rows, err := s.query(ctx, `
		SELECT position, kind, message
		FROM run_findings WHERE run_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read findings: %w", err)
	}
	defer rows.Close()

	findings := []matcher.Finding{}
	for rows.Next() {
		var f matcher.Finding
		var kind string
		if err := rows.Scan(&f.Position, &kind, &f.Message); err != nil {
			return nil, fmt.Errorf("read findings: %w", err)
		}
		f.Kind = matcher.Kind(kind)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
