package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/seqcheck/internal/logging"
	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/runid"
	"github.com/roach88/seqcheck/internal/trace"
)

// Options configure a Harness.
type Options struct {
	// Logger receives run and delivery logs. Defaults to a discard logger.
	Logger *slog.Logger

	// RunIDs generates run ids for scenarios that do not pin one.
	// Defaults to runid.UUIDv7.
	RunIDs runid.Generator
}

// Harness runs scenarios against one shared trace log, the way a test
// binary reuses a single global buffer across its scenarios.
//
// A Harness is not safe for concurrent Run calls.
type Harness struct {
	log    *trace.Log
	logger *slog.Logger
	runIDs runid.Generator
}

// New creates a Harness.
func New(opts Options) *Harness {
	h := &Harness{
		log:    trace.New(),
		logger: opts.Logger,
		runIDs: opts.RunIDs,
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	if h.runIDs == nil {
		h.runIDs = runid.UUIDv7{}
	}
	return h
}

// Run executes a scenario in a fresh Harness.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	return New(opts).Run(ctx, scenario)
}

// Run replays the scenario's steps into the shared log, drains it and
// verifies the drained events against the expected sequence.
//
// Execution flow:
//  1. Compile the scenario (ids, flags, expected sequence)
//  2. Reset the log, discarding anything a previous run left behind
//  3. Deliver each step, then pump any posted events still queued
//  4. Drain the log and verify
//
// An error means the scenario could not be executed. Verification
// failures are reported in Result.Report, not as errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	plan, err := scenario.Compile()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	id := scenario.RunID
	if id == "" {
		id = h.runIDs.Generate()
	}
	logger := h.logger.With("scenario", scenario.Name, "run_id", id)

	if stale := h.log.Reset(); stale > 0 {
		logger.Warn("discarded events left in trace log", "events", stale)
	}

	driver := NewDriver(h.log, logger)
	defer driver.Close()

	for i, step := range plan.Steps {
		if err := driver.Deliver(ctx, step); err != nil {
			h.log.DrainAndReset()
			return nil, fmt.Errorf("scenario %q: step %d: %w", scenario.Name, i, err)
		}
	}
	logger.Debug("quiescing", "pending", driver.Pending())
	if err := driver.Quiesce(ctx); err != nil {
		h.log.DrainAndReset()
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	report, events, err := matcher.VerifyLog(h.log, plan.Expected, plan.Options)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	logger.Debug("scenario verified",
		"events", len(events),
		"checks", report.Checks,
		"findings", len(report.Findings),
		"passed", report.Passed,
	)

	return &Result{
		RunID:    id,
		Scenario: scenario.Name,
		Events:   events,
		Report:   report,
		Steps:    driver.Steps(),
		Catalog:  plan.Catalog,
	}, nil
}
