package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/harness"
	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Update      bool   // regenerate golden files
	Filter      string // scenario filter (glob on file name without extension)
	Database    string // archive DSN; empty disables archiving
	StrictStale bool   // stale markers fail the scenario
}

// ScenarioResult holds the outcome of one scenario file.
type ScenarioResult struct {
	Name     string            `json:"name"`
	File     string            `json:"file"`
	RunID    string            `json:"run_id,omitempty"`
	Pass     bool              `json:"pass"`
	Golden   string            `json:"golden,omitempty"` // "match", "mismatch", "updated" or empty when absent
	Findings []matcher.Finding `json:"findings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// VerifyResult holds the overall verify outcome.
type VerifyResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Summary   matcher.Summary  `json:"summary"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <scenarios-dir>",
		Short: "Replay and verify scenarios",
		Long: `Replay every scenario under a directory and verify the captured trace.

Scenario files are .yaml, .yml or .cue. When {dir}/golden/{name}.golden
exists next to a scenario, its snapshot must match as well.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, database unreachable, etc.)

Examples:
  seqcheck verify ./scenarios
  seqcheck verify ./scenarios --filter "paint_*"
  seqcheck verify ./scenarios --update
  seqcheck verify ./scenarios --db runs.db --strict-stale`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", envOr(EnvDatabase, ""), "archive runs to this database (SQLite path or postgres:// URL)")
	cmd.Flags().BoolVar(&opts.StrictStale, "strict-stale", false, "fail scenarios whose soft markers no longer reproduce")

	return cmd
}

func runVerify(ctx context.Context, opts *VerifyOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	formatter := opts.formatter(cmd)
	result := VerifyResult{Scenarios: make([]ScenarioResult, 0, len(files))}

	if len(files) == 0 {
		if formatter.IsJSON() {
			return formatter.Result(result, false, "", "")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	var archive *store.Store
	if opts.Database != "" {
		archive, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer archive.Close()
	}

	logger := opts.logger()
	h := harness.New(harness.Options{Logger: logger})

	for _, file := range files {
		sr, report := verifyScenario(ctx, h, archive, file, opts)
		result.Scenarios = append(result.Scenarios, sr)

		tally(&result.Summary, sr, report)

		if !formatter.IsJSON() {
			printScenario(cmd.OutOrStdout(), sr, report)
		}
	}

	logger.Info("verify finished",
		"passed", result.Summary.Passed,
		"failed", result.Summary.Failed,
		"total", result.Summary.Total,
	)

	failed := !result.Summary.OK()
	message := fmt.Sprintf("%d scenario(s) failed", result.Summary.Failed)
	if formatter.IsJSON() {
		if err := formatter.Result(result, failed, ErrCodeScenarioFailed, message); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), result.Summary)
	}

	if failed {
		return NewExitError(ExitFailure, message)
	}
	return nil
}

// verifyScenario loads, runs, golden-checks and archives one scenario file.
// The report is nil when the scenario could not be run.
func verifyScenario(ctx context.Context, h *harness.Harness, archive *store.Store, file string, opts *VerifyOptions) (ScenarioResult, *matcher.Report) {
	sr := ScenarioResult{Name: scenarioFileName(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("load error: %v", err))
		return sr, nil
	}
	sr.Name = scenario.Name

	res, err := h.Run(ctx, scenario)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("execution error: %v", err))
		return sr, nil
	}
	sr.RunID = res.RunID
	sr.Findings = res.Report.Findings
	sr.Pass = res.Passed()

	if opts.StrictStale && len(res.Report.StaleMarkers()) > 0 {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "stale soft markers (--strict-stale)")
	}

	if err := checkGolden(file, res, opts.Update, &sr); err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
	}

	if archive != nil {
		run := store.NewRun(res.RunID, res.Scenario, res.Events, res.Report)
		if _, err := archive.WriteRun(ctx, run); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("archive error: %v", err))
		}
	}

	return sr, res.Report
}

// checkGolden writes or compares {dir}/golden/{name}.golden. A missing
// golden file is not an error.
func checkGolden(file string, res *harness.Result, update bool, sr *ScenarioResult) error {
	data, err := harness.NewSnapshot(res).Marshal()
	if err != nil {
		return fmt.Errorf("snapshot error: %w", err)
	}
	path := harness.GoldenPath(filepath.Dir(file), res.Scenario)

	if update {
		if err := harness.WriteGolden(path, data); err != nil {
			return err
		}
		sr.Golden = "updated"
		return nil
	}

	match, err := harness.CompareGolden(path, data)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !match {
		sr.Golden = "mismatch"
		return fmt.Errorf("golden file mismatch (run with --update to regenerate)")
	}
	sr.Golden = "match"
	return nil
}

// findScenarioFiles finds all scenario files in a directory, in lexical order.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isScenarioFile(path) {
			return nil
		}

		if filter != "" {
			matched, err := filepath.Match(filter, scenarioFileName(path))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func isScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

func scenarioFileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// tally counts a scenario by its final verdict, which golden, archive and
// strict-stale checks may have overridden.
func tally(s *matcher.Summary, sr ScenarioResult, report *matcher.Report) {
	if report == nil {
		s.Total++
		s.Failed++
		return
	}
	s.Add(report)
	if report.Passed && !sr.Pass {
		s.Passed--
		s.Failed++
	}
}

func printScenario(w io.Writer, sr ScenarioResult, report *matcher.Report) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	suffix := ""
	if sr.Golden == "updated" {
		suffix = " (golden updated)"
	}
	fmt.Fprintf(w, "%s %s%s\n", mark, sr.Name, suffix)
	if report != nil {
		_ = report.Render(w, "  "+sr.Name)
	}
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func printSummary(w io.Writer, s matcher.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Verify Summary: %d passed, %d failed, %d total", s.Passed, s.Failed, s.Total)
	if s.Diagnostics > 0 || s.StaleMarkers > 0 {
		fmt.Fprintf(w, " (%d diagnostics, %d stale markers)", s.Diagnostics, s.StaleMarkers)
	}
	fmt.Fprintln(w)

	if s.OK() {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
