package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the events and findings of an archived run",
		Example: `  seqcheck show --db runs.db 01920f4e-7c1a-7cc2-9c1e-5b0c7f6f1d3a
  seqcheck show --db runs.db --format json 01920f4e-7c1a-7cc2-9c1e-5b0c7f6f1d3a`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", envOr(EnvDatabase, ""), "archive database (SQLite path or postgres:// URL)")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openArchive(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := opts.formatter(cmd)

	run, err := st.GetRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if formatter.IsJSON() {
			if ferr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", id), nil); ferr != nil {
				return ferr
			}
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(run)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  scenario: %s\n", run.Scenario)
	fmt.Fprintf(w, "  result:   %s\n", verdict(run.Passed))
	fmt.Fprintf(w, "  seq:      %d\n", run.Seq)
	fmt.Fprintf(w, "  checks:   %d\n", run.Checks)
	if run.Aborted {
		fmt.Fprintln(w, "  aborted:  soft mismatch")
	}

	fmt.Fprintf(w, "\nEvents (%d):\n", len(run.Events))
	for i, e := range run.Events {
		fmt.Fprintf(w, "  %3d  %s\n", i, e)
	}

	fmt.Fprintf(w, "\nFindings (%d):\n", len(run.Findings))
	for _, f := range run.Findings {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}
