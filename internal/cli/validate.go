package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File     string `json:"file"`
	Scenario string `json:"scenario,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenario files without running them",
		Long: `Parse every scenario file and check it without replaying anything.

Checks field names, flags, id names, step shapes and the expected
sequence, and rejects two files that declare the same scenario name
(they would share a golden file).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	seen := make(map[string]string)

	for _, file := range files {
		fv := validateFile(file, seen)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	formatter := opts.formatter(cmd)
	invalid := 0
	for _, fv := range result.Files {
		if !fv.Valid {
			invalid++
		}
	}
	message := fmt.Sprintf("%d invalid scenario file(s)", invalid)

	if formatter.IsJSON() {
		if err := formatter.Result(result, !result.Valid, ErrCodeInvalidScenario, message); err != nil {
			return err
		}
	} else {
		printValidation(cmd.OutOrStdout(), result, invalid)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, message)
	}
	return nil
}

func validateFile(file string, seen map[string]string) FileValidation {
	fv := FileValidation{File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		fv.Error = err.Error()
		return fv
	}
	fv.Scenario = scenario.Name

	plan, err := scenario.Compile()
	if err == nil {
		err = plan.Expected.Validate()
	}
	if err != nil {
		fv.Error = err.Error()
		return fv
	}

	if other, dup := seen[scenario.Name]; dup {
		fv.Error = fmt.Sprintf("scenario name %q already used by %s", scenario.Name, other)
		return fv
	}
	seen[scenario.Name] = file

	fv.Valid = true
	return fv
}

func printValidation(w io.Writer, result ValidationResult, invalid int) {
	if len(result.Files) == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s\n", fv.File)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n  %s\n", fv.File, fv.Error)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Validated %d scenario file(s), %d invalid\n", len(result.Files), invalid)
}
