package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/logging"
)

// Environment variables consulted when a flag is not given.
const (
	EnvFormat   = "SEQCHECK_FORMAT"
	EnvLogLevel = "SEQCHECK_LOG_LEVEL"
	EnvDatabase = "SEQCHECK_DB"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string

	// Logger is built from LogLevel and Format before any command runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the seqcheck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "seqcheck",
		Short: "seqcheck - event sequence verification",
		Long: `Replay recorded event traces and verify them against expected sequences.

Scenarios describe what a system under test delivered and what it should
have delivered. seqcheck reports every divergence, keeps golden snapshots
next to the scenarios and can archive runs in SQLite or PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			level := opts.LogLevel
			if opts.Verbose && !cmd.Flags().Changed("log-level") {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{
				Level:  level,
				Format: opts.Format,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid logging configuration", err)
			}
			opts.Logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (implies --log-level debug)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", envOr(EnvFormat, "text"), "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", envOr(EnvLogLevel, "warn"), "log level (debug|info|warn|error)")

	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

// logger returns the configured logger, or a discard logger when a
// subcommand runs without the root (as in tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
