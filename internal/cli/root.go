package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/config"
	"github.com/roach88/tracks/internal/report"
	"github.com/roach88/tracks/internal/revert"
	"github.com/roach88/tracks/internal/tracker"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Root    string // tracks root; empty means TRACKS_ROOT or .tracks
	NoColor bool

	// Clock, IDs and Git replace the real collaborators in tests.
	Clock func() time.Time
	IDs   tracker.IDGenerator
	Git   revert.GitLog

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tracks CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around preset options.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "tracks - work units, plans and progress in plain files",
		Long: `Track features, bug fixes and other work units as directories of plain
files: a metadata record, a spec and a checkbox plan, summarised in a
registry table and a status report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Root, "root", "", "tracks root directory (default $"+config.RootEnv+" or "+config.DefaultRoot+")")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewNewCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewDoneCommand(opts))
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewSetStatusCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewRevertCommand(opts))
	cmd.AddCommand(NewRebuildCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewBoardCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openTracker opens the tracker for the resolved root.
func (o *RootOptions) openTracker() (*tracker.Tracker, error) {
	logger := o.log()
	topts := []tracker.Option{tracker.WithLogger(logger)}
	if o.Clock != nil {
		topts = append(topts, tracker.WithClock(o.Clock))
	}
	if o.IDs != nil {
		topts = append(topts, tracker.WithIDGenerator(o.IDs))
	}
	root := config.ResolveRoot(o.Root)
	logger.Debug("opening tracks root", "path", root)
	return tracker.Open(root, topts...)
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// styles picks the status styles for text output.
func (o *RootOptions) styles() report.Styles {
	if o.NoColor {
		return report.PlainStyles()
	}
	return report.DefaultStyles()
}

// withTracker opens the tracker, runs fn and closes it. Errors from fn and
// from opening are reported through f.
func (o *RootOptions) withTracker(f *OutputFormatter, fn func(tr *tracker.Tracker) error) error {
	tr, err := o.openTracker()
	if err != nil {
		return f.Fail(err)
	}
	defer func() {
		if closeErr := tr.Close(); closeErr != nil {
			o.log().Error("error closing journal", "error", closeErr)
		}
	}()
	if err := fn(tr); err != nil {
		if IsReported(err) {
			return err
		}
		return f.Fail(err)
	}
	return nil
}
