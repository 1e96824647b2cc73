package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/config"
	"github.com/roach88/tracks/internal/journal"
	"github.com/roach88/tracks/internal/registry"
	"github.com/roach88/tracks/internal/tracker"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a tracks root",
		Long: `Create the tracks root with its units directory, journal and a
commented default config.yaml. An existing config is left alone.

Examples:
  tracks init
  tracks --root docs/tracks init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				root := tr.Store().Root()
				written, err := config.WriteDefault(root)
				if err != nil {
					return err
				}
				if _, err := tr.StatusReport(cmd.Context()); err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(map[string]interface{}{
						"root":           root,
						"config_written": written,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized tracks root at %s\n", root)
				if !written {
					fmt.Fprintf(cmd.OutOrStdout(), "  kept existing %s\n", config.Path(root))
				}
				return nil
			})
		},
	}
	return cmd
}

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the registry from unit metadata",
		Long: `Regenerate the registry from every unit's metadata. Units whose
metadata cannot be read are skipped and listed.

Examples:
  tracks rebuild`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				res, err := tr.RebuildRegistry(cmd.Context())
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(res)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Rebuilt registry: %d rows\n", res.Rows)
				for _, p := range res.Skipped {
					fmt.Fprintf(w, "  skipped %s: %s\n", p.ID, p.Error)
				}
				return nil
			})
		},
	}
	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the registry with unit metadata",
		Long: `Report units missing from the registry, rows whose unit is gone and
rows that disagree with their unit's metadata. Nothing is modified; run
rebuild to repair.

Exit codes:
  0 - Registry consistent
  1 - Drift found
  2 - Command error (unreadable registry, etc.)

Examples:
  tracks check
  tracks check --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				drift, err := tr.Check(cmd.Context())
				if err != nil {
					return err
				}
				if !drift.Empty() {
					return reportDrift(f, cmd, drift)
				}
				if f.JSON() {
					return f.Success(drift)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Registry consistent")
				return nil
			})
		},
	}
	return cmd
}

func reportDrift(f *OutputFormatter, cmd *cobra.Command, d registry.Drift) error {
	var parts []string
	if len(d.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(d.Missing, ", "))
	}
	if len(d.Orphaned) > 0 {
		parts = append(parts, "orphaned: "+strings.Join(d.Orphaned, ", "))
	}
	if len(d.Stale) > 0 {
		parts = append(parts, "stale: "+strings.Join(d.Stale, ", "))
	}
	msg := "registry drift (" + strings.Join(parts, "; ") + ")"
	if f.JSON() {
		_ = f.Error(ErrCodeDrift, msg, d)
	} else {
		_ = f.Error(ErrCodeDrift, msg, nil)
		fmt.Fprintln(cmd.OutOrStdout(), "Run 'tracks rebuild' to repair.")
	}
	return &ExitError{Code: ExitFailure, Message: ErrCodeDrift, Err: errors.New(msg), Reported: true}
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show recorded transitions",
		Long: `Show the journal of lifecycle transitions for one unit, oldest first,
or the most recent transitions across all units, newest first.

Examples:
  tracks history add-dark-mode
  tracks history --limit 50`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			return opts.withTracker(f, func(tr *tracker.Tracker) error {
				var (
					entries []journal.Entry
					err     error
				)
				if len(args) == 1 {
					entries, err = tr.History(cmd.Context(), args[0])
				} else {
					entries, err = tr.RecentHistory(cmd.Context(), opts.Limit)
				}
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(entries)
				}
				w := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(w, "No history recorded.")
					return nil
				}
				for _, e := range entries {
					line := fmt.Sprintf("%5d  %s  %-20s %-16s", e.Seq, e.At.Format(time.RFC3339), e.UnitID, e.Event)
					if e.From != "" || e.To != "" {
						line += fmt.Sprintf(" %s -> %s", e.From, e.To)
					}
					if e.Detail != "" {
						line += "  " + e.Detail
					}
					fmt.Fprintln(w, strings.TrimRight(line, " "))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "entries to show across all units")

	return cmd
}
