package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/revert"
	"github.com/roach88/tracks/internal/tracker"
)

// NewSetStatusCommand creates the set-status command.
func NewSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	statuses := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		statuses[i] = string(s)
	}

	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Set a unit's status",
		Long: `Set a unit's status explicitly, for example to mark it blocked or
cancelled.

Statuses: ` + strings.Join(statuses, ", ") + `

Examples:
  tracks set-status add-dark-mode blocked`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: statuses,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				unit, err := tr.SetStatus(cmd.Context(), args[0], model.Status(args[1]))
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(unit)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", unit.ID, unit.Status.Label())
				return nil
			})
		},
	}
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a work unit",
		Long: `Remove a unit's directory and its registry row. Deleting a unit that
does not exist succeeds.

Examples:
  tracks delete add-dark-mode`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				if err := tr.DeleteWorkUnit(cmd.Context(), args[0]); err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(map[string]string{"id": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

// RevertOptions holds flags for the revert command.
type RevertOptions struct {
	*RootOptions
	Commits bool
	DryRun  bool
	Repo    string
	Terms   []string
}

// revertResult is the JSON payload of revert.
type revertResult struct {
	Unit       *model.WorkUnit    `json:"unit,omitempty"`
	Candidates []revert.Candidate `json:"candidates,omitempty"`
}

// NewRevertCommand creates the revert command.
func NewRevertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RevertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "revert <id>",
		Short: "Mark a unit reverted and reset its plan",
		Long: `Mark a unit reverted and uncheck every task in its plan.

With --commits, first list the git commits that likely belong to the
unit so they can be reverted by hand. tracks never runs a mutating git
command. --dry-run lists the commits without changing the unit.

Examples:
  tracks revert add-dark-mode
  tracks revert add-dark-mode --commits --term dark-mode
  tracks revert add-dark-mode --dry-run --repo ../app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevert(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Commits, "commits", false, "list candidate commits before reverting")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list candidate commits only")
	cmd.Flags().StringVar(&opts.Repo, "repo", ".", "git repository to search")
	cmd.Flags().StringArrayVar(&opts.Terms, "term", nil, "extra search term, such as a branch name (repeatable)")

	return cmd
}

func runRevert(cmd *cobra.Command, opts *RevertOptions, id string) error {
	f := opts.formatter(cmd)
	return opts.withTracker(f, func(tr *tracker.Tracker) error {
		var res revertResult
		if opts.Commits || opts.DryRun {
			git := opts.Git
			if git == nil {
				git = revert.ExecGit{Dir: opts.Repo}
			}
			candidates, err := tr.RevertCandidates(cmd.Context(), id, git, revert.Hints{Terms: opts.Terms})
			if err != nil {
				return err
			}
			res.Candidates = candidates
		}
		if !opts.DryRun {
			unit, err := tr.RevertWorkUnit(cmd.Context(), id)
			if err != nil {
				return err
			}
			res.Unit = &unit
		}

		if f.JSON() {
			return f.Success(res)
		}
		w := cmd.OutOrStdout()
		if opts.Commits || opts.DryRun {
			if len(res.Candidates) == 0 {
				fmt.Fprintln(w, "No candidate commits found.")
			} else {
				fmt.Fprintln(w, "Candidate commits (best match first):")
				for _, c := range res.Candidates {
					fmt.Fprintf(w, "  %s  %s  [%s]\n", shortHash(c.Commit.Hash), c.Commit.Subject, strings.Join(c.Reasons, ", "))
				}
			}
		}
		if res.Unit != nil {
			fmt.Fprintf(w, "Reverted %s; plan reset\n", res.Unit.ID)
		}
		return nil
	})
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
