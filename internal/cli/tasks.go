package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/progress"
	"github.com/roach88/tracks/internal/tracker"
)

// taskResult is the JSON payload of done and undo.
type taskResult struct {
	ID       string            `json:"id"`
	Path     string            `json:"path"`
	Done     bool              `json:"done"`
	Status   model.Status      `json:"status"`
	Progress progress.Progress `json:"progress"`
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return newTaskCommand(rootOpts, true)
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	return newTaskCommand(rootOpts, false)
}

func newTaskCommand(rootOpts *RootOptions, done bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id> <path>",
		Short: "Check a task",
		Long: `Check the task at path, a 1-based dotted address such as 2.1 (phase 2,
task 1) or 2.1.3 for a subtask.

Checking the first task of a planning unit starts it; checking the last
task completes it.

Examples:
  tracks done add-dark-mode 1.2
  tracks done add-dark-mode 2.1.3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetTask(cmd, rootOpts, args[0], args[1], done)
		},
	}
	if !done {
		cmd.Use = "undo <id> <path>"
		cmd.Short = "Uncheck a task"
		cmd.Long = `Uncheck the task at path, a 1-based dotted address such as 2.1.

Examples:
  tracks undo add-dark-mode 1.2`
	}
	return cmd
}

func runSetTask(cmd *cobra.Command, opts *RootOptions, id, pathArg string, done bool) error {
	f := opts.formatter(cmd)
	path, err := plan.ParseTaskPath(pathArg)
	if err != nil {
		return f.Fail(err)
	}
	return opts.withTracker(f, func(tr *tracker.Tracker) error {
		unit, p, err := tr.SetTaskDone(cmd.Context(), id, path, done)
		if err != nil {
			return err
		}
		prog := progress.Of(p)
		if f.JSON() {
			return f.Success(taskResult{
				ID:       unit.ID,
				Path:     path.String(),
				Done:     done,
				Status:   unit.Status,
				Progress: prog,
			})
		}
		verb := "Checked"
		if !done {
			verb = "Unchecked"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s: %d/%d tasks (%d%%), %s\n",
			verb, path, unit.ID, prog.CompletedTasks, prog.TotalTasks, prog.Percent, unit.Status.Label())
		return nil
	})
}

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	File string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <id>",
		Short: "Print or replace a unit's plan",
		Long: `Print the unit's plan in canonical form, or replace it with --file.

A replacement that does not parse is rejected and the current plan is
left untouched.

Examples:
  tracks plan add-dark-mode
  tracks plan add-dark-mode --file plan.md
  cat plan.md | tracks plan add-dark-mode --file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "replacement plan document (- for stdin)")

	return cmd
}

func runPlan(cmd *cobra.Command, opts *PlanOptions, id string) error {
	f := opts.formatter(cmd)
	var text string
	if opts.File != "" {
		var err error
		if text, err = readDocument(cmd, opts.File); err != nil {
			return f.FailWith(ExitCommandError, ErrCodeUsage, err)
		}
	}
	return opts.withTracker(f, func(tr *tracker.Tracker) error {
		var p plan.Plan
		var err error
		if opts.File != "" {
			p, err = tr.ReplacePlan(cmd.Context(), id, text)
		} else {
			if err = model.ValidateID("plan", id); err != nil {
				return err
			}
			p, err = tr.Store().LoadPlan(id)
		}
		if err != nil {
			return err
		}
		rendered := plan.Render(p)
		if f.JSON() {
			return f.Success(map[string]interface{}{
				"id":       id,
				"plan":     rendered,
				"progress": progress.Of(p),
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	})
}
