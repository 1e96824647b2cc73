package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/report"
	"github.com/roach88/tracks/internal/tracker"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status report",
		Long: `Show every registered unit grouped by status, with task progress,
the current phase, the next pending tasks and recommendations.

Units whose files cannot be read are listed as unavailable; the rest of
the report is still produced.

Examples:
  tracks status
  tracks status --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				rep, err := tr.StatusReport(cmd.Context())
				if err != nil {
					return err
				}
				if f.JSON() {
					return f.Success(rep)
				}
				return report.RenderText(cmd.OutOrStdout(), rep, rootOpts.styles())
			})
		},
	}
	return cmd
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Plan bool // print the plan document
	Spec bool // print the spec document
}

// showData is the JSON payload of show.
type showData struct {
	tracker.Detail
	PlanDocument string `json:"plan_document,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one work unit",
		Long: `Show a unit's metadata, per-phase progress and next pending tasks.

Examples:
  tracks show add-dark-mode
  tracks show add-dark-mode --plan
  tracks show add-dark-mode --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			return opts.withTracker(f, func(tr *tracker.Tracker) error {
				d, err := tr.Show(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if f.JSON() {
					data := showData{Detail: d}
					if !d.NoPlan {
						data.PlanDocument = plan.Render(d.Plan)
					}
					return f.Success(data)
				}
				renderDetail(cmd.OutOrStdout(), d, opts.styles())
				w := cmd.OutOrStdout()
				if opts.Spec {
					fmt.Fprintf(w, "\n%s\n", strings.TrimRight(d.Spec, "\n"))
				}
				if opts.Plan && !d.NoPlan {
					fmt.Fprintf(w, "\n%s", plan.Render(d.Plan))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Plan, "plan", false, "print the plan document")
	cmd.Flags().BoolVar(&opts.Spec, "spec", false, "print the spec document")

	return cmd
}

func renderDetail(w io.Writer, d tracker.Detail, st report.Styles) {
	u := d.Unit
	fmt.Fprintf(w, "%s  %s\n", st.ID.Render(u.ID), u.Title)
	fmt.Fprintf(w, "  status:    %s (since %s)\n", st.Group.Render(u.Status.Label()), u.StatusSince().Format(time.DateOnly))
	fmt.Fprintf(w, "  category:  %s\n", u.Category)
	fmt.Fprintf(w, "  created:   %s\n", u.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  updated:   %s\n", u.UpdatedAt.Format(time.RFC3339))
	if u.RevertedAt != nil {
		fmt.Fprintf(w, "  reverted:  %s\n", u.RevertedAt.Format(time.RFC3339))
	}
	if len(u.Attributes) > 0 {
		pairs := make([]string, 0, len(u.Attributes))
		for _, k := range model.AttributeKeys(u.Attributes) {
			pairs = append(pairs, k+"="+u.Attributes[k])
		}
		fmt.Fprintf(w, "  attributes: %s\n", strings.Join(pairs, ", "))
	}
	if d.NoPlan {
		fmt.Fprintln(w, "  progress:  no plan")
		return
	}
	fmt.Fprintf(w, "  progress:  %d/%d tasks (%d%%)\n", d.Progress.CompletedTasks, d.Progress.TotalTasks, d.Progress.Percent)
	if d.CurrentPhase != "" {
		fmt.Fprintf(w, "  phase:     %s\n", d.CurrentPhase)
	}
	if len(d.Phases) > 0 {
		fmt.Fprintln(w, "\nPhases:")
		for _, ph := range d.Phases {
			mark := " "
			if ph.Completed {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s  %d/%d\n", mark, ph.Name, ph.Progress.CompletedTasks, ph.Progress.TotalTasks)
		}
	}
	if len(d.NextTasks) > 0 {
		fmt.Fprintln(w, "\nNext:")
		for _, p := range d.NextTasks {
			fmt.Fprintf(w, "  %s  %s\n", p.PathLabel, p.Description)
		}
	}
}
