package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/tracker"
	"github.com/roach88/tracks/internal/tui"
)

// NewBoardCommand creates the board command.
func NewBoardCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board",
		Long: `Open a terminal board listing units by status with the selected
unit's plan. Tasks can be checked and statuses changed in place.

Keys: up/down to move, tab to switch between units and tasks, space to
toggle a task, s to start, b to block, r to refresh, ? for help, q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if f.JSON() {
				return f.FailWith(ExitCommandError, ErrCodeUsage, errors.New("board has no json output"))
			}
			return rootOpts.withTracker(f, func(tr *tracker.Tracker) error {
				return tui.Run(cmd.Context(), tr, rootOpts.styles())
			})
		},
	}
	return cmd
}
