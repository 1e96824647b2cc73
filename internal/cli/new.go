package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/tracker"
)

// NewOptions holds flags for the new command.
type NewOptions struct {
	*RootOptions
	ID         string
	Category   string
	Attributes []string // key=value pairs
	SpecFile   string
	PlanFile   string
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "new <title...>",
		Short: "Create a work unit",
		Long: `Create a work unit in status planning and add it to the registry.

The id is derived from the title unless --id is given. The spec and plan
start empty unless --spec-file or --plan-file name a document; "-" reads
the document from stdin.

Exit codes:
  0 - Unit created
  2 - Command error (id taken, malformed plan, invalid input)

Examples:
  tracks new "Add dark mode"
  tracks new --category bugfix --attr issue=142 "Fix login redirect"
  tracks new --id auth-rework --plan-file plan.md "Rework auth"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "explicit unit id")
	cmd.Flags().StringVarP(&opts.Category, "category", "c", string(model.CategoryFeature), "unit category")
	cmd.Flags().StringArrayVarP(&opts.Attributes, "attr", "a", nil, "attribute as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.SpecFile, "spec-file", "", "initial spec document (- for stdin)")
	cmd.Flags().StringVar(&opts.PlanFile, "plan-file", "", "initial plan document (- for stdin)")

	return cmd
}

func runNew(cmd *cobra.Command, opts *NewOptions, title string) error {
	f := opts.formatter(cmd)

	attrs, err := parseAttributes(opts.Attributes)
	if err != nil {
		return f.Fail(err)
	}
	if opts.SpecFile == "-" && opts.PlanFile == "-" {
		return f.FailWith(ExitCommandError, ErrCodeUsage, fmt.Errorf("--spec-file and --plan-file cannot both read stdin"))
	}
	spec, err := readDocument(cmd, opts.SpecFile)
	if err != nil {
		return f.FailWith(ExitCommandError, ErrCodeUsage, err)
	}
	planText, err := readDocument(cmd, opts.PlanFile)
	if err != nil {
		return f.FailWith(ExitCommandError, ErrCodeUsage, err)
	}

	return opts.withTracker(f, func(tr *tracker.Tracker) error {
		unit, err := tr.CreateWorkUnit(cmd.Context(), tracker.CreateRequest{
			ID:         opts.ID,
			Title:      title,
			Category:   model.Category(opts.Category),
			Attributes: attrs,
			Spec:       spec,
			Plan:       planText,
		})
		if err != nil {
			return err
		}
		paths := tr.Store().Paths(unit.ID)
		if f.JSON() {
			return f.Success(map[string]interface{}{
				"unit":  unit,
				"paths": paths,
			})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Created %s (%s): %s\n", unit.ID, unit.Category, unit.Title)
		fmt.Fprintf(w, "  spec: %s\n", paths.Spec)
		fmt.Fprintf(w, "  plan: %s\n", paths.Plan)
		return nil
	})
}

// parseAttributes turns key=value flags into a map.
func parseAttributes(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, model.Invalid("create", "", fmt.Sprintf("attribute %q must be key=value", pair))
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// readDocument reads path, or stdin when path is "-". An empty path yields "".
func readDocument(cmd *cobra.Command, path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
}
