package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/tracks/internal/model"
)

// Styles controls how RenderText decorates its output.
type Styles struct {
	Title    lipgloss.Style
	Group    lipgloss.Style
	ID       lipgloss.Style
	Muted    lipgloss.Style
	Progress lipgloss.Style
	Warning  lipgloss.Style
	Code     lipgloss.Style
}

// DefaultStyles returns the colour styles used on terminals.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		Group:    lipgloss.NewStyle().Bold(true),
		ID:       lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Code:     lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Bold(true),
	}
}

// PlainStyles returns styles that leave text untouched.
func PlainStyles() Styles {
	return Styles{}
}

// RenderText writes a grouped, human-readable summary of rep.
func RenderText(w io.Writer, rep StatusReport, st Styles) error {
	var b strings.Builder

	b.WriteString(st.Title.Render("Tracks status"))
	b.WriteString(st.Muted.Render(" as of " + rep.GeneratedAt.Format("2006-01-02 15:04 MST")))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Units: %d  Tasks: %d/%d (%d%%)\n",
		rep.Total, rep.Tasks.CompletedTasks, rep.Tasks.TotalTasks, rep.Tasks.Percent)

	if len(rep.Groups) == 0 {
		b.WriteString("\n")
		b.WriteString(st.Muted.Render("No work units."))
		b.WriteString("\n")
	}
	for _, g := range rep.Groups {
		b.WriteString("\n")
		b.WriteString(st.Group.Render(fmt.Sprintf("%s (%d)", g.Status.Label(), len(g.Units))))
		b.WriteString("\n")
		renderGroup(&b, g, st)
	}

	if len(rep.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString(st.Group.Render("Recommendations"))
		b.WriteString("\n")
		for _, rec := range rep.Recommendations {
			fmt.Fprintf(&b, "  * %s %s\n", st.Code.Render("["+rec.Code+"]"), rec.Message)
		}
	}

	if !rep.Drift.Empty() {
		b.WriteString("\n")
		b.WriteString(st.Warning.Render("Registry drift"))
		b.WriteString("\n")
		driftLine(&b, "not in registry", rep.Drift.Missing)
		driftLine(&b, "no unit on disk", rep.Drift.Orphaned)
		driftLine(&b, "out of date", rep.Drift.Stale)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderGroup(b *strings.Builder, g Group, st Styles) {
	idWidth, titleWidth := 0, 0
	for _, u := range g.Units {
		idWidth = max(idWidth, lipgloss.Width(u.ID))
		titleWidth = max(titleWidth, lipgloss.Width(u.Title))
	}
	for _, u := range g.Units {
		b.WriteString("  ")
		b.WriteString(st.ID.Render(padRight(u.ID, idWidth)))
		b.WriteString("  ")
		b.WriteString(padRight(u.Title, titleWidth))
		b.WriteString("  ")
		b.WriteString(unitDetail(u, st))
		b.WriteString("\n")
		for _, next := range u.NextTasks {
			fmt.Fprintf(b, "      %s %s %s\n", st.Muted.Render("next:"), next.PathLabel, next.Description)
		}
	}
}

func unitDetail(u UnitReport, st Styles) string {
	switch {
	case u.DataUnavailable:
		return st.Warning.Render("!! data unavailable: " + u.Problem)
	case u.NoProgressData:
		return st.Muted.Render("no progress data")
	}
	detail := st.Progress.Render(fmt.Sprintf("%3d%%", u.Progress.Percent)) +
		fmt.Sprintf(" (%d/%d)", u.Progress.CompletedTasks, u.Progress.TotalTasks)
	if u.CurrentPhase != "" {
		detail += st.Muted.Render("  phase: " + u.CurrentPhase)
	}
	return detail
}

func driftLine(b *strings.Builder, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, strings.Join(ids, ", "))
}

func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// StatusLine returns a one-line summary such as "2 in progress, 1 planning".
func StatusLine(rep StatusReport) string {
	var parts []string
	for _, s := range model.Statuses {
		if n := rep.ByStatus[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(s.Label())))
		}
	}
	if len(parts) == 0 {
		return "no units"
	}
	return strings.Join(parts, ", ")
}
