// Package tui is the interactive board: units grouped by status on top, the
// selected unit's plan below, with keys to check tasks and change status.
//
// It follows The Elm Architecture as bubbletea does: every engine call runs
// as a tea.Cmd and reports back through a message.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/report"
	"github.com/roach88/tracks/internal/tracker"
)

// Backend is the part of the tracker the board drives. *tracker.Tracker
// satisfies it.
type Backend interface {
	StatusReport(ctx context.Context) (report.StatusReport, error)
	Show(ctx context.Context, id string) (tracker.Detail, error)
	SetTaskDone(ctx context.Context, id string, path plan.TaskPath, done bool) (model.WorkUnit, plan.Plan, error)
	SetStatus(ctx context.Context, id string, status model.Status) (model.WorkUnit, error)
}

type focus int

const (
	focusUnits focus = iota
	focusTasks
)

type reportMsg struct {
	report report.StatusReport
	err    error
}

type detailMsg struct {
	id     string
	detail tracker.Detail
	err    error
}

type mutatedMsg struct {
	status string
	err    error
}

// Model is the board state.
type Model struct {
	ctx     context.Context
	backend Backend
	styles  report.Styles
	keys    keyMap
	help    help.Model

	report     report.StatusReport
	units      []report.UnitReport
	cursor     int
	detail     *tracker.Detail
	leaves     []plan.Leaf
	taskCursor int
	focus      focus

	status string
	err    error
	width  int
}

// New creates a board over backend.
func New(ctx context.Context, backend Backend, styles report.Styles) Model {
	return Model{
		ctx:     ctx,
		backend: backend,
		styles:  styles,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

// Run starts the board on the terminal and blocks until the user quits.
func Run(ctx context.Context, backend Backend, styles report.Styles, opts ...tea.ProgramOption) error {
	opts = append(opts, tea.WithContext(ctx))
	_, err := tea.NewProgram(New(ctx, backend, styles), opts...).Run()
	return err
}

// Init loads the first report.
func (m Model) Init() tea.Cmd {
	return m.loadReport()
}

func (m Model) loadReport() tea.Cmd {
	return func() tea.Msg {
		rep, err := m.backend.StatusReport(m.ctx)
		return reportMsg{report: rep, err: err}
	}
}

func (m Model) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		d, err := m.backend.Show(m.ctx, id)
		return detailMsg{id: id, detail: d, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case reportMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.report = msg.report
		m.units = orderUnits(msg.report)
		if m.cursor >= len(m.units) {
			m.cursor = len(m.units) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		if u, ok := m.selected(); ok {
			return m, m.loadDetail(u.ID)
		}
		m.detail, m.leaves = nil, nil
		m.focus = focusUnits
		return m, nil

	case detailMsg:
		u, ok := m.selected()
		if !ok || u.ID != msg.id {
			// The selection moved on while the detail loaded.
			return m, nil
		}
		if msg.err != nil {
			m.detail, m.leaves = nil, nil
			m.err = msg.err
			m.focus = focusUnits
			return m, nil
		}
		d := msg.detail
		m.detail = &d
		m.leaves = plan.Leaves(d.Plan)
		if m.taskCursor >= len(m.leaves) {
			m.taskCursor = len(m.leaves) - 1
		}
		if m.taskCursor < 0 {
			m.taskCursor = 0
		}
		if len(m.leaves) == 0 {
			m.focus = focusUnits
		}
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		return m, m.loadReport()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.status = ""
		return m, m.loadReport()
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusUnits && len(m.leaves) > 0 {
			m.focus = focusTasks
		} else {
			m.focus = focusUnits
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		return m.move(-1)
	case key.Matches(msg, m.keys.Down):
		return m.move(1)
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggleTask()
	case key.Matches(msg, m.keys.Start):
		return m, m.setStatus(model.StatusInProgress)
	case key.Matches(msg, m.keys.Block):
		return m, m.setStatus(model.StatusBlocked)
	}
	return m, nil
}

func (m Model) move(delta int) (tea.Model, tea.Cmd) {
	if m.focus == focusTasks {
		m.taskCursor = clamp(m.taskCursor+delta, len(m.leaves))
		return m, nil
	}
	next := clamp(m.cursor+delta, len(m.units))
	if next == m.cursor {
		return m, nil
	}
	m.cursor = next
	m.taskCursor = 0
	m.detail, m.leaves = nil, nil
	return m, m.loadDetail(m.units[next].ID)
}

func (m Model) toggleTask() tea.Cmd {
	u, ok := m.selected()
	if m.focus != focusTasks || !ok || m.taskCursor >= len(m.leaves) {
		return nil
	}
	leaf := m.leaves[m.taskCursor]
	done := !leaf.Task.Done
	return func() tea.Msg {
		unit, _, err := m.backend.SetTaskDone(m.ctx, u.ID, leaf.Path, done)
		if err != nil {
			return mutatedMsg{err: err}
		}
		verb := "checked"
		if !done {
			verb = "unchecked"
		}
		return mutatedMsg{status: fmt.Sprintf("%s %s %s (%s)", u.ID, verb, leaf.Path, unit.Status.Label())}
	}
}

func (m Model) setStatus(status model.Status) tea.Cmd {
	u, ok := m.selected()
	if !ok || u.DataUnavailable {
		return nil
	}
	return func() tea.Msg {
		unit, err := m.backend.SetStatus(m.ctx, u.ID, status)
		if err != nil {
			return mutatedMsg{err: err}
		}
		return mutatedMsg{status: fmt.Sprintf("%s is now %s", unit.ID, unit.Status.Label())}
	}
}

func (m Model) selected() (report.UnitReport, bool) {
	if m.cursor < 0 || m.cursor >= len(m.units) {
		return report.UnitReport{}, false
	}
	return m.units[m.cursor], true
}

// orderUnits flattens the report's groups so the list reads top to bottom
// in status order.
func orderUnits(rep report.StatusReport) []report.UnitReport {
	var out []report.UnitReport
	for _, g := range rep.Groups {
		out = append(out, g.Units...)
	}
	return out
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// View renders the board.
func (m Model) View() string {
	st := m.styles
	var b strings.Builder

	b.WriteString(st.Title.Render("tracks board"))
	b.WriteString(st.Muted.Render("  " + report.StatusLine(m.report)))
	b.WriteString("\n\n")

	if len(m.units) == 0 {
		b.WriteString(st.Muted.Render("No work units."))
		b.WriteString("\n")
	}
	var group model.Status
	for i, u := range m.units {
		if i == 0 || u.Status != group {
			group = u.Status
			b.WriteString(st.Group.Render(group.Label()))
			b.WriteString("\n")
		}
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(cursor)
		b.WriteString(st.ID.Render(u.ID))
		b.WriteString("  ")
		b.WriteString(unitSummary(u, st))
		b.WriteString("\n")
	}

	if m.detail != nil {
		b.WriteString("\n")
		b.WriteString(m.planView())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(st.Warning.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(st.Muted.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func unitSummary(u report.UnitReport, st report.Styles) string {
	switch {
	case u.DataUnavailable:
		return u.Title + "  " + st.Warning.Render("data unavailable")
	case u.NoProgressData:
		return u.Title + "  " + st.Muted.Render("no plan")
	default:
		return fmt.Sprintf("%s  %s", u.Title, st.Progress.Render(fmt.Sprintf("%d%%", u.Progress.Percent)))
	}
}

func (m Model) planView() string {
	st := m.styles
	d := m.detail
	var b strings.Builder
	b.WriteString(st.Group.Render(d.Unit.Title))
	fmt.Fprintf(&b, "  %d/%d tasks", d.Progress.CompletedTasks, d.Progress.TotalTasks)
	b.WriteString("\n")
	if d.NoPlan {
		b.WriteString(st.Muted.Render("  no plan document"))
		b.WriteString("\n")
		return b.String()
	}
	if len(m.leaves) == 0 {
		b.WriteString(st.Muted.Render("  no tasks"))
		b.WriteString("\n")
		return b.String()
	}
	phase := -1
	for i, leaf := range m.leaves {
		if leaf.Path.Phase != phase {
			phase = leaf.Path.Phase
			b.WriteString("  ")
			b.WriteString(st.Muted.Render(d.Plan.Phases[phase].Name))
			b.WriteString("\n")
		}
		cursor := "    "
		if m.focus == focusTasks && i == m.taskCursor {
			cursor = "  > "
		}
		box := "[ ]"
		if leaf.Task.Done {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", cursor, box, leaf.Path, leaf.Task.Description)
	}
	return b.String()
}
