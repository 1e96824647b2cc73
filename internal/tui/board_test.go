package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/progress"
	"github.com/roach88/tracks/internal/report"
	"github.com/roach88/tracks/internal/tracker"
)

type toggleCall struct {
	id   string
	path string
	done bool
}

type fakeBackend struct {
	units   []report.UnitReport
	plans   map[string]plan.Plan
	toggles []toggleCall
	status  map[string]model.Status
	failSet error
}

func newFakeBackend() *fakeBackend {
	setup := plan.Plan{Phases: []plan.Phase{{
		Name: "Setup",
		Tasks: []plan.Task{
			{Description: "Create theme tokens", Done: true},
			{Description: "Wire toggle"},
		},
	}}}
	return &fakeBackend{
		units: []report.UnitReport{
			{ID: "t1", Title: "Add dark mode", Status: model.StatusInProgress, Progress: progress.Of(setup)},
			{ID: "t2", Title: "Fix login", Status: model.StatusPlanning, Progress: progress.Progress{Percent: 100}},
			{ID: "t3", Title: "Broken", Status: model.StatusPlanning, DataUnavailable: true},
		},
		plans:  map[string]plan.Plan{"t1": setup, "t2": {}},
		status: map[string]model.Status{},
	}
}

func (f *fakeBackend) StatusReport(context.Context) (report.StatusReport, error) {
	rep := report.StatusReport{ByStatus: map[model.Status]int{}}
	for _, s := range model.Statuses {
		var g report.Group
		for _, u := range f.units {
			if st, ok := f.status[u.ID]; ok {
				u.Status = st
			}
			if u.Status == s {
				g.Units = append(g.Units, u)
			}
		}
		if len(g.Units) > 0 {
			g.Status = s
			rep.Groups = append(rep.Groups, g)
			rep.ByStatus[s] = len(g.Units)
		}
	}
	rep.Total = len(f.units)
	return rep, nil
}

func (f *fakeBackend) Show(_ context.Context, id string) (tracker.Detail, error) {
	p, ok := f.plans[id]
	if !ok {
		return tracker.Detail{}, model.Corrupt("load", id, "bad metadata", nil)
	}
	return tracker.Detail{
		Unit:     model.WorkUnit{ID: id, Title: "unit " + id},
		Plan:     p,
		Progress: progress.Of(p),
	}, nil
}

func (f *fakeBackend) SetTaskDone(_ context.Context, id string, path plan.TaskPath, done bool) (model.WorkUnit, plan.Plan, error) {
	f.toggles = append(f.toggles, toggleCall{id: id, path: path.String(), done: done})
	p, err := plan.SetTaskDone(f.plans[id], path, done)
	if err != nil {
		return model.WorkUnit{}, plan.Plan{}, err
	}
	f.plans[id] = p
	return model.WorkUnit{ID: id, Status: model.StatusInProgress}, p, nil
}

func (f *fakeBackend) SetStatus(_ context.Context, id string, status model.Status) (model.WorkUnit, error) {
	if f.failSet != nil {
		return model.WorkUnit{}, f.failSet
	}
	f.status[id] = status
	return model.WorkUnit{ID: id, Status: status}, nil
}

// drain runs cmd and feeds every resulting message back into the model
// until no command is left. tea.Quit is returned as-is.
func drain(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Msg) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 20, "command loop did not settle")
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return m, msg
		}
		next, nextCmd := m.Update(msg)
		m = next.(Model)
		cmd = nextCmd
	}
	return m, nil
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	return drain(t, next.(Model), cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func startBoard(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := New(context.Background(), backend, report.PlainStyles())
	m, _ = drain(t, m, m.Init())
	return m
}

func TestBoard_InitialLoad(t *testing.T) {
	m := startBoard(t, newFakeBackend())

	require.Len(t, m.units, 3)
	assert.Equal(t, "t1", m.units[0].ID, "in progress is listed first")
	require.NotNil(t, m.detail)
	assert.Len(t, m.leaves, 2)

	view := m.View()
	assert.Contains(t, view, "> t1  Add dark mode  50%")
	assert.Contains(t, view, "  t3  Broken  data unavailable")
	assert.Contains(t, view, "[x] 1.1 Create theme tokens")
	assert.Contains(t, view, "1 in progress, 2 planning")
}

func TestBoard_MoveSelectionLoadsDetail(t *testing.T) {
	m := startBoard(t, newFakeBackend())

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.cursor)
	require.NotNil(t, m.detail)
	assert.Equal(t, "t2", m.detail.Unit.ID)
	assert.Contains(t, m.View(), "no tasks")

	m, _ = press(t, m, runes("j"))
	assert.Nil(t, m.detail)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "error: ")

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 2, m.cursor, "cursor stops at the last unit")
}

func TestBoard_ToggleTask(t *testing.T) {
	backend := newFakeBackend()
	m := startBoard(t, backend)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusTasks, m.focus)
	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.taskCursor)
	assert.Contains(t, m.View(), "  > [ ] 1.2 Wire toggle")

	m, _ = press(t, m, runes(" "))
	require.Len(t, backend.toggles, 1)
	assert.Equal(t, toggleCall{id: "t1", path: "1.2", done: true}, backend.toggles[0])
	assert.Contains(t, m.View(), "t1 checked 1.2 (In Progress)")
	assert.True(t, m.leaves[1].Task.Done, "detail reloads after the change")

	m, _ = press(t, m, runes(" "))
	require.Len(t, backend.toggles, 2)
	assert.False(t, backend.toggles[1].done)
}

func TestBoard_ToggleIgnoredInUnitFocus(t *testing.T) {
	backend := newFakeBackend()
	m := startBoard(t, backend)

	press(t, m, runes(" "))
	assert.Empty(t, backend.toggles)
}

func TestBoard_SetStatus(t *testing.T) {
	backend := newFakeBackend()
	m := startBoard(t, backend)

	m, _ = press(t, m, runes("b"))
	assert.Equal(t, model.StatusBlocked, backend.status["t1"])
	assert.Contains(t, m.View(), "t1 is now Blocked")

	backend.failSet = errors.New("disk full")
	m, _ = press(t, m, runes("s"))
	assert.Contains(t, m.View(), "error: disk full")
}

func TestBoard_Quit(t *testing.T) {
	m := startBoard(t, newFakeBackend())

	_, msg := press(t, m, runes("q"))
	assert.IsType(t, tea.QuitMsg{}, msg)
}

func TestBoard_EmptyReport(t *testing.T) {
	backend := &fakeBackend{plans: map[string]plan.Plan{}, status: map[string]model.Status{}}
	m := startBoard(t, backend)

	assert.Empty(t, m.units)
	assert.Nil(t, m.detail)
	assert.Contains(t, m.View(), "No work units.")
	assert.Contains(t, m.View(), "no units")
}
