package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/registry"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// fakeSource serves units and plans from memory.
type fakeSource struct {
	units   map[string]model.WorkUnit
	plans   map[string]plan.Plan
	planErr map[string]error
	ids     []string
	listErr error
}

func (f *fakeSource) Load(id string) (model.WorkUnit, error) {
	u, ok := f.units[id]
	if !ok {
		return model.WorkUnit{}, model.NotFound("load", id, "no metadata record")
	}
	return u, nil
}

func (f *fakeSource) LoadPlan(id string) (plan.Plan, error) {
	if err := f.planErr[id]; err != nil {
		return plan.Plan{}, err
	}
	p, ok := f.plans[id]
	if !ok {
		return plan.Plan{}, model.NotFound("load-plan", id, "plan.md is missing")
	}
	return p, nil
}

func (f *fakeSource) ListIDs() ([]string, error) {
	return f.ids, f.listErr
}

func unit(id, title string, status model.Status, created time.Time) model.WorkUnit {
	return model.WorkUnit{
		ID: id, Title: title, Category: model.CategoryFeature, Status: status,
		CreatedAt: created, UpdatedAt: created,
	}
}

// mixedFixture covers every entry flavour: progress, no plan, missing
// metadata, malformed plan, completed, and registry drift in both directions.
func mixedFixture() (registry.Registry, *fakeSource) {
	t1 := unit("t1", "Add dark mode", model.StatusInProgress, now.Add(-48*time.Hour))
	t2 := unit("t2", "Fix login", model.StatusPlanning, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	t4 := unit("t4", "Storage layer", model.StatusCompleted, now.Add(-72*time.Hour))
	t5 := unit("t5", "Search", model.StatusInProgress, now.Add(-24*time.Hour))
	t3row := model.Summary{ID: "t3", Title: "Sync calendar", Category: model.CategoryConnector,
		Status: model.StatusBlocked, CreatedAt: now.Add(-24 * time.Hour), UpdatedAt: now.Add(-24 * time.Hour)}

	reg := registry.New(t1.Summary(), t2.Summary(), t3row, t4.Summary(), t5.Summary())
	src := &fakeSource{
		units: map[string]model.WorkUnit{"t1": t1, "t2": t2, "t4": t4, "t5": t5},
		plans: map[string]plan.Plan{
			"t1": {Phases: []plan.Phase{
				{Name: "Setup", Tasks: []plan.Task{
					{Description: "Create theme tokens", Done: true},
					{Description: "Wire toggle"},
				}},
				{Name: "Testing", Tasks: []plan.Task{{Description: "Snapshot tests"}}},
			}},
			"t4": {Phases: []plan.Phase{{Name: "Build", Tasks: []plan.Task{
				{Description: "Schema", Done: true},
				{Description: "Driver", Done: true},
			}}}},
		},
		planErr: map[string]error{
			"t5": model.WithUnit(model.MalformedPlan(3, `unknown checkbox marker "[?]"`), "load-plan", "t5"),
		},
		ids: []string{"t1", "t2", "t4", "t5", "t9"},
	}
	return reg, src
}

func buildMixed(t *testing.T) StatusReport {
	t.Helper()
	reg, src := mixedFixture()
	return Build(reg, src, Options{
		StalePlanningAfter: 7 * 24 * time.Hour,
		NextTaskLimit:      2,
		Now:                now,
	})
}

func TestBuild_Aggregates(t *testing.T) {
	rep := buildMixed(t)

	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 2, rep.ByStatus[model.StatusInProgress])
	assert.Equal(t, 1, rep.ByStatus[model.StatusPlanning])
	assert.Equal(t, 1, rep.ByStatus[model.StatusBlocked])
	assert.Equal(t, 1, rep.ByStatus[model.StatusCompleted])
	assert.Equal(t, 2, rep.Unavailable)
	assert.Equal(t, 3, rep.Tasks.CompletedTasks)
	assert.Equal(t, 5, rep.Tasks.TotalTasks)
	assert.Equal(t, 60, rep.Tasks.Percent)

	var order []model.Status
	for _, g := range rep.Groups {
		order = append(order, g.Status)
	}
	assert.Equal(t, []model.Status{
		model.StatusInProgress, model.StatusPlanning, model.StatusBlocked, model.StatusCompleted,
	}, order)
}

func TestBuild_UnitEntries(t *testing.T) {
	rep := buildMixed(t)
	byID := make(map[string]UnitReport)
	for _, u := range rep.Units {
		byID[u.ID] = u
	}

	t1 := byID["t1"]
	assert.Equal(t, 33, t1.Progress.Percent)
	assert.Equal(t, "Setup", t1.CurrentPhase)
	require.Len(t, t1.NextTasks, 2)
	assert.Equal(t, "1.2", t1.NextTasks[0].PathLabel)
	assert.Equal(t, "Snapshot tests", t1.NextTasks[1].Description)

	t2 := byID["t2"]
	assert.True(t, t2.NoProgressData)
	assert.False(t, t2.DataUnavailable)

	t3 := byID["t3"]
	assert.True(t, t3.DataUnavailable)
	assert.Equal(t, "Sync calendar", t3.Title, "falls back to the registry row")
	assert.Contains(t, t3.Problem, "NOT_FOUND")

	t5 := byID["t5"]
	assert.True(t, t5.DataUnavailable)
	assert.Contains(t, t5.Problem, "MALFORMED_PLAN")
	assert.Equal(t, model.StatusInProgress, t5.Status)

	t4 := byID["t4"]
	assert.Equal(t, 100, t4.Progress.Percent)
	assert.Empty(t, t4.CurrentPhase)
}

func TestBuild_Drift(t *testing.T) {
	rep := buildMixed(t)
	assert.Equal(t, []string{"t9"}, rep.Drift.Missing)
	assert.Equal(t, []string{"t3"}, rep.Drift.Orphaned)
	assert.Empty(t, rep.Drift.Stale)
}

func TestBuild_Recommendations(t *testing.T) {
	rep := buildMixed(t)

	var codes []string
	for _, r := range rep.Recommendations {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{
		RecMultipleInProgress, RecStalePlanning, RecBlocked, RecDataUnavailable, RecRegistryDrift,
	}, codes)
	assert.Equal(t, []string{"t1", "t5"}, rep.Recommendations[0].Units)
	assert.Equal(t, []string{"t2"}, rep.Recommendations[1].Units)
}

func TestBuild_EmptyRegistry(t *testing.T) {
	rep := Build(registry.Registry{}, &fakeSource{}, Options{Now: now})

	assert.Equal(t, 0, rep.Total)
	assert.Empty(t, rep.Groups)
	assert.NotNil(t, rep.Units)
	require.Len(t, rep.Recommendations, 1)
	assert.Equal(t, RecNoUnits, rep.Recommendations[0].Code)
}

func TestBuild_NoneInProgress(t *testing.T) {
	u := unit("a", "Only", model.StatusPlanning, now)
	rep := Build(registry.New(u.Summary()), &fakeSource{
		units: map[string]model.WorkUnit{"a": u},
		ids:   []string{"a"},
	}, Options{Now: now, StalePlanningAfter: 24 * time.Hour})

	require.Len(t, rep.Recommendations, 1)
	assert.Equal(t, RecNoneInProgress, rep.Recommendations[0].Code)
}

func TestBuild_StaleUsesStatusChange(t *testing.T) {
	u := unit("a", "Old but replanned", model.StatusPlanning, now.Add(-30*24*time.Hour))
	changed := now.Add(-time.Hour)
	u.StatusChangedAt = &changed
	rep := Build(registry.New(u.Summary()), &fakeSource{
		units: map[string]model.WorkUnit{"a": u},
		ids:   []string{"a"},
	}, Options{Now: now, StalePlanningAfter: 7 * 24 * time.Hour})

	for _, r := range rep.Recommendations {
		assert.NotEqual(t, RecStalePlanning, r.Code)
	}
}

func TestBuild_ListFailureSkipsDrift(t *testing.T) {
	reg, src := mixedFixture()
	src.listErr = errors.New("disk gone")

	rep := Build(reg, src, Options{Now: now})
	assert.True(t, rep.Drift.Empty())
}

func TestBuild_MetadataWinsOverRow(t *testing.T) {
	u := unit("a", "Renamed", model.StatusCompleted, now)
	row := u.Summary()
	row.Title = "Old name"
	row.Status = model.StatusPlanning

	rep := Build(registry.New(row), &fakeSource{
		units: map[string]model.WorkUnit{"a": u},
		ids:   []string{"a"},
	}, Options{Now: now})

	assert.Equal(t, "Renamed", rep.Units[0].Title)
	assert.Equal(t, 1, rep.ByStatus[model.StatusCompleted])
	assert.Equal(t, []string{"a"}, rep.Drift.Stale)
}

func TestRenderText_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, buildMixed(t), PlainStyles()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "status_mixed", buf.Bytes())
}

func TestRenderText_Empty(t *testing.T) {
	var buf bytes.Buffer
	rep := Build(registry.Registry{}, &fakeSource{}, Options{Now: now})
	require.NoError(t, RenderText(&buf, rep, PlainStyles()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "status_empty", buf.Bytes())
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "2 in progress, 1 planning, 1 blocked, 1 completed", StatusLine(buildMixed(t)))
	assert.Equal(t, "no units", StatusLine(StatusReport{}))
}
