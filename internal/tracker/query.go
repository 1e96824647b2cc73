package tracker

import (
	"context"
	"errors"
	"sort"

	"github.com/roach88/tracks/internal/journal"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/progress"
	"github.com/roach88/tracks/internal/registry"
	"github.com/roach88/tracks/internal/report"
	"github.com/roach88/tracks/internal/store"
)

// Detail is everything known about one unit.
type Detail struct {
	Unit         model.WorkUnit         `json:"unit"`
	Spec         string                 `json:"spec"`
	Plan         plan.Plan              `json:"-"`
	Progress     progress.Progress      `json:"progress"`
	Phases       []progress.PhaseStatus `json:"phases"`
	CurrentPhase string                 `json:"current_phase,omitempty"`
	NextTasks    []progress.Pending     `json:"next_tasks,omitempty"`
	NoPlan       bool                   `json:"no_plan,omitempty"`
	Paths        store.Paths            `json:"paths"`
}

// Show loads a unit with its plan and progress breakdown.
func (t *Tracker) Show(ctx context.Context, id string) (Detail, error) {
	const op = "show"
	unit, err := t.store.Load(id)
	if err != nil {
		return Detail{}, model.WithUnit(err, op, id)
	}
	d := Detail{Unit: unit, Paths: t.store.Paths(id)}

	spec, err := t.store.LoadSpec(id)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return Detail{}, model.WithUnit(err, op, id)
	default:
		d.Spec = spec
	}

	p, err := t.store.LoadPlan(id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		d.NoPlan = true
		return d, nil
	case err != nil:
		return Detail{}, model.WithUnit(err, op, id)
	}
	d.Plan = p
	d.Progress = progress.Of(p)
	d.Phases = progress.PhaseProgress(p)
	if ph, ok := progress.CurrentPhase(p); ok {
		d.CurrentPhase = ph.Name
	}
	d.NextTasks = progress.NextPendingTasks(p, t.cfg.NextTasks)
	return d, nil
}

// StatusReport builds the overview of every registered unit.
func (t *Tracker) StatusReport(ctx context.Context) (report.StatusReport, error) {
	reg, err := t.loadRegistry(ctx)
	if err != nil {
		return report.StatusReport{}, err
	}
	return report.Build(reg, t.store, report.Options{
		StalePlanningAfter: t.cfg.StalePlanningAfter(),
		NextTaskLimit:      t.cfg.NextTasks,
		Now:                t.now(),
		Logger:             t.logger,
	}), nil
}

// History returns the journal entries of a unit in append order.
func (t *Tracker) History(ctx context.Context, id string) ([]journal.Entry, error) {
	if err := model.ValidateID("history", id); err != nil {
		return nil, err
	}
	if t.journal == nil {
		return []journal.Entry{}, nil
	}
	return t.journal.ForUnit(ctx, id)
}

// RecentHistory returns the latest journal entries across all units, newest
// first.
func (t *Tracker) RecentHistory(ctx context.Context, limit int) ([]journal.Entry, error) {
	if t.journal == nil {
		return []journal.Entry{}, nil
	}
	return t.journal.Recent(ctx, limit)
}

// Problem describes a unit skipped during a rebuild.
type Problem struct {
	ID    string          `json:"id"`
	Code  model.ErrorCode `json:"code"`
	Error string          `json:"error"`
}

// RebuildResult is the outcome of RebuildRegistry.
type RebuildResult struct {
	Registry registry.Registry `json:"-"`
	Rows     int               `json:"rows"`
	Skipped  []Problem         `json:"skipped,omitempty"`
}

// RebuildRegistry regenerates the registry from unit metadata and saves it.
// Units whose metadata cannot be read are skipped and reported. Rows are
// ordered by creation time, then id.
func (t *Tracker) RebuildRegistry(ctx context.Context) (RebuildResult, error) {
	units, skipped, err := t.loadAll()
	if err != nil {
		return RebuildResult{}, err
	}
	sort.SliceStable(units, func(i, j int) bool {
		if !units[i].CreatedAt.Equal(units[j].CreatedAt) {
			return units[i].CreatedAt.Before(units[j].CreatedAt)
		}
		return units[i].ID < units[j].ID
	})
	reg := registry.RebuildFrom(units)
	if err := registry.Save(t.store.RegistryPath(), reg); err != nil {
		return RebuildResult{}, err
	}
	for _, p := range skipped {
		t.logger.Warn("skipped unreadable unit during rebuild", "unit", p.ID, "error", p.Error)
	}
	t.logger.Info("rebuilt registry", "rows", reg.Len(), "skipped", len(skipped))
	return RebuildResult{Registry: reg, Rows: reg.Len(), Skipped: skipped}, nil
}

// Check compares the registry with the units on disk without changing
// anything. A corrupt registry is returned as an error.
func (t *Tracker) Check(ctx context.Context) (registry.Drift, error) {
	reg, err := registry.Load(t.store.RegistryPath())
	if err != nil {
		return registry.Drift{}, err
	}
	ids, err := t.store.ListIDs()
	if err != nil {
		return registry.Drift{}, err
	}
	units, _, err := t.loadAll()
	if err != nil {
		return registry.Drift{}, err
	}
	drift := reg.Drift(ids)
	drift.Stale = reg.StaleAgainst(units)
	return drift, nil
}

// loadAll loads every unit on disk, collecting the ones that fail.
func (t *Tracker) loadAll() ([]model.WorkUnit, []Problem, error) {
	ids, err := t.store.ListIDs()
	if err != nil {
		return nil, nil, err
	}
	var (
		units   []model.WorkUnit
		skipped []Problem
	)
	for _, id := range ids {
		u, err := t.store.Load(id)
		if err != nil {
			skipped = append(skipped, Problem{ID: id, Code: model.CodeOf(err), Error: err.Error()})
			continue
		}
		units = append(units, u)
	}
	return units, skipped, nil
}
