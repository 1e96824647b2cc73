package tracker

import (
	"context"
	"errors"

	"github.com/roach88/tracks/internal/journal"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/registry"
	"github.com/roach88/tracks/internal/revert"
	"github.com/roach88/tracks/internal/store"
)

// DeleteWorkUnit removes a unit's files and registry row. Deleting an absent
// unit succeeds.
func (t *Tracker) DeleteWorkUnit(ctx context.Context, id string) error {
	const op = "delete"
	if err := model.ValidateID(op, id); err != nil {
		return err
	}
	existed := t.store.Exists(id)
	if err := t.store.Delete(id); err != nil {
		return err
	}

	reg, err := t.loadRegistry(ctx)
	if err != nil {
		return model.WithUnit(err, op, id)
	}
	if _, ok := reg.Get(id); ok {
		if err := registry.Save(t.store.RegistryPath(), reg.Remove(id)); err != nil {
			return model.WithUnit(err, op, id)
		}
	}

	if existed {
		t.record(ctx, journal.Entry{UnitID: id, Event: journal.EventDeleted})
		t.logger.Info("deleted work unit", "unit", id)
	}
	return nil
}

// RevertWorkUnit marks a unit reverted and unchecks every task. UpdatedAt is
// left as it was; RevertedAt records when the revert happened.
func (t *Tracker) RevertWorkUnit(ctx context.Context, id string) (model.WorkUnit, error) {
	const op = "revert"
	unit, err := t.store.Load(id)
	if err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, id)
	}
	p, err := t.store.LoadPlan(id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		p = plan.Plan{}
	case err != nil:
		return model.WorkUnit{}, model.WithUnit(err, op, id)
	}
	if err := t.store.SavePlan(id, plan.Reset(p)); err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, id)
	}

	from := unit.Status
	now := t.now().UTC()
	unit.Status = model.StatusReverted
	unit.RevertedAt = &now
	unit.StatusChangedAt = &now
	saved, err := t.store.Save(unit, store.PreserveUpdatedAt())
	if err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, id)
	}
	t.record(ctx, journal.Entry{UnitID: id, Event: journal.EventReverted, From: from, To: model.StatusReverted})
	t.logger.Info("reverted work unit", "unit", id, "status", saved.Status)
	if err := t.syncRow(ctx, op, saved); err != nil {
		return model.WorkUnit{}, err
	}
	return saved, nil
}

// RevertCandidates lists commits from git that likely belong to the unit.
// Nothing is reverted; the caller decides.
func (t *Tracker) RevertCandidates(ctx context.Context, id string, git revert.GitLog, hints revert.Hints) ([]revert.Candidate, error) {
	const op = "revert-candidates"
	unit, err := t.store.Load(id)
	if err != nil {
		return nil, model.WithUnit(err, op, id)
	}
	p, err := t.store.LoadPlan(id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, model.WithUnit(err, op, id)
	}
	commits, err := git.Log(ctx, unit.CreatedAt)
	if err != nil {
		return nil, model.WithUnit(err, op, id)
	}
	return revert.FindCandidates(unit, p, commits, hints), nil
}
