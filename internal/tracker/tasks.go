package tracker

import (
	"context"
	"fmt"

	"github.com/roach88/tracks/internal/journal"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/progress"
)

// SetTaskDone checks or unchecks one task and applies automatic status
// transitions:
//
//   - planning becomes in_progress once any leaf task is done
//   - planning or in_progress becomes completed once every leaf task is done
//   - completed reopens to in_progress when a leaf task is unchecked
//
// Blocked, cancelled and reverted units keep their status.
func (t *Tracker) SetTaskDone(ctx context.Context, id string, path plan.TaskPath, done bool) (model.WorkUnit, plan.Plan, error) {
	const op = "set-task-done"
	unit, err := t.store.Load(id)
	if err != nil {
		return model.WorkUnit{}, plan.Plan{}, model.WithUnit(err, op, id)
	}
	before, err := t.store.LoadPlan(id)
	if err != nil {
		return model.WorkUnit{}, plan.Plan{}, model.WithUnit(err, op, id)
	}
	task, err := plan.Lookup(before, path)
	if err != nil {
		return model.WorkUnit{}, plan.Plan{}, model.WithUnit(err, op, id)
	}
	if task.Done == done {
		return unit, before, nil
	}

	after, err := plan.SetTaskDone(before, path, done)
	if err != nil {
		return model.WorkUnit{}, plan.Plan{}, model.WithUnit(err, op, id)
	}
	if err := t.store.SavePlan(id, after); err != nil {
		return model.WorkUnit{}, plan.Plan{}, model.WithUnit(err, op, id)
	}

	event := journal.EventTaskChecked
	if !done {
		event = journal.EventTaskUnchecked
	}
	t.record(ctx, journal.Entry{UnitID: id, Event: event, Detail: path.String() + " " + task.Description})
	for _, name := range progress.CompletedPhases(before, after) {
		t.record(ctx, journal.Entry{UnitID: id, Event: journal.EventPhaseCompleted, Detail: name})
	}

	unit, err = t.commitProgress(ctx, op, unit, after)
	if err != nil {
		return model.WorkUnit{}, plan.Plan{}, err
	}
	return unit, after, nil
}

// ReplacePlan parses text and installs it as the unit's plan. A malformed
// document leaves the existing plan untouched.
func (t *Tracker) ReplacePlan(ctx context.Context, id, text string) (plan.Plan, error) {
	const op = "replace-plan"
	p, err := plan.Parse(text)
	if err != nil {
		return plan.Plan{}, model.WithUnit(err, op, id)
	}
	unit, err := t.store.Load(id)
	if err != nil {
		return plan.Plan{}, model.WithUnit(err, op, id)
	}
	if err := t.store.SavePlan(id, p); err != nil {
		return plan.Plan{}, model.WithUnit(err, op, id)
	}
	prog := progress.Of(p)
	t.record(ctx, journal.Entry{
		UnitID: id,
		Event:  journal.EventPlanReplaced,
		Detail: fmt.Sprintf("%d phases, %d/%d tasks done", len(p.Phases), prog.CompletedTasks, prog.TotalTasks),
	})
	if _, err := t.commitProgress(ctx, op, unit, p); err != nil {
		return plan.Plan{}, err
	}
	return p, nil
}

// commitProgress applies automatic transitions for p, saves the unit and
// updates its registry row.
func (t *Tracker) commitProgress(ctx context.Context, op string, unit model.WorkUnit, p plan.Plan) (model.WorkUnit, error) {
	from := unit.Status
	steps := autoTransitions(from, progress.Of(p))
	if len(steps) > 0 {
		now := t.now().UTC()
		unit.Status = steps[len(steps)-1].to
		unit.StatusChangedAt = &now
	}

	saved, err := t.store.Save(unit)
	if err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, unit.ID)
	}
	for _, s := range steps {
		t.record(ctx, journal.Entry{UnitID: unit.ID, Event: s.event, From: s.from, To: s.to})
		t.logger.Info("status changed", "unit", unit.ID, "op", op, "status", s.to)
	}
	if err := t.syncRow(ctx, op, saved); err != nil {
		return model.WorkUnit{}, err
	}
	return saved, nil
}

type transition struct {
	event    journal.Event
	from, to model.Status
}

// autoTransitions returns the status steps implied by prog, in order.
func autoTransitions(status model.Status, prog progress.Progress) []transition {
	anyDone := prog.CompletedTasks > 0
	allDone := prog.TotalTasks > 0 && prog.CompletedTasks == prog.TotalTasks

	var steps []transition
	switch status {
	case model.StatusPlanning:
		if !anyDone {
			return nil
		}
		steps = append(steps, transition{journal.EventStarted, model.StatusPlanning, model.StatusInProgress})
		if allDone {
			steps = append(steps, transition{journal.EventFinished, model.StatusInProgress, model.StatusCompleted})
		}
	case model.StatusInProgress:
		if allDone {
			steps = append(steps, transition{journal.EventFinished, model.StatusInProgress, model.StatusCompleted})
		}
	case model.StatusCompleted:
		if !allDone {
			steps = append(steps, transition{journal.EventStatusChanged, model.StatusCompleted, model.StatusInProgress})
		}
	}
	return steps
}

// SetStatus moves a unit to status explicitly. Reverting goes through
// RevertWorkUnit so the plan is reset with it.
func (t *Tracker) SetStatus(ctx context.Context, id string, status model.Status) (model.WorkUnit, error) {
	const op = "set-status"
	if err := model.ValidateStatus(op, id, status); err != nil {
		return model.WorkUnit{}, err
	}
	if status == model.StatusReverted {
		return model.WorkUnit{}, model.Invalid(op, id, "use revert to mark a unit reverted")
	}
	unit, err := t.store.Load(id)
	if err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, id)
	}
	if unit.Status == status {
		return unit, nil
	}

	from := unit.Status
	now := t.now().UTC()
	unit.Status = status
	unit.StatusChangedAt = &now
	saved, err := t.store.Save(unit)
	if err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, id)
	}
	t.record(ctx, journal.Entry{UnitID: id, Event: journal.EventStatusChanged, From: from, To: status})
	t.logger.Info("status changed", "unit", id, "op", op, "status", status)
	if err := t.syncRow(ctx, op, saved); err != nil {
		return model.WorkUnit{}, err
	}
	return saved, nil
}
