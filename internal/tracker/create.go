package tracker

import (
	"context"
	"errors"

	"github.com/roach88/tracks/internal/journal"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/store"
)

// maxGeneratedAttempts bounds retries when a generated id collides.
const maxGeneratedAttempts = 3

// CreateRequest describes a unit to create.
type CreateRequest struct {
	// ID is used verbatim when set; otherwise one is generated.
	ID         string
	Title      string
	Category   model.Category
	Attributes map[string]string

	// Spec is the initial specification text. Empty means a placeholder.
	Spec string

	// Plan is the initial plan document. Empty means an empty plan.
	Plan string
}

// CreateWorkUnit persists a new unit in status planning and registers it.
// The unit is removed again if it cannot be registered.
func (t *Tracker) CreateWorkUnit(ctx context.Context, req CreateRequest) (model.WorkUnit, error) {
	const op = "create"
	if req.Category == "" {
		req.Category = model.CategoryFeature
	}
	if !t.cfg.AllowsCategory(req.Category) {
		return model.WorkUnit{}, model.Invalid(op, req.ID, "category "+string(req.Category)+" is not allowed by config")
	}

	var initial plan.Plan
	if req.Plan != "" {
		p, err := plan.Parse(req.Plan)
		if err != nil {
			return model.WorkUnit{}, model.WithUnit(err, op, req.ID)
		}
		initial = p
	}

	in := store.CreateInput{
		ID:         req.ID,
		Title:      req.Title,
		Category:   req.Category,
		Attributes: req.Attributes,
		Spec:       req.Spec,
		Plan:       initial,
	}

	var (
		unit model.WorkUnit
		err  error
	)
	if req.ID != "" {
		unit, err = t.store.CreateWith(in)
	} else {
		for attempt := 1; attempt <= maxGeneratedAttempts; attempt++ {
			in.ID = t.ids.Generate(model.NormalizeTitle(req.Title))
			unit, err = t.store.CreateWith(in)
			if !errors.Is(err, model.ErrAlreadyExists) {
				break
			}
			t.logger.Debug("generated id collided", "unit", in.ID, "attempt", attempt)
		}
	}
	if err != nil {
		return model.WorkUnit{}, err
	}

	if err := t.syncRow(ctx, op, unit); err != nil {
		if delErr := t.store.Delete(unit.ID); delErr != nil {
			t.logger.Error("roll back unregistered unit", "unit", unit.ID, "error", delErr)
		}
		return model.WorkUnit{}, err
	}

	t.record(ctx, journal.Entry{
		UnitID: unit.ID,
		Event:  journal.EventCreated,
		To:     unit.Status,
		Detail: unit.Title,
		At:     unit.CreatedAt,
	})
	t.logger.Info("created work unit", "unit", unit.ID, "status", unit.Status)
	return unit, nil
}
