// Package report aggregates the registry and per-unit progress into a status
// overview with rule-based recommendations.
//
// Building a report never fails because of one unit: unreadable metadata or
// a malformed plan marks that unit DataUnavailable and the report continues
// with the registry row's fields.
package report

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/progress"
	"github.com/roach88/tracks/internal/registry"
)

// Source provides authoritative unit data. *store.Store satisfies it.
type Source interface {
	Load(id string) (model.WorkUnit, error)
	LoadPlan(id string) (plan.Plan, error)
	ListIDs() ([]string, error)
}

// Options tunes report generation.
type Options struct {
	// StalePlanningAfter flags units in planning longer than this.
	// Zero disables the check.
	StalePlanningAfter time.Duration

	// NextTaskLimit bounds the pending tasks listed per unit.
	NextTaskLimit int

	// Now is the report time. Zero means time.Now().
	Now time.Time

	Logger *slog.Logger
}

// Recommendation codes.
const (
	RecMultipleInProgress = "MULTIPLE_IN_PROGRESS"
	RecStalePlanning      = "STALE_PLANNING"
	RecNoneInProgress     = "NONE_IN_PROGRESS"
	RecNoUnits            = "NO_UNITS"
	RecBlocked            = "BLOCKED"
	RecDataUnavailable    = "DATA_UNAVAILABLE"
	RecRegistryDrift      = "REGISTRY_DRIFT"
)

// Recommendation is one suggested next action.
type Recommendation struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Units   []string `json:"units,omitempty"`
}

// UnitReport is one unit's entry in the report.
type UnitReport struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Category     model.Category     `json:"category"`
	Status       model.Status       `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	StatusSince  time.Time          `json:"status_since"`
	Attributes   map[string]string  `json:"attributes,omitempty"`
	Progress     progress.Progress  `json:"progress"`
	CurrentPhase string             `json:"current_phase,omitempty"`
	NextTasks    []progress.Pending `json:"next_tasks,omitempty"`

	// NoProgressData is set when the unit has no plan document.
	NoProgressData bool `json:"no_progress_data,omitempty"`

	// DataUnavailable is set when the unit's files could not be read.
	DataUnavailable bool   `json:"data_unavailable,omitempty"`
	Problem         string `json:"problem,omitempty"`
}

// Group lists the units sharing one status.
type Group struct {
	Status model.Status `json:"status"`
	Units  []UnitReport `json:"units"`
}

// StatusReport is the aggregate overview.
type StatusReport struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	Total           int                  `json:"total"`
	ByStatus        map[model.Status]int `json:"by_status"`
	Tasks           progress.Progress    `json:"tasks"`
	Groups          []Group              `json:"groups"`
	Units           []UnitReport         `json:"units"`
	Unavailable     int                  `json:"unavailable"`
	Drift           registry.Drift       `json:"drift"`
	Recommendations []Recommendation     `json:"recommendations"`
}

// Build produces the report for every row of reg.
func Build(reg registry.Registry, src Source, opts Options) StatusReport {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	rep := StatusReport{
		GeneratedAt: now.UTC(),
		Total:       reg.Len(),
		ByStatus:    make(map[model.Status]int, len(model.Statuses)),
		Units:       []UnitReport{},
	}
	for _, s := range model.Statuses {
		rep.ByStatus[s] = 0
	}

	var (
		loaded []model.WorkUnit
		totals []progress.Progress
	)
	for _, row := range reg.Rows() {
		entry, unit, ok := buildUnit(row, src, opts.NextTaskLimit)
		if entry.DataUnavailable {
			rep.Unavailable++
			logger.Warn("unit data unavailable",
				"unit", row.ID,
				"code", model.CodePartialData,
				"error", entry.Problem,
			)
		}
		if ok {
			loaded = append(loaded, unit)
		}
		if !entry.DataUnavailable && !entry.NoProgressData {
			totals = append(totals, entry.Progress)
		}
		rep.ByStatus[entry.Status]++
		rep.Units = append(rep.Units, entry)
	}
	rep.Tasks = progress.Sum(totals...)
	rep.Groups = groupUnits(rep.Units)

	ids, err := src.ListIDs()
	if err != nil {
		logger.Warn("list units for drift check", "error", err)
	} else {
		rep.Drift = reg.Drift(ids)
		rep.Drift.Stale = reg.StaleAgainst(loaded)
	}

	rep.Recommendations = recommend(rep, now, opts.StalePlanningAfter)
	return rep
}

// buildUnit returns the entry for row and, when metadata loaded, the unit.
func buildUnit(row model.Summary, src Source, limit int) (UnitReport, model.WorkUnit, bool) {
	entry := UnitReport{
		ID:          row.ID,
		Title:       row.Title,
		Category:    row.Category,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		StatusSince: row.CreatedAt,
		Attributes:  row.Attributes,
	}

	unit, err := src.Load(row.ID)
	if err != nil {
		entry.DataUnavailable = true
		entry.Problem = err.Error()
		return entry, model.WorkUnit{}, false
	}
	entry.Title = unit.Title
	entry.Category = unit.Category
	entry.Status = unit.Status
	entry.CreatedAt = unit.CreatedAt
	entry.UpdatedAt = unit.UpdatedAt
	entry.StatusSince = unit.StatusSince()
	entry.Attributes = unit.Attributes

	p, err := src.LoadPlan(row.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		entry.NoProgressData = true
		return entry, unit, true
	case err != nil:
		entry.DataUnavailable = true
		entry.Problem = err.Error()
		return entry, unit, true
	}

	entry.Progress = progress.Of(p)
	if ph, ok := progress.CurrentPhase(p); ok {
		entry.CurrentPhase = ph.Name
	}
	entry.NextTasks = progress.NextPendingTasks(p, limit)
	return entry, unit, true
}

func groupUnits(units []UnitReport) []Group {
	groups := []Group{}
	for _, s := range model.Statuses {
		var members []UnitReport
		for _, u := range units {
			if u.Status == s {
				members = append(members, u)
			}
		}
		if len(members) > 0 {
			groups = append(groups, Group{Status: s, Units: members})
		}
	}
	return groups
}

func recommend(rep StatusReport, now time.Time, staleAfter time.Duration) []Recommendation {
	recs := []Recommendation{}
	if rep.Total == 0 {
		recs = append(recs, Recommendation{
			Code:    RecNoUnits,
			Message: "No work units yet; create one with `tracks new`.",
		})
	}

	var inProgress, stale, blocked, unavailable []string
	for _, u := range rep.Units {
		if u.DataUnavailable {
			unavailable = append(unavailable, u.ID)
		}
		switch u.Status {
		case model.StatusInProgress:
			inProgress = append(inProgress, u.ID)
		case model.StatusBlocked:
			blocked = append(blocked, u.ID)
		case model.StatusPlanning:
			if staleAfter > 0 && now.Sub(u.StatusSince) > staleAfter {
				stale = append(stale, u.ID)
			}
		}
	}

	switch {
	case len(inProgress) > 1:
		recs = append(recs, Recommendation{
			Code:    RecMultipleInProgress,
			Message: fmt.Sprintf("%d units are in progress; focus on finishing one before continuing the others.", len(inProgress)),
			Units:   inProgress,
		})
	case len(inProgress) == 0 && rep.Total > 0:
		recs = append(recs, Recommendation{
			Code:    RecNoneInProgress,
			Message: "No unit is in progress; start one.",
		})
	}
	if len(stale) > 0 {
		recs = append(recs, Recommendation{
			Code:    RecStalePlanning,
			Message: fmt.Sprintf("%s in planning for more than %s; advance or cancel.", countUnits(len(stale)), formatDays(staleAfter)),
			Units:   stale,
		})
	}
	if len(blocked) > 0 {
		recs = append(recs, Recommendation{
			Code:    RecBlocked,
			Message: fmt.Sprintf("%s blocked; resolve the blockers.", countUnits(len(blocked))),
			Units:   blocked,
		})
	}
	if len(unavailable) > 0 {
		recs = append(recs, Recommendation{
			Code:    RecDataUnavailable,
			Message: fmt.Sprintf("%s could not be read; inspect the files or run `tracks rebuild`.", countUnits(len(unavailable))),
			Units:   unavailable,
		})
	}
	if !rep.Drift.Empty() {
		var ids []string
		ids = append(ids, rep.Drift.Missing...)
		ids = append(ids, rep.Drift.Orphaned...)
		ids = append(ids, rep.Drift.Stale...)
		recs = append(recs, Recommendation{
			Code:    RecRegistryDrift,
			Message: "The registry disagrees with the units on disk; run `tracks rebuild`.",
			Units:   ids,
		})
	}
	return recs
}

func countUnits(n int) string {
	if n == 1 {
		return "1 unit"
	}
	return fmt.Sprintf("%d units", n)
}

func formatDays(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	if days >= 1 && d%(24*time.Hour) == 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}
