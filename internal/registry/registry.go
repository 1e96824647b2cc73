// Package registry maintains the summary table of all work units.
//
// The Registry is a materialized, denormalized cache of fields also stored in
// each unit's metadata. Metadata is the source of truth: the registry can be
// regenerated from it at any time with RebuildFrom.
//
// Registry values are immutable. Upsert and Remove return a new Registry and
// leave the receiver untouched, so a registry can be passed between
// operations without hidden shared state.
package registry

import (
	"github.com/roach88/tracks/internal/model"
)

// Registry is an ordered collection of work-unit summaries keyed by id.
// It never contains two rows with the same id.
type Registry struct {
	rows []model.Summary
}

// New builds a registry from rows. A later row with a repeated id replaces the
// earlier one in place.
func New(rows ...model.Summary) Registry {
	var r Registry
	for _, row := range rows {
		r = r.Upsert(row)
	}
	return r
}

// Upsert inserts summary or replaces the row with the same id. Updates keep the
// row's position; new rows are appended.
func (r Registry) Upsert(summary model.Summary) Registry {
	rows := make([]model.Summary, len(r.rows), len(r.rows)+1)
	copy(rows, r.rows)
	summary.Attributes = model.CloneAttributes(summary.Attributes)
	for i := range rows {
		if rows[i].ID == summary.ID {
			rows[i] = summary
			return Registry{rows: rows}
		}
	}
	return Registry{rows: append(rows, summary)}
}

// Remove drops the row for id. Removing an absent id is a no-op.
func (r Registry) Remove(id string) Registry {
	rows := make([]model.Summary, 0, len(r.rows))
	for _, row := range r.rows {
		if row.ID != id {
			rows = append(rows, row)
		}
	}
	return Registry{rows: rows}
}

// RebuildFrom regenerates a registry from authoritative metadata records, one
// row per id in input order.
func RebuildFrom(units []model.WorkUnit) Registry {
	rows := make([]model.Summary, 0, len(units))
	for _, u := range units {
		rows = append(rows, u.Summary())
	}
	return New(rows...)
}

// Get returns the row for id.
func (r Registry) Get(id string) (model.Summary, bool) {
	for _, row := range r.rows {
		if row.ID == id {
			return row, true
		}
	}
	return model.Summary{}, false
}

// Rows returns a copy of the rows in order.
func (r Registry) Rows() []model.Summary {
	out := make([]model.Summary, len(r.rows))
	copy(out, r.rows)
	return out
}

// IDs returns the row ids in order.
func (r Registry) IDs() []string {
	ids := make([]string, len(r.rows))
	for i, row := range r.rows {
		ids[i] = row.ID
	}
	return ids
}

// Len returns the number of rows.
func (r Registry) Len() int {
	return len(r.rows)
}

// Statistics is a pure aggregation over registry rows.
type Statistics struct {
	Total    int                  `json:"total"`
	ByStatus map[model.Status]int `json:"by_status"`
}

// SummaryStatistics counts rows per status. Every known status is present.
func (r Registry) SummaryStatistics() Statistics {
	stats := Statistics{Total: len(r.rows), ByStatus: make(map[model.Status]int, len(model.Statuses))}
	for _, s := range model.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, row := range r.rows {
		stats.ByStatus[row.Status]++
	}
	return stats
}

// Drift describes disagreement between the registry and the units on disk.
type Drift struct {
	// Missing units exist on disk but have no registry row.
	Missing []string `json:"missing,omitempty"`
	// Orphaned rows reference units that no longer exist on disk.
	Orphaned []string `json:"orphaned,omitempty"`
	// Stale rows disagree with their unit's metadata.
	Stale []string `json:"stale,omitempty"`
}

// Empty reports whether no drift was found.
func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Orphaned) == 0 && len(d.Stale) == 0
}

// Drift compares the registry against the ids present on disk.
func (r Registry) Drift(ids []string) Drift {
	var d Drift
	onDisk := make(map[string]bool, len(ids))
	for _, id := range ids {
		onDisk[id] = true
		if _, ok := r.Get(id); !ok {
			d.Missing = append(d.Missing, id)
		}
	}
	for _, row := range r.rows {
		if !onDisk[row.ID] {
			d.Orphaned = append(d.Orphaned, row.ID)
		}
	}
	return d
}

// StaleAgainst returns the ids whose row differs from the given metadata.
func (r Registry) StaleAgainst(units []model.WorkUnit) []string {
	var stale []string
	for _, u := range units {
		row, ok := r.Get(u.ID)
		if ok && !row.Equal(u.Summary()) {
			stale = append(stale, u.ID)
		}
	}
	return stale
}
