package model

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a work unit.
type Status string

const (
	StatusPlanning   Status = "planning"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
	StatusReverted   Status = "reverted"
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusInProgress,
	StatusPlanning,
	StatusBlocked,
	StatusCompleted,
	StatusCancelled,
	StatusReverted,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable form of the status.
func (s Status) Label() string {
	switch s {
	case StatusPlanning:
		return "Planning"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusBlocked:
		return "Blocked"
	case StatusCancelled:
		return "Cancelled"
	case StatusReverted:
		return "Reverted"
	default:
		return string(s)
	}
}

// Category tags the kind of effort a work unit represents.
// The set is open; the constants below are the canonical values.
type Category string

const (
	CategoryFeature   Category = "feature"
	CategoryBugFix    Category = "bugfix"
	CategoryConnector Category = "connector"
	CategoryStorage   Category = "storage"
)

// WorkUnit is one tracked effort with its own spec, plan and metadata.
type WorkUnit struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Category        Category          `json:"category"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	StatusChangedAt *time.Time        `json:"status_changed_at,omitempty"`
	RevertedAt      *time.Time        `json:"reverted_at,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// StatusSince returns when the unit entered its current status.
func (u WorkUnit) StatusSince() time.Time {
	if u.StatusChangedAt != nil {
		return *u.StatusChangedAt
	}
	return u.CreatedAt
}

// Clone returns a deep copy of the unit.
func (u WorkUnit) Clone() WorkUnit {
	out := u
	out.Attributes = CloneAttributes(u.Attributes)
	if u.StatusChangedAt != nil {
		t := *u.StatusChangedAt
		out.StatusChangedAt = &t
	}
	if u.RevertedAt != nil {
		t := *u.RevertedAt
		out.RevertedAt = &t
	}
	return out
}

// Summary returns the registry row derived from the unit's metadata.
func (u WorkUnit) Summary() Summary {
	return Summary{
		ID:         u.ID,
		Title:      u.Title,
		Category:   u.Category,
		Status:     u.Status,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		Attributes: CloneAttributes(u.Attributes),
	}
}

// Summary is one registry row: a denormalized copy of metadata fields.
type Summary struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Category   Category          `json:"category"`
	Status     Status            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Equal reports whether two summaries carry the same values.
func (s Summary) Equal(other Summary) bool {
	if s.ID != other.ID || s.Title != other.Title || s.Category != other.Category || s.Status != other.Status {
		return false
	}
	if !s.CreatedAt.Equal(other.CreatedAt) || !s.UpdatedAt.Equal(other.UpdatedAt) {
		return false
	}
	if len(s.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range s.Attributes {
		if ov, ok := other.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// CloneAttributes copies an attribute map. Empty maps become nil.
func CloneAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// AttributeKeys returns the attribute keys in sorted order.
func AttributeKeys(attrs map[string]string) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
