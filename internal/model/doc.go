// Package model provides the domain types shared by every tracks package.
//
// This package contains type definitions, validation and the error taxonomy
// only. All other internal packages import model; model imports nothing
// internal, so it stays the foundational layer.
//
// Key design constraints:
//   - Metadata is the source of truth; registry rows are derived from it
//   - All JSON tags use snake_case
//   - Timestamps are UTC and UpdatedAt never precedes CreatedAt
package model
