// Package store persists work units on the local filesystem.
//
// Each unit owns a directory under <root>/units/<id> holding three documents:
//
//   - metadata.json: identity, lifecycle status and timestamps
//   - spec.md: free-form specification text
//   - plan.md: checkbox plan parsed by internal/plan
//
// # Write Discipline
//
//   - Every document is replaced with temp-file + fsync + rename, so a crash
//     leaves either the old or the new content.
//   - Create assembles the unit in a hidden staging directory and renames it
//     into place, so a unit is either fully present or absent.
//   - Delete renames the unit to a hidden trash directory before removing it.
//   - Hidden (dot-prefixed) directories are never reported as units.
//
// # Metadata Validation
//
// Metadata is checked against the embedded CUE definition #WorkUnit before it
// is decoded. Unknown fields, unknown statuses and non-string attribute values
// are reported as CORRUPT along with the file path.
package store
