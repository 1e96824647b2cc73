// Package plan converts work-unit plans to and from their checkbox markdown form.
//
// A plan document is both the machine-readable state and the human-editable
// artifact, so there is no separate authoritative encoding. The core contract
// is the round-trip law: for every valid Plan p, Parse(Render(p)) equals p
// structurally (phases, notes, tasks, subtasks and their done flags, in order).
//
// Grammar (line oriented):
//
//	# Title                  first H1 before any phase
//	## Phase name            any other heading starts a phase
//	- [ ] description        top-level task (column 0)
//	  - [x] description      subtask (deeper indentation than its parent)
//	other text               phase notes, or preamble before the first phase
//
// Only "[ ]" and "[x]" are recognized checkbox markers. A checkbox line outside
// a phase, or an indented checkbox line with no enclosing task, is malformed.
package plan
