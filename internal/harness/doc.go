// Package harness runs conformance scenarios against the tracker.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	ids: [t1, t2]            # ids handed out to creates without an explicit id
//	setup:
//	  - op: create
//	    args: { title: "Add dark mode", category: feature }
//	flow:
//	  - op: set_task_done
//	    args: { id: t1, path: "1.1" }
//	    expect:
//	      result: { status: in_progress }
//	  - op: delete
//	    args: { id: missing }
//	    expect:
//	      error: NOT_FOUND
//	assertions:
//	  - type: report
//	    expect: { total: 1 }
//	  - type: unit_report
//	    unit: t1
//	    expect: { progress: { percent: 50 } }
//	  - type: journal
//	    unit: t1
//	    events: [created, task_checked, started]
//
// # Operations
//
//   - create: title, category, id, plan, spec, attributes
//   - replace_plan: id, plan
//   - set_task_done: id, path, done (default true)
//   - set_status: id, status
//   - delete, revert, show: id
//   - status, rebuild, check: no args
//   - corrupt_metadata, remove_plan: id (fault injection on the unit's files)
//   - corrupt_registry: no args
//
// # Assertion Types
//
//   - report: subset match against the status report
//   - unit_report: subset match against one unit's entry in the report
//   - journal: exact event sequence recorded for a unit
//   - registry: exact registry ids in row order
//   - drift: subset match against the registry drift check
//
// Expected values are compared after a JSON round trip, so nested maps match
// the JSON field names and numbers compare regardless of YAML typing.
//
// # Deterministic Testing
//
// Every run uses a fresh temporary root, a stepping clock starting at
// testutil.Epoch and the scenario's id sequence, so traces are identical
// across runs and can be compared against golden files.
package harness
