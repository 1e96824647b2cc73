package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tracks/internal/model"
)

// Plan is an ordered sequence of phases belonging to one work unit.
type Plan struct {
	Title    string   `json:"title,omitempty"`
	Preamble []string `json:"preamble,omitempty"`
	Phases   []Phase  `json:"phases"`
}

// Phase groups tasks under a heading. Name is unique within a plan.
type Phase struct {
	Name  string   `json:"name"`
	Notes []string `json:"notes,omitempty"`
	Tasks []Task   `json:"tasks"`
}

// Completed reports whether every task in the phase is complete.
// A phase with no tasks is vacuously complete.
func (p Phase) Completed() bool {
	for _, t := range p.Tasks {
		if !t.Complete() {
			return false
		}
	}
	return true
}

// Task is a checkbox item with optional nested subtasks.
type Task struct {
	Description string `json:"description"`
	Done        bool   `json:"done"`
	Subtasks    []Task `json:"subtasks,omitempty"`
}

// IsLeaf reports whether the task has no subtasks.
func (t Task) IsLeaf() bool {
	return len(t.Subtasks) == 0
}

// Complete reports the derived completion of the task. A leaf is complete when
// checked; a parent is complete only when all of its subtasks are, regardless
// of its own checkbox.
func (t Task) Complete() bool {
	if t.IsLeaf() {
		return t.Done
	}
	for _, st := range t.Subtasks {
		if !st.Complete() {
			return false
		}
	}
	return true
}

// TaskPath addresses a task: a phase index plus the index chain through
// top-level tasks and subtasks. All indices are 0-based.
type TaskPath struct {
	Phase   int
	Indices []int
}

// Path builds a TaskPath from 0-based indices.
func Path(phase int, indices ...int) TaskPath {
	return TaskPath{Phase: phase, Indices: append([]int(nil), indices...)}
}

// String renders the 1-based dotted form shown to users, e.g. "2.1.3".
func (p TaskPath) String() string {
	parts := make([]string, 0, len(p.Indices)+1)
	parts = append(parts, strconv.Itoa(p.Phase+1))
	for _, i := range p.Indices {
		parts = append(parts, strconv.Itoa(i+1))
	}
	return strings.Join(parts, ".")
}

// Child returns the path of the i-th subtask of the task at p.
func (p TaskPath) Child(i int) TaskPath {
	indices := make([]int, len(p.Indices), len(p.Indices)+1)
	copy(indices, p.Indices)
	return TaskPath{Phase: p.Phase, Indices: append(indices, i)}
}

// ParseTaskPath parses the 1-based dotted form ("phase.task[.subtask...]").
func ParseTaskPath(s string) (TaskPath, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return TaskPath{}, model.Invalid("parse-task-path", "", fmt.Sprintf("task path %q must be phase.task[.subtask...]", s))
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return TaskPath{}, model.Invalid("parse-task-path", "", fmt.Sprintf("task path %q: %q is not a positive number", s, part))
		}
		nums[i] = n - 1
	}
	return TaskPath{Phase: nums[0], Indices: nums[1:]}, nil
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := Plan{Title: p.Title, Preamble: cloneLines(p.Preamble)}
	if p.Phases != nil {
		out.Phases = make([]Phase, len(p.Phases))
		for i, ph := range p.Phases {
			out.Phases[i] = Phase{Name: ph.Name, Notes: cloneLines(ph.Notes), Tasks: cloneTasks(ph.Tasks)}
		}
	}
	return out
}

// Phase returns the phase with the given name.
func (p Plan) Phase(name string) (Phase, bool) {
	for _, ph := range p.Phases {
		if ph.Name == name {
			return ph, true
		}
	}
	return Phase{}, false
}

// TaskCount returns the number of tasks at every level.
func (p Plan) TaskCount() int {
	n := 0
	Walk(p, func(TaskPath, Task) bool {
		n++
		return true
	})
	return n
}

func cloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = Task{Description: t.Description, Done: t.Done, Subtasks: cloneTasks(t.Subtasks)}
	}
	return out
}

func cloneLines(lines []string) []string {
	if lines == nil {
		return nil
	}
	return append([]string(nil), lines...)
}

// Equal reports structural equality. Nil and empty slices are equivalent.
func Equal(a, b Plan) bool {
	if a.Title != b.Title || !linesEqual(a.Preamble, b.Preamble) || len(a.Phases) != len(b.Phases) {
		return false
	}
	for i := range a.Phases {
		pa, pb := a.Phases[i], b.Phases[i]
		if pa.Name != pb.Name || !linesEqual(pa.Notes, pb.Notes) || !tasksEqual(pa.Tasks, pb.Tasks) {
			return false
		}
	}
	return true
}

func tasksEqual(a, b []Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Description != b[i].Description || a[i].Done != b[i].Done {
			return false
		}
		if !tasksEqual(a[i].Subtasks, b[i].Subtasks) {
			return false
		}
	}
	return true
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
