package plan

import (
	"fmt"

	"github.com/roach88/tracks/internal/model"
)

// Lookup returns the task at path.
func Lookup(p Plan, path TaskPath) (Task, error) {
	t, err := resolve(&p, path)
	if err != nil {
		return Task{}, err
	}
	return *t, nil
}

// SetTaskDone returns a copy of p with the done flag of the task at path set
// to done. The input plan is never modified.
func SetTaskDone(p Plan, path TaskPath, done bool) (Plan, error) {
	out := p.Clone()
	t, err := resolve(&out, path)
	if err != nil {
		return Plan{}, err
	}
	t.Done = done
	return out, nil
}

// Reset returns a copy of p with every checkbox cleared.
func Reset(p Plan) Plan {
	out := p.Clone()
	for i := range out.Phases {
		resetTasks(out.Phases[i].Tasks)
	}
	return out
}

func resetTasks(tasks []Task) {
	for i := range tasks {
		tasks[i].Done = false
		resetTasks(tasks[i].Subtasks)
	}
}

func resolve(p *Plan, path TaskPath) (*Task, error) {
	if path.Phase < 0 || path.Phase >= len(p.Phases) {
		return nil, outOfRange(path, fmt.Sprintf("plan has %d phase(s)", len(p.Phases)))
	}
	if len(path.Indices) == 0 {
		return nil, outOfRange(path, "path names a phase, not a task")
	}
	tasks := p.Phases[path.Phase].Tasks
	var t *Task
	for depth, i := range path.Indices {
		if i < 0 || i >= len(tasks) {
			return nil, outOfRange(path, fmt.Sprintf("level %d has %d task(s)", depth+1, len(tasks)))
		}
		t = &tasks[i]
		tasks = t.Subtasks
	}
	return t, nil
}

func outOfRange(path TaskPath, detail string) error {
	return model.IndexOutOfRange(fmt.Sprintf("task %s does not resolve: %s", path, detail))
}
