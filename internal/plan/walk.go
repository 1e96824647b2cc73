package plan

// Leaf is a leaf task together with its path.
type Leaf struct {
	Path TaskPath
	Task Task
}

// Walk visits every task in document order (parents before their subtasks).
// Returning false from fn stops the walk.
func Walk(p Plan, fn func(path TaskPath, t Task) bool) {
	for i, ph := range p.Phases {
		if !walkTasks(ph.Tasks, TaskPath{Phase: i}, fn) {
			return
		}
	}
}

func walkTasks(tasks []Task, parent TaskPath, fn func(TaskPath, Task) bool) bool {
	for i, t := range tasks {
		path := parent.Child(i)
		if !fn(path, t) {
			return false
		}
		if !walkTasks(t.Subtasks, path, fn) {
			return false
		}
	}
	return true
}

// Leaves returns every leaf task in document order.
func Leaves(p Plan) []Leaf {
	var leaves []Leaf
	Walk(p, func(path TaskPath, t Task) bool {
		if t.IsLeaf() {
			leaves = append(leaves, Leaf{Path: path, Task: t})
		}
		return true
	})
	return leaves
}

// PhaseLeaves returns the leaves of a single phase.
func PhaseLeaves(p Plan, phase int) []Leaf {
	if phase < 0 || phase >= len(p.Phases) {
		return nil
	}
	var leaves []Leaf
	walkTasks(p.Phases[phase].Tasks, TaskPath{Phase: phase}, func(path TaskPath, t Task) bool {
		if t.IsLeaf() {
			leaves = append(leaves, Leaf{Path: path, Task: t})
		}
		return true
	})
	return leaves
}
