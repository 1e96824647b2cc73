// Package progress derives completion figures from a parsed plan.
//
// Only leaf tasks are counted: a task with subtasks contributes its subtasks,
// never itself, so totals are not inflated and checking a leaf can never lower
// the percentage.
package progress

import (
	"math"

	"github.com/roach88/tracks/internal/plan"
)

// Progress is the leaf-level completion of a plan.
type Progress struct {
	CompletedTasks int `json:"completed_tasks"`
	TotalTasks     int `json:"total_tasks"`
	Percent        int `json:"percent"`
}

// Of computes the progress of p. An empty plan is vacuously complete (100%).
func Of(p plan.Plan) Progress {
	var out Progress
	for _, leaf := range plan.Leaves(p) {
		out.TotalTasks++
		if leaf.Task.Done {
			out.CompletedTasks++
		}
	}
	out.Percent = percent(out.CompletedTasks, out.TotalTasks)
	return out
}

// Sum aggregates several progress figures into one.
func Sum(ps ...Progress) Progress {
	var out Progress
	for _, p := range ps {
		out.CompletedTasks += p.CompletedTasks
		out.TotalTasks += p.TotalTasks
	}
	out.Percent = percent(out.CompletedTasks, out.TotalTasks)
	return out
}

func percent(completed, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// CurrentPhase returns the first phase that is not fully complete.
func CurrentPhase(p plan.Plan) (plan.Phase, bool) {
	if i := CurrentPhaseIndex(p); i >= 0 {
		return p.Phases[i], true
	}
	return plan.Phase{}, false
}

// CurrentPhaseIndex returns the index of the first incomplete phase, or -1.
func CurrentPhaseIndex(p plan.Plan) int {
	for i, ph := range p.Phases {
		if !ph.Completed() {
			return i
		}
	}
	return -1
}

// Pending is an incomplete leaf task and where to find it.
type Pending struct {
	Path        plan.TaskPath `json:"-"`
	PathLabel   string        `json:"path"`
	Phase       string        `json:"phase"`
	Description string        `json:"description"`
}

// NextPendingTasks returns the first limit incomplete leaf tasks in document order.
func NextPendingTasks(p plan.Plan, limit int) []Pending {
	if limit <= 0 {
		return nil
	}
	var out []Pending
	for _, leaf := range plan.Leaves(p) {
		if leaf.Task.Done {
			continue
		}
		out = append(out, Pending{
			Path:        leaf.Path,
			PathLabel:   leaf.Path.String(),
			Phase:       p.Phases[leaf.Path.Phase].Name,
			Description: leaf.Task.Description,
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

// PhaseStatus is the per-phase breakdown shown by detail views.
type PhaseStatus struct {
	Name      string   `json:"name"`
	Completed bool     `json:"completed"`
	Progress  Progress `json:"progress"`
}

// PhaseProgress returns progress for every phase in plan order.
func PhaseProgress(p plan.Plan) []PhaseStatus {
	out := make([]PhaseStatus, 0, len(p.Phases))
	for i, ph := range p.Phases {
		var pr Progress
		for _, leaf := range plan.PhaseLeaves(p, i) {
			pr.TotalTasks++
			if leaf.Task.Done {
				pr.CompletedTasks++
			}
		}
		pr.Percent = percent(pr.CompletedTasks, pr.TotalTasks)
		out = append(out, PhaseStatus{Name: ph.Name, Completed: ph.Completed(), Progress: pr})
	}
	return out
}

// CompletedPhases returns the names of phases complete in after but not in before.
// Phases are matched by name.
func CompletedPhases(before, after plan.Plan) []string {
	var out []string
	for _, ph := range after.Phases {
		if !ph.Completed() || len(ph.Tasks) == 0 {
			continue
		}
		if prev, ok := before.Phase(ph.Name); ok && prev.Completed() {
			continue
		}
		out = append(out, ph.Name)
	}
	return out
}
