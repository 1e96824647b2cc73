package plan

import (
	"fmt"
	"strings"

	"github.com/roach88/tracks/internal/model"
)

const subtaskIndent = "  "

// Render writes the plan as a checkbox markdown document. Blocks are separated
// by a blank line and subtasks are indented two spaces per level.
func Render(p Plan) string {
	var blocks []string
	if p.Title != "" {
		blocks = append(blocks, "# "+p.Title)
	}
	if len(p.Preamble) > 0 {
		blocks = append(blocks, strings.Join(p.Preamble, "\n"))
	}
	for _, ph := range p.Phases {
		blocks = append(blocks, "## "+ph.Name)
		if len(ph.Notes) > 0 {
			blocks = append(blocks, strings.Join(ph.Notes, "\n"))
		}
		if len(ph.Tasks) > 0 {
			var b strings.Builder
			renderTasks(&b, ph.Tasks, 0)
			blocks = append(blocks, strings.TrimSuffix(b.String(), "\n"))
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func renderTasks(b *strings.Builder, tasks []Task, depth int) {
	for _, t := range tasks {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(b, "%s- [%s] %s\n", strings.Repeat(subtaskIndent, depth), mark, t.Description)
		renderTasks(b, t.Subtasks, depth+1)
	}
}

// Validate checks that a plan can be rendered and parsed back unchanged.
func Validate(p Plan) error {
	if p.Title != "" && !singleLine(p.Title) {
		return model.Invalid("validate-plan", "", "title must be a single trimmed line")
	}
	if err := validateNotes(p.Preamble, "preamble"); err != nil {
		return err
	}
	seen := make(map[string]bool, len(p.Phases))
	for i, ph := range p.Phases {
		if ph.Name == "" || !singleLine(ph.Name) {
			return model.Invalid("validate-plan", "", fmt.Sprintf("phase %d: name must be a non-empty single trimmed line", i+1))
		}
		if seen[ph.Name] {
			return model.Invalid("validate-plan", "", fmt.Sprintf("duplicate phase %q", ph.Name))
		}
		seen[ph.Name] = true
		if err := validateNotes(ph.Notes, "phase "+ph.Name); err != nil {
			return err
		}
		var bad error
		Walk(Plan{Phases: []Phase{ph}}, func(path TaskPath, t Task) bool {
			if t.Description == "" || !singleLine(t.Description) {
				path.Phase = i
				bad = model.Invalid("validate-plan", "", fmt.Sprintf("task %s: description must be a non-empty single trimmed line", path))
				return false
			}
			return true
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}

func validateNotes(lines []string, where string) error {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || strings.ContainsAny(line, "\r\n") || strings.TrimRight(line, " \t") != line {
			return model.Invalid("validate-plan", "", where+": note lines must be non-blank single lines")
		}
		if headingPattern.MatchString(line) {
			return model.Invalid("validate-plan", "", where+": note line looks like a heading")
		}
		if _, body := splitIndent(line); checkboxCandidate.MatchString(body) {
			return model.Invalid("validate-plan", "", where+": note line looks like a checkbox")
		}
	}
	return nil
}

func singleLine(s string) bool {
	return s == strings.TrimSpace(s) && !strings.ContainsAny(s, "\r\n")
}
