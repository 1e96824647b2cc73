package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/tracks/internal/model"
)

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})(?:[ \t]+(.*))?$`)
	// checkboxCandidate matches anything that looks like a checkbox so that
	// unknown markers fail loudly instead of degrading to notes. Markdown links
	// ("- [docs](...)") have more than one character inside the brackets.
	checkboxCandidate = regexp.MustCompile(`^[-*] \[[^\]]?\]`)
	checkboxPattern   = regexp.MustCompile(`^[-*] \[([ x])\] (.*)$`)
)

const tabWidth = 4

type frame struct {
	indent int
	path   []int
}

// Parse reads a plan document. Errors are MALFORMED_PLAN with the offending line.
func Parse(text string) (Plan, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var p Plan
	var stack []frame
	seen := make(map[string]bool)
	current := -1

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimRight(raw, " \t")
		if line == "" {
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[2])
			if m[1] == "#" && p.Title == "" && current < 0 && len(p.Preamble) == 0 && name != "" {
				p.Title = name
				continue
			}
			if name == "" {
				return Plan{}, model.MalformedPlan(lineNo, "phase heading has no name")
			}
			if seen[name] {
				return Plan{}, model.MalformedPlan(lineNo, fmt.Sprintf("duplicate phase %q", name))
			}
			seen[name] = true
			p.Phases = append(p.Phases, Phase{Name: name})
			current = len(p.Phases) - 1
			stack = stack[:0]
			continue
		}

		indent, body := splitIndent(line)
		if checkboxCandidate.MatchString(body) {
			m := checkboxPattern.FindStringSubmatch(body)
			if m == nil {
				return Plan{}, model.MalformedPlan(lineNo, fmt.Sprintf("unrecognized checkbox %q: markers must be \"[ ]\" or \"[x]\" followed by a description", body))
			}
			desc := strings.TrimSpace(m[2])
			if desc == "" {
				return Plan{}, model.MalformedPlan(lineNo, "checkbox has no description")
			}
			if current < 0 {
				return Plan{}, model.MalformedPlan(lineNo, "checkbox line outside any phase heading")
			}
			task := Task{Description: desc, Done: m[1] == "x"}

			for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
				stack = stack[:len(stack)-1]
			}
			phase := &p.Phases[current]
			if len(stack) == 0 {
				if indent > 0 {
					return Plan{}, model.MalformedPlan(lineNo, "indented checkbox has no enclosing task")
				}
				phase.Tasks = append(phase.Tasks, task)
				stack = append(stack, frame{indent: indent, path: []int{len(phase.Tasks) - 1}})
				continue
			}
			parent := stack[len(stack)-1]
			owner := taskAt(phase.Tasks, parent.path)
			owner.Subtasks = append(owner.Subtasks, task)
			childPath := make([]int, len(parent.path), len(parent.path)+1)
			copy(childPath, parent.path)
			stack = append(stack, frame{indent: indent, path: append(childPath, len(owner.Subtasks)-1)})
			continue
		}

		if current < 0 {
			p.Preamble = append(p.Preamble, line)
		} else {
			p.Phases[current].Notes = append(p.Phases[current].Notes, line)
		}
	}

	return p, nil
}

// splitIndent returns the indentation width (tabs count as tabWidth columns)
// and the remainder of the line.
func splitIndent(line string) (int, string) {
	width := 0
	for i, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += tabWidth
		default:
			return width, line[i:]
		}
	}
	return width, ""
}

// taskAt resolves an index chain to a task pointer. The chain must be valid.
func taskAt(tasks []Task, path []int) *Task {
	t := &tasks[path[0]]
	for _, i := range path[1:] {
		t = &t.Subtasks[i]
	}
	return t
}
