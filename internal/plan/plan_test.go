package plan

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracks/internal/model"
)

func samplePlan() Plan {
	return Plan{
		Title:    "Implementation Plan: Add dark mode",
		Preamble: []string{"Tracks the dark mode rollout."},
		Phases: []Phase{
			{
				Name:  "Phase 1: Setup",
				Notes: []string{"Prepare theme tokens first."},
				Tasks: []Task{
					{Description: "Create theme tokens", Done: true},
					{Description: "Wire toggle", Subtasks: []Task{
						{Description: "Add settings entry", Done: true},
						{Description: "Persist preference"},
					}},
				},
			},
			{
				Name:  "Phase 2: Testing",
				Tasks: []Task{{Description: "Snapshot tests"}},
			},
		},
	}
}

func TestRender_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render_sample", []byte(Render(samplePlan())))
}

func TestParse_Sample(t *testing.T) {
	text := Render(samplePlan())

	p, err := Parse(text)
	require.NoError(t, err)
	assert.True(t, Equal(samplePlan(), p))
	assert.Equal(t, "Implementation Plan: Add dark mode", p.Title)
	require.Len(t, p.Phases, 2)
	assert.Equal(t, "Phase 1: Setup", p.Phases[0].Name)
	require.Len(t, p.Phases[0].Tasks[1].Subtasks, 2)
	assert.True(t, p.Phases[0].Tasks[1].Subtasks[0].Done)
}

func TestParse_HandEditedDocument(t *testing.T) {
	text := "# Plan\r\n" +
		"\r\n" +
		"## Setup\r\n" +
		"* [x] Install deps   \r\n" +
		"\t- [ ] Nested with a tab\r\n" +
		"      - [x] Deeper\r\n" +
		"    - [ ] Back to second level\r\n" +
		"- [ ] Second top-level\r\n" +
		"Some trailing note\r\n" +
		"- [docs](https://example.com) are a link, not a checkbox\r\n" +
		"### Testing\r\n" +
		"- [ ] Run suite\r\n"

	p, err := Parse(text)
	require.NoError(t, err)

	require.Len(t, p.Phases, 2)
	setup := p.Phases[0]
	require.Len(t, setup.Tasks, 2)
	assert.Equal(t, "Install deps", setup.Tasks[0].Description)
	assert.True(t, setup.Tasks[0].Done)
	require.Len(t, setup.Tasks[0].Subtasks, 2)
	assert.Equal(t, "Nested with a tab", setup.Tasks[0].Subtasks[0].Description)
	require.Len(t, setup.Tasks[0].Subtasks[0].Subtasks, 1)
	assert.Equal(t, "Deeper", setup.Tasks[0].Subtasks[0].Subtasks[0].Description)
	assert.Equal(t, "Back to second level", setup.Tasks[0].Subtasks[1].Description)
	assert.Equal(t, []string{"Some trailing note", "- [docs](https://example.com) are a link, not a checkbox"}, setup.Notes)
	assert.Equal(t, "Testing", p.Phases[1].Name)
}

func TestParse_Empty(t *testing.T) {
	p, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, p.Phases)
	assert.Equal(t, "", Render(p))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"checkbox before any phase", "# Plan\n- [ ] orphan\n", 2},
		{"indented checkbox before any phase", "  - [ ] orphan\n", 1},
		{"indented checkbox without parent task", "## Setup\n  - [ ] orphan subtask\n", 2},
		{"in-progress marker", "## Setup\n- [~] working\n", 2},
		{"upper-case marker", "## Setup\n- [X] done\n", 2},
		{"empty marker", "## Setup\n- [] nothing\n", 2},
		{"missing description", "## Setup\n- [ ]\n", 2},
		{"duplicate phase", "## Setup\n## Setup\n", 2},
		{"nameless phase", "## Setup\n##\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrMalformedPlan), err.Error())

			var e *model.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.line, e.Line)
		})
	}
}

func TestRoundTrip_Examples(t *testing.T) {
	plans := []Plan{
		{},
		{Title: "Only a title"},
		{Phases: []Phase{{Name: "Empty phase"}}},
		{Preamble: []string{"intro", "  indented intro"}, Phases: []Phase{{Name: "A", Tasks: []Task{{Description: "[x] looks odd but is text"}}}}},
		samplePlan(),
	}

	for _, p := range plans {
		require.NoError(t, Validate(p))
		got, err := Parse(Render(p))
		require.NoError(t, err)
		assert.True(t, Equal(p, got), "round trip mismatch for:\n%s", Render(p))
	}
}

func TestRoundTrip_Generated(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		p := randomPlan(rng)
		require.NoError(t, Validate(p))

		text := Render(p)
		got, err := Parse(text)
		require.NoError(t, err, text)
		require.True(t, Equal(p, got), "round trip mismatch:\n%s", text)

		// Rendering is a fixed point after one round trip.
		assert.Equal(t, text, Render(got))
	}
}

func randomPlan(rng *rand.Rand) Plan {
	var p Plan
	if rng.Intn(2) == 0 {
		p.Title = "Plan " + word(rng)
	}
	if rng.Intn(3) == 0 {
		p.Preamble = []string{"context " + word(rng)}
	}
	for i, n := 0, rng.Intn(4); i < n; i++ {
		ph := Phase{Name: "Phase " + string(rune('A'+i)) + " " + word(rng)}
		if rng.Intn(3) == 0 {
			ph.Notes = []string{"note " + word(rng)}
		}
		ph.Tasks = randomTasks(rng, 0)
		p.Phases = append(p.Phases, ph)
	}
	return p
}

func randomTasks(rng *rand.Rand, depth int) []Task {
	if depth > 2 {
		return nil
	}
	var tasks []Task
	for i, n := 0, rng.Intn(4); i < n; i++ {
		t := Task{Description: "task " + word(rng), Done: rng.Intn(2) == 0}
		if rng.Intn(3) == 0 {
			t.Subtasks = randomTasks(rng, depth+1)
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func word(rng *rand.Rand) string {
	words := []string{"alpha", "beta", "gamma", "delta", "wire it", "x", "über"}
	return words[rng.Intn(len(words))]
}

func TestValidate_RejectsUnrenderable(t *testing.T) {
	bad := []Plan{
		{Title: "two\nlines"},
		{Phases: []Phase{{Name: ""}}},
		{Phases: []Phase{{Name: "A"}, {Name: "A"}}},
		{Phases: []Phase{{Name: "A", Tasks: []Task{{Description: " padded "}}}}},
		{Phases: []Phase{{Name: "A", Notes: []string{"## sneaky heading"}}}},
		{Phases: []Phase{{Name: "A", Notes: []string{"- [ ] sneaky task"}}}},
		{Preamble: []string{""}},
	}
	for _, p := range bad {
		assert.Error(t, Validate(p))
	}
}

func TestSetTaskDone_IsPure(t *testing.T) {
	original := samplePlan()

	updated, err := SetTaskDone(original, Path(0, 1, 1), true)
	require.NoError(t, err)

	assert.False(t, original.Phases[0].Tasks[1].Subtasks[1].Done, "input plan must not change")
	assert.True(t, updated.Phases[0].Tasks[1].Subtasks[1].Done)

	// Exactly one flag differs.
	diff := 0
	a, b := Leaves(original), Leaves(updated)
	require.Equal(t, len(a), len(b))
	for i := range a {
		if a[i].Task.Done != b[i].Task.Done {
			diff++
		}
	}
	assert.Equal(t, 1, diff)
}

func TestSetTaskDone_ParentFlag(t *testing.T) {
	updated, err := SetTaskDone(samplePlan(), Path(0, 1), true)
	require.NoError(t, err)

	parent := updated.Phases[0].Tasks[1]
	assert.True(t, parent.Done)
	assert.False(t, parent.Complete(), "a parent with an open subtask is incomplete")
}

func TestSetTaskDone_OutOfRange(t *testing.T) {
	paths := []TaskPath{
		Path(5, 0),
		Path(-1, 0),
		Path(0),
		Path(0, 9),
		Path(0, 0, 0),
		Path(1, 0, 2),
	}
	for _, path := range paths {
		t.Run(path.String(), func(t *testing.T) {
			_, err := SetTaskDone(samplePlan(), path, true)
			assert.True(t, errors.Is(err, model.ErrIndexOutOfRange), "got %v", err)
		})
	}
}

func TestReset(t *testing.T) {
	reset := Reset(samplePlan())
	for _, leaf := range Leaves(reset) {
		assert.False(t, leaf.Task.Done)
	}
	Walk(reset, func(_ TaskPath, task Task) bool {
		assert.False(t, task.Done)
		return true
	})
}

func TestTaskPath(t *testing.T) {
	p, err := ParseTaskPath("2.1.3")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Phase)
	assert.Equal(t, []int{0, 2}, p.Indices)
	assert.Equal(t, "2.1.3", p.String())

	for _, bad := range []string{"", "1", "1.0", "a.b", "1.-2", "1..2"} {
		_, err := ParseTaskPath(bad)
		assert.True(t, errors.Is(err, model.ErrInvalid), bad)
	}
}

func TestLeavesAndWalkOrder(t *testing.T) {
	var visited []string
	Walk(samplePlan(), func(path TaskPath, task Task) bool {
		visited = append(visited, path.String()+" "+task.Description)
		return true
	})
	assert.Equal(t, []string{
		"1.1 Create theme tokens",
		"1.2 Wire toggle",
		"1.2.1 Add settings entry",
		"1.2.2 Persist preference",
		"2.1 Snapshot tests",
	}, visited)

	leaves := Leaves(samplePlan())
	require.Len(t, leaves, 4)
	assert.Equal(t, "1.2.2", leaves[2].Path.String())
	assert.Len(t, PhaseLeaves(samplePlan(), 1), 1)
	assert.Nil(t, PhaseLeaves(samplePlan(), 7))
	assert.Equal(t, 5, samplePlan().TaskCount())
}

func TestPhaseCompleted(t *testing.T) {
	p := samplePlan()
	assert.False(t, p.Phases[0].Completed())
	assert.True(t, Phase{Name: "empty"}.Completed())

	done, err := SetTaskDone(p, Path(0, 1, 1), true)
	require.NoError(t, err)
	assert.True(t, done.Phases[0].Completed())
}

func TestLookup(t *testing.T) {
	task, err := Lookup(samplePlan(), Path(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "Snapshot tests", task.Description)

	_, err = Lookup(samplePlan(), Path(1, 3))
	assert.Error(t, err)
}

func TestRender_SubtaskIndentation(t *testing.T) {
	text := Render(samplePlan())
	assert.True(t, strings.Contains(text, "\n  - [x] Add settings entry\n"))
}
