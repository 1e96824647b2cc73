package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
	"github.com/roach88/tracks/internal/testutil"
	"github.com/roach88/tracks/internal/tracker"
)

// Harness executes scenario steps against one tracker.
type Harness struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary root that is removed afterwards.
// Execution flow:
//  1. Open a tracker with a deterministic clock and id sequence
//  2. Execute setup steps (any failure aborts)
//  3. Execute flow steps and validate expect clauses
//  4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "tracks-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario root: %w", err)
	}
	defer os.RemoveAll(dir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewClock(testutil.Epoch, time.Minute)
	tr, err := tracker.Open(dir,
		tracker.WithClock(clock.Now),
		tracker.WithIDGenerator(testutil.NewSequenceGenerator(scenario.IDs...)),
		tracker.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracker: %w", err)
	}
	defer tr.Close()

	h := &Harness{tracker: tr, logger: logger}
	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		ev := h.execute(ctx, "setup", step)
		result.addTrace(ev)
		if ev.Outcome != OutcomeOK {
			return nil, fmt.Errorf("setup step %d (%s) failed: %s", i, step.Op, ev.Outcome)
		}
	}

	for i, step := range scenario.Flow {
		ev := h.execute(ctx, "flow", step)
		result.addTrace(ev)
		for _, msg := range checkExpect(step, ev) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
		}
		h.logger.Info("flow step completed", "step", i, "op", step.Op, "outcome", ev.Outcome)
	}

	for _, msg := range EvaluateAssertions(ctx, tr, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and records its outcome.
func (h *Harness) execute(ctx context.Context, phase string, step Step) TraceEvent {
	ev := TraceEvent{Phase: phase, Op: step.Op, Args: step.Args}
	value, err := h.dispatch(ctx, step)
	if err != nil {
		ev.Outcome = outcomeOf(err)
		ev.Value = map[string]interface{}{"error": err.Error()}
		return ev
	}
	ev.Outcome = OutcomeOK
	normalized, err := normalize(value)
	if err != nil {
		ev.Outcome = "ENCODE_FAILED"
		return ev
	}
	ev.Value = normalized
	return ev
}

func (h *Harness) dispatch(ctx context.Context, step Step) (interface{}, error) {
	tr := h.tracker
	id := stringArg(step.Args, "id")

	switch step.Op {
	case OpCreate:
		return tr.CreateWorkUnit(ctx, tracker.CreateRequest{
			ID:         id,
			Title:      stringArg(step.Args, "title"),
			Category:   model.Category(stringArg(step.Args, "category")),
			Attributes: attributesArg(step.Args),
			Spec:       stringArg(step.Args, "spec"),
			Plan:       stringArg(step.Args, "plan"),
		})
	case OpReplacePlan:
		return tr.ReplacePlan(ctx, id, stringArg(step.Args, "plan"))
	case OpSetTaskDone:
		path, err := plan.ParseTaskPath(stringArg(step.Args, "path"))
		if err != nil {
			return nil, err
		}
		done := true
		if v, ok := step.Args["done"].(bool); ok {
			done = v
		}
		unit, _, err := tr.SetTaskDone(ctx, id, path, done)
		return unit, err
	case OpSetStatus:
		return tr.SetStatus(ctx, id, model.Status(stringArg(step.Args, "status")))
	case OpDelete:
		return struct{}{}, tr.DeleteWorkUnit(ctx, id)
	case OpRevert:
		return tr.RevertWorkUnit(ctx, id)
	case OpShow:
		return tr.Show(ctx, id)
	case OpStatus:
		return tr.StatusReport(ctx)
	case OpRebuild:
		return tr.RebuildRegistry(ctx)
	case OpCheck:
		return tr.Check(ctx)
	case OpCorruptMetadata:
		return struct{}{}, os.WriteFile(tr.Store().Paths(id).Metadata, []byte("{not json"), 0o644)
	case OpRemovePlan:
		return struct{}{}, os.Remove(tr.Store().Paths(id).Plan)
	case OpCorruptRegistry:
		return struct{}{}, os.WriteFile(tr.Store().RegistryPath(), []byte("| not | a registry |\n"), 0o644)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// outcomeOf maps an error to its code, or ERROR for untyped failures.
func outcomeOf(err error) string {
	if code := model.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func checkExpect(step Step, ev TraceEvent) []string {
	want := OutcomeOK
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ev.Outcome != want {
		detail := ""
		if m, ok := ev.Value.(map[string]interface{}); ok && m["error"] != nil {
			detail = fmt.Sprintf(" (%v)", m["error"])
		}
		return []string{fmt.Sprintf("expected outcome %s, got %s%s", want, ev.Outcome, detail)}
	}
	if step.Expect == nil || step.Expect.Result == nil || ev.Outcome != OutcomeOK {
		return nil
	}
	return matchSubset("result", ev.Value, step.Expect.Result)
}

// normalize round-trips v through JSON so results compare by field name.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func attributesArg(args map[string]interface{}) map[string]string {
	raw, ok := args["attributes"].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	return out
}
