package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/tracks/internal/registry"
	"github.com/roach88/tracks/internal/tracker"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s assertion failed:\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the tracker's final
// state and returns one message per failure.
func EvaluateAssertions(ctx context.Context, tr *tracker.Tracker, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var msgs []string
		switch a.Type {
		case AssertReport:
			msgs = assertReport(ctx, tr, a)
		case AssertUnitReport:
			msgs = assertUnitReport(ctx, tr, a)
		case AssertJournal:
			msgs = assertJournal(ctx, tr, a)
		case AssertRegistry:
			msgs = assertRegistry(tr, a)
		case AssertDrift:
			msgs = assertDrift(ctx, tr, a)
		default:
			msgs = []string{fmt.Sprintf("unknown assertion type %q", a.Type)}
		}
		for _, m := range msgs {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, m))
		}
	}
	return errs
}

func assertReport(ctx context.Context, tr *tracker.Tracker, a Assertion) []string {
	rep, err := tr.StatusReport(ctx)
	if err != nil {
		return []string{err.Error()}
	}
	actual, err := normalize(rep)
	if err != nil {
		return []string{err.Error()}
	}
	return matchSubset("report", actual, a.Expect)
}

func assertUnitReport(ctx context.Context, tr *tracker.Tracker, a Assertion) []string {
	rep, err := tr.StatusReport(ctx)
	if err != nil {
		return []string{err.Error()}
	}
	for _, u := range rep.Units {
		if u.ID != a.Unit {
			continue
		}
		actual, err := normalize(u)
		if err != nil {
			return []string{err.Error()}
		}
		return matchSubset(a.Unit, actual, a.Expect)
	}
	return []string{(&AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("unit %s in the report", a.Unit),
		Actual:   "not found",
	}).Error()}
}

func assertJournal(ctx context.Context, tr *tracker.Tracker, a Assertion) []string {
	entries, err := tr.History(ctx, a.Unit)
	if err != nil {
		return []string{err.Error()}
	}
	actual := make([]string, 0, len(entries))
	for _, e := range entries {
		actual = append(actual, string(e.Event))
	}
	expected := a.Events
	if expected == nil {
		expected = []string{}
	}
	if !reflect.DeepEqual(actual, expected) {
		return []string{(&AssertionError{
			Type:     a.Type,
			Expected: "[" + strings.Join(expected, ", ") + "]",
			Actual:   "[" + strings.Join(actual, ", ") + "]",
		}).Error()}
	}
	return nil
}

func assertRegistry(tr *tracker.Tracker, a Assertion) []string {
	reg, err := registry.Load(tr.Store().RegistryPath())
	if err != nil {
		return []string{err.Error()}
	}
	actual := reg.IDs()
	expected := a.IDs
	if expected == nil {
		expected = []string{}
	}
	if actual == nil {
		actual = []string{}
	}
	if !reflect.DeepEqual(actual, expected) {
		return []string{(&AssertionError{
			Type:     a.Type,
			Expected: "[" + strings.Join(expected, ", ") + "]",
			Actual:   "[" + strings.Join(actual, ", ") + "]",
		}).Error()}
	}
	return nil
}

func assertDrift(ctx context.Context, tr *tracker.Tracker, a Assertion) []string {
	drift, err := tr.Check(ctx)
	if err != nil {
		return []string{err.Error()}
	}
	actual, err := normalize(drift)
	if err != nil {
		return []string{err.Error()}
	}
	return matchSubset("drift", actual, a.Expect)
}

// matchSubset reports every expected field that is missing from or differs
// in actual. Maps match as subsets; lists must match element-wise.
func matchSubset(path string, actual interface{}, expected map[string]interface{}) []string {
	want, err := normalize(expected)
	if err != nil {
		return []string{err.Error()}
	}
	var msgs []string
	compareValues(path, actual, want, &msgs)
	return msgs
}

func compareValues(path string, actual, expected interface{}, msgs *[]string) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			*msgs = append(*msgs, fmt.Sprintf("%s: expected an object, got %v", path, actual))
			return
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, present := act[k]
			if !present {
				if isZero(exp[k]) {
					// omitempty fields are absent when zero
					continue
				}
				*msgs = append(*msgs, fmt.Sprintf("%s.%s: missing, expected %v", path, k, exp[k]))
				continue
			}
			compareValues(path+"."+k, v, exp[k], msgs)
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok && actual != nil {
			*msgs = append(*msgs, fmt.Sprintf("%s: expected a list, got %v", path, actual))
			return
		}
		if len(act) != len(exp) {
			*msgs = append(*msgs, fmt.Sprintf("%s: expected %d items, got %d", path, len(exp), len(act)))
			return
		}
		for i := range exp {
			compareValues(fmt.Sprintf("%s[%d]", path, i), act[i], exp[i], msgs)
		}
	default:
		if !reflect.DeepEqual(actual, expected) {
			*msgs = append(*msgs, fmt.Sprintf("%s: expected %v, got %v", path, expected, actual))
		}
	}
}

func isZero(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []interface{}:
		return len(x) == 0
	case map[string]interface{}:
		return len(x) == 0
	}
	return false
}
