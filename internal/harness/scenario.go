package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: steps run against a fresh tracks
// root, followed by assertions on the resulting state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// IDs are handed out in order to creates that do not name an id.
	IDs []string `yaml:"ids,omitempty"`

	// Setup steps establish initial state. Any failure aborts the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are the behavior under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one tracker operation.
type Step struct {
	Op   string                 `yaml:"op"`
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect validates the step's outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a flow step.
type Expect struct {
	// Error is the expected error code, e.g. NOT_FOUND. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Result is a subset match against the step's return value.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Unit selects the unit for unit_report and journal.
	Unit string `yaml:"unit,omitempty"`

	// Expect is a subset match (report, unit_report, drift).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Events is the exact journal sequence (journal).
	Events []string `yaml:"events,omitempty"`

	// IDs is the exact registry row order (registry).
	IDs []string `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertReport     = "report"
	AssertUnitReport = "unit_report"
	AssertJournal    = "journal"
	AssertRegistry   = "registry"
	AssertDrift      = "drift"
)

// Operation names.
const (
	OpCreate          = "create"
	OpReplacePlan     = "replace_plan"
	OpSetTaskDone     = "set_task_done"
	OpSetStatus       = "set_status"
	OpDelete          = "delete"
	OpRevert          = "revert"
	OpShow            = "show"
	OpStatus          = "status"
	OpRebuild         = "rebuild"
	OpCheck           = "check"
	OpCorruptMetadata = "corrupt_metadata"
	OpRemovePlan      = "remove_plan"
	OpCorruptRegistry = "corrupt_registry"
)

// opRequiresID lists the operations that take an "id" argument.
var opRequiresID = map[string]bool{
	OpReplacePlan:     true,
	OpSetTaskDone:     true,
	OpSetStatus:       true,
	OpDelete:          true,
	OpRevert:          true,
	OpShow:            true,
	OpCorruptMetadata: true,
	OpRemovePlan:      true,
}

var knownOps = map[string]bool{
	OpCreate:          true,
	OpStatus:          true,
	OpRebuild:         true,
	OpCheck:           true,
	OpCorruptRegistry: true,
}

func init() {
	for op := range opRequiresID {
		knownOps[op] = true
	}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	generated := 0
	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow steps", i)
		}
		if step.Op == OpCreate && step.Args["id"] == nil {
			generated++
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Op == OpCreate && step.Args["id"] == nil {
			generated++
		}
	}
	if generated > len(s.IDs) {
		return fmt.Errorf("ids: %d creates need generated ids but only %d are listed", generated, len(s.IDs))
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if opRequiresID[step.Op] {
		if _, ok := step.Args["id"].(string); !ok {
			return fmt.Errorf("%s: id is required", step.Op)
		}
	}
	switch step.Op {
	case OpCreate:
		if _, ok := step.Args["title"].(string); !ok {
			return fmt.Errorf("create: title is required")
		}
	case OpReplacePlan:
		if _, ok := step.Args["plan"].(string); !ok {
			return fmt.Errorf("replace_plan: plan is required")
		}
	case OpSetTaskDone:
		if _, ok := step.Args["path"].(string); !ok {
			return fmt.Errorf("set_task_done: path is required")
		}
	case OpSetStatus:
		if _, ok := step.Args["status"].(string); !ok {
			return fmt.Errorf("set_status: status is required")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReport, AssertDrift:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertUnitReport:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for unit_report", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for unit_report", index)
		}
	case AssertJournal:
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for journal", index)
		}
	case AssertRegistry:
		// An empty ids list asserts an empty registry.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
