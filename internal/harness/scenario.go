package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flux/internal/apps"
)

// Scenario is a scripted run of an app.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// App is the example app to run (see apps.Names).
	App string `yaml:"app"`

	// Preloaded is the initial state. Absent means the reducer default.
	Preloaded any `yaml:"preloaded,omitempty"`

	// Strict rejects action types the app schema does not declare.
	Strict bool `yaml:"strict,omitempty"`

	// MaxAge bounds the devtools history; 0 keeps everything.
	MaxAge int `yaml:"max_age,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one dispatch or one history control. Exactly one of Dispatch and
// Control is set.
type Step struct {
	// Dispatch is the action to dispatch, normally a record with "type".
	// Records of types the app registers are decoded to typed actions.
	Dispatch any `yaml:"dispatch,omitempty"`

	// Control drives the devtools history.
	Control *ControlStep `yaml:"control,omitempty"`

	// ExpectError is an error code (INVALID_ACTION, REENTRANT_DISPATCH,
	// CONFIGURATION, PANIC) or a substring of the expected error message.
	// Without it the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ControlStep names a devtools control. Kind is case-insensitive: jump_to,
// toggle, reset, commit, rollback, sweep.
type ControlStep struct {
	Kind  string `yaml:"kind"`
	Index int    `yaml:"index,omitempty"`
}

// Assertion checks the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args is a subset of the expected payload (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Actions is the expected order of action types (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count,
	// notify_count).
	Count *int `yaml:"count,omitempty"`

	// Path is a dotted path into the final state (final_state). Empty
	// compares the whole state.
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value at Path (final_state). Objects match as
	// subsets; everything else must be equal.
	Expect any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertNotifyCount   = "notify_count"
)

var controlKinds = []string{"jump_to", "toggle", "reset", "commit", "rollback", "sweep"}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file
// name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.App == "" {
		return fmt.Errorf("app is required")
	}
	if !slices.Contains(apps.Names(), s.App) {
		return fmt.Errorf("unknown app %q (available: %v)", s.App, apps.Names())
	}
	if s.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.Dispatch != nil && step.Control != nil:
			return fmt.Errorf("steps[%d]: dispatch and control are mutually exclusive", i)
		case step.Dispatch == nil && step.Control == nil:
			return fmt.Errorf("steps[%d]: dispatch or control is required", i)
		case step.Control != nil && !slices.Contains(controlKinds, strings.ToLower(step.Control.Kind)):
			return fmt.Errorf("steps[%d]: unknown control kind %q (want one of %v)", i, step.Control.Kind, controlKinds)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: trace_contains requires action", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order requires at least 2 actions", index)
		}
	case AssertTraceCount:
		if a.Action == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: trace_count requires action and count", index)
		}
	case AssertNotifyCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: notify_count requires count", index)
		}
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: final_state requires expect", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must not be negative", index)
	}
	return nil
}
