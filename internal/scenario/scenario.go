package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one command scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Steps run in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one command.
type Step struct {
	// Invoke is the command name (see Commands).
	Invoke string `yaml:"invoke"`

	// As binds the id of the harness the command returns to an alias.
	As string `yaml:"as,omitempty"`

	// Args are the command arguments. Harness references are aliases.
	Args map[string]any `yaml:"args"`

	// Expect validates the outcome. Nil expects success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Outcome is "ok" (default) or an engine error code.
	Outcome string `yaml:"outcome,omitempty"`

	// Result is a subset match over the trace event's result fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Command is used by trace_contains and trace_count.
	Command string `yaml:"command,omitempty"`

	// Outcome optionally narrows trace_contains.
	Outcome string `yaml:"outcome,omitempty"`

	// Commands is the expected order for trace_order.
	Commands []string `yaml:"commands,omitempty"`

	// Count is the expected number of occurrences for trace_count.
	Count int `yaml:"count,omitempty"`

	// Harness is the alias inspected by final_state, history and parents.
	Harness string `yaml:"harness,omitempty"`

	// Expect holds expected field values for final_state (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Changes is the expected change-type list, most recent first (history).
	Changes []string `yaml:"changes,omitempty"`

	// Parents is the expected parent alias list (parents).
	Parents []string `yaml:"parents,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertHistory       = "history"
	AssertParents       = "parents"
)

// Commands lists the step commands a scenario may invoke.
var Commands = map[string]bool{
	"create":             true,
	"update":             true,
	"submit":             true,
	"reject":             true,
	"release":            true,
	"release_production": true,
	"deactivate":         true,
	"revert":             true,
	"validate":           true,
	"audit":              true,
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

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	aliases := make(map[string]bool)
	for i, step := range s.Steps {
		if !Commands[step.Invoke] {
			return fmt.Errorf("steps[%d]: unknown command %q", i, step.Invoke)
		}
		if step.As != "" {
			if aliases[step.As] {
				return fmt.Errorf("steps[%d]: alias %q already bound", i, step.As)
			}
			aliases[step.As] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Harness == "" {
			return fmt.Errorf("assertions[%d]: harness is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertHistory:
		if a.Harness == "" {
			return fmt.Errorf("assertions[%d]: harness is required for history", index)
		}
	case AssertParents:
		if a.Harness == "" {
			return fmt.Errorf("assertions[%d]: harness is required for parents", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
