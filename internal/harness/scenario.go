package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario drives one store through a list of steps and checks the trace it
// produced.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Fixture selects the store under test: counter, todos or faulty.
	Fixture string `yaml:"fixture" json:"fixture"`

	// Policy is the fault mode, stop (default) or skip.
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty"`

	// MaxCascade overrides the cascade depth limit when positive.
	MaxCascade int `yaml:"max_cascade,omitempty" json:"max_cascade,omitempty"`

	// Seed lists todo titles written to the catalog before the store starts.
	// Only the todos fixture reads it.
	Seed []string `yaml:"seed,omitempty" json:"seed,omitempty"`

	Steps      []Step      `yaml:"steps" json:"steps"`
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// Step is one thing the runner does to the store.
type Step struct {
	// Op is dispatch, wait, subscribe or destroy.
	Op string `yaml:"op" json:"op"`

	// Action and Payload describe the action to dispatch (dispatch).
	Action  string `yaml:"action,omitempty" json:"action,omitempty"`
	Payload any    `yaml:"payload,omitempty" json:"payload,omitempty"`

	// For is how long to wait (wait). With Until set it is the deadline for
	// the action to show up in the trace.
	For   string `yaml:"for,omitempty" json:"for,omitempty"`
	Until string `yaml:"until,omitempty" json:"until,omitempty"`
}

// Step operations.
const (
	OpDispatch  = "dispatch"
	OpWait      = "wait"
	OpSubscribe = "subscribe"
	OpDestroy   = "destroy"
)

// Assertion checks the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// States is the expected sequence of state emissions (state_sequence).
	States []any `yaml:"states,omitempty" json:"states,omitempty"`

	// State is the expected final state (final_state). With Branch set only
	// that branch of the tree is compared.
	State  any    `yaml:"state,omitempty" json:"state,omitempty"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`

	// Count is the expected number of emissions or faults.
	Count *int `yaml:"count,omitempty" json:"count,omitempty"`

	// Code restricts fault_count to one error code.
	Code string `yaml:"code,omitempty" json:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertStateSequence = "state_sequence"
	AssertFinalState    = "final_state"
	AssertEmissionCount = "emission_count"
	AssertFaultCount    = "fault_count"
)

// Fixture names.
const (
	FixtureCounter = "counter"
	FixtureTodos   = "todos"
	FixtureFaulty  = "faulty"
)

// LoadScenario reads a scenario from a .yaml, .yml or .cue file.
// Unknown fields are rejected in both formats.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		scenario, err = parseYAML(data)
	case ".cue":
		scenario, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// IsScenarioFile reports whether path has an extension LoadScenario reads.
func IsScenarioFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

var scenarioFields = map[string]bool{
	"name": true, "description": true, "fixture": true, "policy": true,
	"max_cascade": true, "seed": true, "steps": true, "assertions": true,
}

func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	it, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}
	for it.Next() {
		if label := it.Selector().String(); !scenarioFields[label] {
			return nil, fmt.Errorf("failed to parse CUE: field %s not found in type harness.Scenario", label)
		}
	}

	var scenario Scenario
	if err := v.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Fixture {
	case FixtureCounter, FixtureTodos, FixtureFaulty:
	case "":
		return fmt.Errorf("fixture is required")
	default:
		return fmt.Errorf("unknown fixture %q", s.Fixture)
	}

	switch s.Policy {
	case "", "stop", "skip":
	default:
		return fmt.Errorf("unknown policy %q: must be stop or skip", s.Policy)
	}

	if s.MaxCascade < 0 {
		return fmt.Errorf("max_cascade must be non-negative")
	}
	if len(s.Seed) > 0 && s.Fixture != FixtureTodos {
		return fmt.Errorf("seed is only valid for the todos fixture")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpDispatch:
		if st.Action == "" {
			return fmt.Errorf("steps[%d]: action is required for dispatch", index)
		}
	case OpWait:
		if st.For == "" {
			return fmt.Errorf("steps[%d]: for is required for wait", index)
		}
		if _, err := time.ParseDuration(st.For); err != nil {
			return fmt.Errorf("steps[%d]: invalid duration: %w", index, err)
		}
	case OpSubscribe, OpDestroy:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.Op != OpDispatch && (st.Action != "" || st.Payload != nil) {
		return fmt.Errorf("steps[%d]: action and payload are only valid for dispatch", index)
	}
	if st.Op != OpWait && (st.For != "" || st.Until != "") {
		return fmt.Errorf("steps[%d]: for and until are only valid for wait", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertStateSequence:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for state_sequence", index)
		}
	case AssertFinalState:
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertEmissionCount, AssertFaultCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Code != "" && a.Type != AssertFaultCount {
		return fmt.Errorf("assertions[%d]: code is only valid for fault_count", index)
	}
	if a.Branch != "" && a.Type != AssertFinalState {
		return fmt.Errorf("assertions[%d]: branch is only valid for final_state", index)
	}
	return nil
}
