package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_YAML(t *testing.T) {
	path := writeScenario(t, "s.yaml", `
name: add_todo
description: "adds a todo"
fixture: todos
seed: [milk]
steps:
  - op: dispatch
    action: ADD_TODO
    payload: eggs
  - op: wait
    for: 10ms
assertions:
  - type: emission_count
    count: 2
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "add_todo", scenario.Name)
	assert.Equal(t, FixtureTodos, scenario.Fixture)
	assert.Equal(t, []string{"milk"}, scenario.Seed)
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, Step{Op: OpDispatch, Action: "ADD_TODO", Payload: "eggs"}, scenario.Steps[0])
	assert.Equal(t, Step{Op: OpWait, For: "10ms"}, scenario.Steps[1])
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 2, *scenario.Assertions[0].Count)
}

func TestLoadScenario_CUE(t *testing.T) {
	path := writeScenario(t, "s.cue", `
name:        "counter"
description: "counts"
fixture:     "counter"
steps: [{op: "dispatch", action: "INC"}]
assertions: [
	{type: "final_state", state: {counter: 1}},
	{type: "emission_count", count: 2},
]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "counter", scenario.Name)
	assert.Equal(t, []Step{{Op: OpDispatch, Action: "INC"}}, scenario.Steps)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertFinalState, scenario.Assertions[0].Type)
	ok, err := sameJSON(scenario.Assertions[0].State, map[string]any{"counter": 1})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, *scenario.Assertions[1].Count)
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	yamlPath := writeScenario(t, "s.yaml", `
name: typo
description: "misspelt key"
fixture: counter
steps: [{op: dispatch, action: INC}]
assertion:
  - type: emission_count
    count: 2
`)
	_, err := LoadScenario(yamlPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")

	cuePath := writeScenario(t, "s.cue", `
name:        "typo"
description: "misspelt key"
fixture:     "counter"
steps: [{op: "dispatch", action: "INC"}]
assertions: [{type: "emission_count", count: 2}]
fixtures: "counter"
`)
	_, err = LoadScenario(cuePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixtures")
}

func TestLoadScenario_InvalidCUE(t *testing.T) {
	path := writeScenario(t, "s.cue", `name: "a" & "b"`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CUE")
}

func TestLoadScenario_UnsupportedExtension(t *testing.T) {
	path := writeScenario(t, "s.json", `{}`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scenario format")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "ok",
			Description: "valid",
			Fixture:     FixtureCounter,
			Steps:       []Step{{Op: OpDispatch, Action: "INC"}},
			Assertions:  []Assertion{{Type: AssertEmissionCount, Count: intPtr(2)}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"missing fixture", func(s *Scenario) { s.Fixture = "" }, "fixture is required"},
		{"unknown fixture", func(s *Scenario) { s.Fixture = "x" }, `unknown fixture "x"`},
		{"strict policy", func(s *Scenario) { s.Policy = "strict" }, "unknown policy"},
		{"negative cascade", func(s *Scenario) { s.MaxCascade = -1 }, "max_cascade"},
		{"seed outside todos", func(s *Scenario) { s.Seed = []string{"a"} }, "seed is only valid"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"no op", func(s *Scenario) { s.Steps[0].Op = "" }, "steps[0]: op is required"},
		{"unknown op", func(s *Scenario) { s.Steps[0].Op = "poke" }, `unknown op "poke"`},
		{"dispatch without action", func(s *Scenario) { s.Steps[0].Action = "" }, "action is required"},
		{"wait without duration", func(s *Scenario) { s.Steps[0] = Step{Op: OpWait} }, "for is required"},
		{"bad duration", func(s *Scenario) { s.Steps[0] = Step{Op: OpWait, For: "soon"} }, "invalid duration"},
		{"payload on destroy", func(s *Scenario) { s.Steps[0] = Step{Op: OpDestroy, Payload: 1} }, "only valid for dispatch"},
		{"until on dispatch", func(s *Scenario) { s.Steps[0].Until = "X" }, "only valid for wait"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"no assertion type", func(s *Scenario) { s.Assertions[0].Type = "" }, "type is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions[0].Type = "trace_order" }, "unknown assertion type"},
		{"count missing", func(s *Scenario) { s.Assertions[0].Count = nil }, "count is required"},
		{"count negative", func(s *Scenario) { s.Assertions[0].Count = intPtr(-1) }, "non-negative"},
		{"code outside fault_count", func(s *Scenario) { s.Assertions[0].Code = "X" }, "code is only valid"},
		{"empty sequence", func(s *Scenario) { s.Assertions[0] = Assertion{Type: AssertStateSequence} }, "states list is required"},
		{"final state missing", func(s *Scenario) { s.Assertions[0] = Assertion{Type: AssertFinalState} }, "state is required"},
		{"branch outside final_state", func(s *Scenario) { s.Assertions[0].Branch = "counter" }, "branch is only valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsScenarioFile(t *testing.T) {
	assert.True(t, IsScenarioFile("a.yaml"))
	assert.True(t, IsScenarioFile("a.yml"))
	assert.True(t, IsScenarioFile("dir/a.cue"))
	assert.False(t, IsScenarioFile("a.golden"))
	assert.False(t, IsScenarioFile("README"))
}
