package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/redogs/internal/canonical"
)

// TraceSnapshot is what golden files hold: the scenario identity and its
// full trace.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Fixture  string       `json:"fixture"`
	Trace    []TraceEvent `json:"trace"`
}

// Snapshot renders the canonical JSON for a scenario's trace.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	return canonical.Marshal(TraceSnapshot{
		Scenario: scenario.Name,
		Fixture:  scenario.Fixture,
		Trace:    result.Trace,
	})
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed. A trace mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
