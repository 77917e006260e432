package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/redogs/internal/harness"
)

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario string               `json:"scenario"`
	Fixture  string               `json:"fixture"`
	Pass     bool                 `json:"pass"`
	Trace    []harness.TraceEvent `json:"trace"`
	State    any                  `json:"state,omitempty"`
	Errors   []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run a single scenario file (.yaml, .yml or .cue) against a fresh store
and print every action, state, fault and replay it observed.

Exit codes:
  0 - All assertions held
  1 - One or more assertions failed
  2 - The scenario could not be loaded or executed

Examples:
  redogs run internal/harness/testdata/scenarios/counter_increments.yaml
  redogs run scenarios/reducer_fault.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runScenarioFile(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		if f.JSON() {
			_ = f.Error(ErrCodeScenarioLoad, err.Error(), map[string]string{"path": path})
		}
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	f.VerboseLog("Loaded scenario %s (fixture %s, %d steps)", scenario.Name, scenario.Fixture, len(scenario.Steps))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := harness.Run(ctx, scenario)
	if err != nil {
		if f.JSON() {
			_ = f.Error(ErrCodeScenarioRun, err.Error(), map[string]string{"scenario": scenario.Name})
		}
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunOutput{
		Scenario: scenario.Name,
		Fixture:  scenario.Fixture,
		Pass:     result.Pass,
		Trace:    result.Trace,
		State:    result.State,
		Errors:   result.Errors,
	}

	if f.JSON() {
		if result.Pass {
			return f.Success(out)
		}
		if err := f.Failure(out, ErrCodeTestFailed, "assertions failed"); err != nil {
			return err
		}
	} else {
		writeRunText(f.Writer, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s: %d assertion(s) failed", scenario.Name, len(result.Errors)))
	}
	return nil
}

func writeRunText(w io.Writer, out RunOutput) {
	fmt.Fprintf(w, "Scenario: %s (fixture %s)\n", out.Scenario, out.Fixture)
	for _, e := range out.Trace {
		fmt.Fprintf(w, "  [%d] %s\n", e.Seq, harness.Describe(e))
	}
	fmt.Fprintln(w)
	if out.Pass {
		fmt.Fprintln(w, "✓ All assertions passed")
		return
	}
	fmt.Fprintf(w, "✗ %d assertion(s) failed\n", len(out.Errors))
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
