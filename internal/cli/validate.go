package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redogs/internal/harness"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors map[string]string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-or-dir>",
		Short: "Check scenario files without running them",
		Long: `Parse and validate scenario files without building a store.

Catches unknown fields, missing steps, bad durations and malformed
assertions. Faster than test for editing feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	files, err := findScenarioFiles(path, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, file := range files {
		f.VerboseLog("Validating %s", file)
		if _, err := harness.LoadScenario(file); err != nil {
			if result.Errors == nil {
				result.Errors = make(map[string]string)
			}
			result.Errors[file] = err.Error()
			result.Valid = false
			if !f.JSON() {
				fmt.Fprintf(f.Writer, "✗ %s\n  %v\n", file, err)
			}
		}
	}

	if f.JSON() {
		if result.Valid {
			return f.Success(result)
		}
		if err := f.Failure(result, ErrCodeInvalid, fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors))); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(f.Writer, "✓ %d scenario file(s) valid\n", result.Files)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors)))
	}
	return nil
}
