package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/redogs/internal/canonical"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, Describe(event))
	}

	return buf.String()
}

// Describe renders one trace event on a single line.
func Describe(e TraceEvent) string {
	switch e.Kind {
	case KindAction:
		if e.Payload == nil {
			return "action " + e.Action
		}
		return fmt.Sprintf("action %s %s", e.Action, render(e.Payload))
	case KindState, KindReplay:
		return fmt.Sprintf("%s %s", e.Kind, render(e.State))
	case KindFault:
		return fmt.Sprintf("fault %s %s pipeline on %s (%s): %s", e.Code, e.Pipeline, e.Action, e.Decision, e.Error)
	default:
		return e.Kind
	}
}

func render(v any) string {
	b, err := canonical.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// sameJSON reports whether a and b have the same canonical JSON form.
func sameJSON(a, b any) (bool, error) {
	ab, err := canonical.Marshal(a)
	if err != nil {
		return false, err
	}
	bb, err := canonical.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}

// assertStateSequence checks every state emission, in order.
func assertStateSequence(result *Result, assertion Assertion) error {
	var states []any
	for _, e := range result.Events(KindState) {
		states = append(states, e.State)
	}
	if states == nil {
		states = []any{}
	}

	ok, err := sameJSON(states, assertion.States)
	if err != nil {
		return fmt.Errorf("state_sequence: %w", err)
	}
	if !ok {
		return &AssertionError{
			Type:     AssertStateSequence,
			Expected: render(assertion.States),
			Actual:   render(states),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState compares the last published state, or one branch of it.
func assertFinalState(result *Result, assertion Assertion) error {
	actual := result.State
	if assertion.Branch != "" {
		tree, _ := actual.(map[string]any)
		actual = tree[assertion.Branch]
	}

	ok, err := sameJSON(actual, assertion.State)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	if !ok {
		expected := render(assertion.State)
		if assertion.Branch != "" {
			expected = fmt.Sprintf("%s = %s", assertion.Branch, expected)
		}
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: expected,
			Actual:   render(actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEmissionCount checks the number of state emissions, including the
// initial one.
func assertEmissionCount(result *Result, assertion Assertion) error {
	count := len(result.Events(KindState))
	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertEmissionCount,
			Expected: fmt.Sprintf("%d state emissions", *assertion.Count),
			Actual:   fmt.Sprintf("%d state emissions", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFaultCount checks the number of pipeline faults, optionally of a
// single code.
func assertFaultCount(result *Result, assertion Assertion) error {
	count := 0
	for _, e := range result.Events(KindFault) {
		if assertion.Code == "" || e.Code == assertion.Code {
			count++
		}
	}
	if count != *assertion.Count {
		what := "faults"
		if assertion.Code != "" {
			what = assertion.Code + " faults"
		}
		return &AssertionError{
			Type:     AssertFaultCount,
			Expected: fmt.Sprintf("%d %s", *assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    result.Trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStateSequence:
			err = assertStateSequence(result, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertEmissionCount, AssertFaultCount:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: %s requires count", i, assertion.Type)
			} else if assertion.Type == AssertEmissionCount {
				err = assertEmissionCount(result, assertion)
			} else {
				err = assertFaultCount(result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
