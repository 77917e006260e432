package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func runScenario(t *testing.T, scenario *Scenario) *Result {
	t.Helper()
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func kinds(trace []TraceEvent) []string {
	out := make([]string, len(trace))
	for i, e := range trace {
		out[i] = e.Kind
	}
	return out
}

func TestRun_CounterScenario(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "counter",
		Description: "two increments",
		Fixture:     FixtureCounter,
		Steps: []Step{
			{Op: OpDispatch, Action: "INC"},
			{Op: OpDispatch, Action: "INC"},
		},
		Assertions: []Assertion{
			{Type: AssertStateSequence, States: []any{
				map[string]any{"counter": 0},
				map[string]any{"counter": 1},
				map[string]any{"counter": 2},
			}},
		},
	})

	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, []string{"action", "state", "action", "state", "action", "state", "complete"}, kinds(result.Trace))
	assert.Equal(t, map[string]any{"counter": int64(2)}, result.State)

	for i, e := range result.Trace {
		assert.Equal(t, int64(i+1), e.Seq, "seq is dense and ordered")
	}
}

func TestRun_RecordsInitFirst(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "init",
		Description: "nothing dispatched",
		Fixture:     FixtureCounter,
		Steps:       []Step{{Op: OpSubscribe}},
		Assertions:  []Assertion{{Type: AssertEmissionCount, Count: intPtr(1)}},
	})

	require.GreaterOrEqual(t, len(result.Trace), 3)
	assert.Equal(t, TraceEvent{Kind: KindAction, Seq: 1, Action: "INIT_STORE"}, result.Trace[0])
	assert.Equal(t, KindState, result.Trace[1].Kind)
	assert.Equal(t, KindReplay, result.Trace[2].Kind)
	assert.Equal(t, result.Trace[1].State, result.Trace[2].State)
}

func TestRun_FailedAssertionIsReported(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "wrong",
		Description: "expects the wrong count",
		Fixture:     FixtureCounter,
		Steps:       []Step{{Op: OpDispatch, Action: "INC"}},
		Assertions: []Assertion{
			{Type: AssertFinalState, Branch: "counter", State: 5},
		},
	})

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: final_state")
	assert.Contains(t, result.Errors[0], "counter = 5")
}

func TestRun_ReducerFaultTraced(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "boom",
		Description: "reducer panics",
		Fixture:     FixtureFaulty,
		Steps: []Step{
			{Op: OpDispatch, Action: "BOOM"},
			{Op: OpDispatch, Action: "INC"},
		},
		Assertions: []Assertion{{Type: AssertEmissionCount, Count: intPtr(1)}},
	})

	assert.True(t, result.Pass, result.Errors)
	faults := result.Events(KindFault)
	require.Len(t, faults, 1)
	assert.Equal(t, "REDUCER_PANIC", faults[0].Code)
	assert.Equal(t, "reducer", faults[0].Pipeline)
	assert.Equal(t, "BOOM", faults[0].Action)
	assert.Equal(t, "stop", faults[0].Decision)
	assert.Equal(t, "panic: counter: BOOM", faults[0].Error)
}

func TestRun_SkipPolicyKeepsReducer(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "boom_skip",
		Description: "reducer panics under skip",
		Fixture:     FixtureFaulty,
		Policy:      "skip",
		Steps: []Step{
			{Op: OpDispatch, Action: "BOOM"},
			{Op: OpDispatch, Action: "INC"},
		},
		Assertions: []Assertion{
			{Type: AssertEmissionCount, Count: intPtr(2)},
			{Type: AssertFaultCount, Code: "REDUCER_PANIC", Count: intPtr(1)},
			{Type: AssertFinalState, Branch: "counter", State: 1},
		},
	})

	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "skip", result.Events(KindFault)[0].Decision)
}

func TestRun_TodosFetch(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "fetch",
		Description: "loads the catalog",
		Fixture:     FixtureTodos,
		Seed:        []string{"milk"},
		Steps: []Step{
			{Op: OpDispatch, Action: "FETCH"},
			{Op: OpWait, For: "5s", Until: "FETCH_SUCCESS"},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Branch: "todos", State: []any{
				map[string]any{"id": 1, "title": "milk", "done": false},
			}},
		},
	})

	assert.True(t, result.Pass, result.Errors)
}

func TestRun_WaitUntilTimesOut(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{
		Name:        "timeout",
		Description: "waits for an action nobody emits",
		Fixture:     FixtureCounter,
		Steps:       []Step{{Op: OpWait, For: "20ms", Until: "NEVER"}},
		Assertions:  []Assertion{{Type: AssertEmissionCount, Count: intPtr(1)}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, err.Error(), "steps[0] (wait)")
}

func TestRun_WaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Run(ctx, &Scenario{
		Name:        "cancelled",
		Description: "context already done",
		Fixture:     FixtureCounter,
		Steps:       []Step{{Op: OpWait, For: "10s"}},
		Assertions:  []Assertion{{Type: AssertEmissionCount, Count: intPtr(1)}},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_BadPayload(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{
		Name:        "bad",
		Description: "INC does not take a payload",
		Fixture:     FixtureCounter,
		Steps:       []Step{{Op: OpDispatch, Action: "INC", Payload: 3}},
		Assertions:  []Assertion{{Type: AssertEmissionCount, Count: intPtr(1)}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes no payload")
}

func TestRun_UnknownFixture(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Name: "x", Fixture: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown fixture "nope"`)
}
