// Package harness runs scenarios against redogs stores and records what the
// buses did.
//
// # Scenario Format
//
// Scenarios are YAML (strict: unknown fields are rejected) or CUE files:
//
//	name: counter_increments
//	description: "INC twice emits 0, 1, 2"
//	fixture: counter
//	steps:
//	  - op: dispatch
//	    action: INC
//	  - op: wait
//	    for: 2s
//	    until: FETCH_SUCCESS
//	  - op: subscribe
//	  - op: destroy
//	assertions:
//	  - type: state_sequence
//	    states: [{counter: 0}, {counter: 1}, {counter: 2}]
//
// # Fixtures
//
//   - counter: a single counter branch, no effects
//   - todos: the demo application over an in-memory catalog (seed: lists
//     the titles it starts with)
//   - faulty: the demo reducers plus effects that echo PING forever and
//     panic on EXPLODE
//
// # Assertion Types
//
//   - state_sequence: every state emission, in order
//   - final_state: the last published state, or one branch of it
//   - emission_count: number of state emissions, including the initial one
//   - fault_count: number of pipeline faults, optionally of one code
//
// # Trace
//
// Every observation is a TraceEvent with a kind (action, state, fault,
// replay, complete) and a sequence number. A state or fault is written
// right after the action that caused it. Values are canonical JSON, and the
// store id is fixed, so a trace is identical across runs and can be
// compared against a golden file with RunWithGolden.
package harness
