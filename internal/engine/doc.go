// Package engine implements the redogs store: one authoritative state value
// folded from a stream of actions, plus a feedback layer of effects that observe
// actions and state and may emit further actions.
//
// ARCHITECTURE:
//
// Two buses, two pipelines:
//
//	Dispatch ─► action queue ─► Action Bus ──┬─► reducer pipeline ─► State Bus ─► State()
//	   ▲                                      │                          │
//	   └──────────── effect pipeline ◄────────┴──────────────────────────┘
//
// Single-Writer Drain Loop:
// Every action, whether dispatched by a caller or emitted by an effect, is
// appended to a FIFO queue. The goroutine that finds the queue idle drains it,
// publishing one action at a time on the Action Bus. This ensures:
//   - Actions reach the reducer strictly in push order
//   - A reducer computation always finishes before the next action starts
//   - An effect that emits synchronously never re-enters the reducer
//
// When nobody else is draining, Dispatch processes the action (and anything
// effects emit in response) before it returns. Effects that suspend (timers,
// I/O) emit later from their own goroutine, which then drains.
//
// Change Suppression:
// The reducer's result is published only if it is not Identical to the
// previous state. Composed reducers return their input tree unchanged when no
// branch changed, so no-op actions never reach subscribers.
//
// Failure Containment:
// A panic in a reducer, a panic in effect code running on the drain loop, or
// an Error from the effect stream is handed to the store's Policy. The default
// SuppressPolicy logs it and stops only the pipeline where it happened.
// Dispatch never panics under the default policy.
//
// Teardown:
// Destroy unsubscribes both pipelines, completes the state stream and closes
// the queue. Effects that start their own goroutines without the stream
// helpers must watch Done() to cancel that work.
package engine
