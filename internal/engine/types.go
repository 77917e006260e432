package engine

import (
	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/stream"
)

// InitType is the type of the bootstrap action.
const InitType = "INIT_STORE"

// InitAction is dispatched exactly once, right after a store is wired, so
// that reducers establish their initial state.
var InitAction = action.Action{Type: InitType}

// Reducer computes the next state. It must be pure and total: unknown action
// types return state itself, never a copy.
type Reducer[S any] func(a action.Action, state S) S

// Effect observes actions and state and returns the actions it wants
// dispatched. Effects receive every action, including the ones they caused.
type Effect[S any] func(actions stream.Stream[action.Action], states stream.Stream[S]) stream.Stream[action.Action]

// Pipeline names one of the two independently failing halves of a store.
type Pipeline string

const (
	// PipelineReducer folds actions into state.
	PipelineReducer Pipeline = "reducer"
	// PipelineEffects feeds effect output back into the action queue.
	PipelineEffects Pipeline = "effects"
)

// LogPrefix returns the fixed prefix used when logging faults of p.
func LogPrefix(p Pipeline) string {
	if p == PipelineEffects {
		return "[redogs:effects]"
	}
	return "[redogs:store]"
}

// Metrics receives store telemetry. See internal/metrics for the Prometheus
// implementation.
type Metrics interface {
	ActionDispatched(actionType string)
	StateEmitted()
	StateSuppressed()
	PipelineFault(p Pipeline, code ErrorCode)
	QueueDepth(n int)
}

type nopMetrics struct{}

func (nopMetrics) ActionDispatched(string)           {}
func (nopMetrics) StateEmitted()                     {}
func (nopMetrics) StateSuppressed()                  {}
func (nopMetrics) PipelineFault(Pipeline, ErrorCode) {}
func (nopMetrics) QueueDepth(int)                    {}
