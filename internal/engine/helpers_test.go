package engine

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/stream"
	"github.com/roach88/redogs/internal/testutil"
)

// collector records everything a stream delivers.
type collector[T any] struct {
	mu        sync.Mutex
	values    []T
	completed bool
	err       error
	sub       stream.Subscription
}

func collect[T any](src stream.Stream[T]) *collector[T] {
	c := &collector[T]{}
	c.sub = src.Subscribe(stream.Observer[T]{
		Next: func(v T) {
			c.mu.Lock()
			c.values = append(c.values, v)
			c.mu.Unlock()
		},
		Error: func(err error) {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
		},
		Complete: func() {
			c.mu.Lock()
			c.completed = true
			c.mu.Unlock()
		},
	})
	return c
}

func (c *collector[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.values))
	copy(out, c.values)
	return out
}

func (c *collector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

func (c *collector[T]) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// newTestLogger returns a JSON logger writing error-level records to a buffer.
func newTestLogger() (*slog.Logger, *testutil.LogBuffer) {
	return testutil.NewLogger(slog.LevelError)
}

// recordingPolicy remembers every fault and answers with a fixed decision.
type recordingPolicy struct {
	mu       sync.Mutex
	faults   []*PipelineError
	decision Decision
}

func (p *recordingPolicy) Handle(err *PipelineError) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = append(p.faults, err)
	return p.decision
}

func (p *recordingPolicy) Faults() []*PipelineError {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*PipelineError, len(p.faults))
	copy(out, p.faults)
	return out
}

// fakeMetrics counts calls to the Metrics interface.
type fakeMetrics struct {
	mu         sync.Mutex
	dispatched map[string]int
	emitted    int
	suppressed int
	faults     map[ErrorCode]int
	maxDepth   int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		dispatched: make(map[string]int),
		faults:     make(map[ErrorCode]int),
	}
}

func (m *fakeMetrics) ActionDispatched(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched[t]++
}

func (m *fakeMetrics) StateEmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted++
}

func (m *fakeMetrics) StateSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed++
}

func (m *fakeMetrics) PipelineFault(_ Pipeline, code ErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[code]++
}

func (m *fakeMetrics) QueueDepth(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.maxDepth {
		m.maxDepth = n
	}
}

// counter is the reducer from the canonical counter scenario.
func counter(a action.Action, state int) int {
	switch a.Type {
	case "INC":
		return state + 1
	case "DEC":
		return state - 1
	case "BOOM":
		panic("boom")
	default:
		return state
	}
}

// actionLog is a reducer wrapper that records every action the reducer sees.
type actionLog struct {
	mu    sync.Mutex
	types []string
}

func (l *actionLog) wrap(r Reducer[int]) Reducer[int] {
	return func(a action.Action, state int) int {
		l.mu.Lock()
		l.types = append(l.types, a.Type)
		l.mu.Unlock()
		return r(a, state)
	}
}

func (l *actionLog) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.types))
	copy(out, l.types)
	return out
}

func newCounterStore(t *testing.T, effect Effect[int], opts ...Option) *Store[int] {
	t.Helper()
	st := New(counter, effect, opts...)
	t.Cleanup(st.Destroy)
	return st
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
