package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/canonical"
	"github.com/roach88/redogs/internal/demo"
	"github.com/roach88/redogs/internal/engine"
	"github.com/roach88/redogs/internal/stream"
)

// pollInterval is how often a wait step with until checks the trace.
const pollInterval = 5 * time.Millisecond

// Harness runs one scenario against one store.
type Harness struct {
	store  *engine.Store[engine.Tree]
	rec    *recorder
	logger *slog.Logger
}

// Run executes a scenario against a fresh store:
//
// 1. Open the fixture (an in-memory catalog for todos)
// 2. Build the store with a fixed id and a tracing policy
// 3. Execute the steps, recording the trace
// 4. Destroy the store and evaluate assertions
//
// A non-nil error means the scenario could not be executed. Failed
// assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	build, cleanup, err := fixture(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorder{}

	var base engine.Policy = engine.SuppressPolicy{Logger: logger}
	if scenario.Policy == "skip" {
		base = engine.IsolatePolicy{Logger: logger}
	}
	opts := []engine.Option{
		engine.WithIDGenerator(engine.NewFixedGenerator(scenario.Name)),
		engine.WithPolicy(tracingPolicy{next: base, rec: rec}),
	}
	if scenario.MaxCascade > 0 {
		opts = append(opts, engine.WithMaxCascade(scenario.MaxCascade))
	}

	st := build(logger, opts...)
	defer st.Destroy()

	h := &Harness{store: st, rec: rec, logger: logger}
	h.attach()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
		rec.flush()
	}

	if tree, ok := st.Current(); ok {
		state, err := canonical.Normalize(tree)
		if err != nil {
			return nil, fmt.Errorf("final state: %w", err)
		}
		result.State = state
	}

	st.Destroy()
	rec.flush()

	trace, err := rec.result()
	if err != nil {
		return nil, err
	}
	result.Trace = trace

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// attach subscribes the recorder to both buses. INIT_STORE is processed
// inside engine.New, before anything can subscribe, so it is recorded here
// ahead of the state it produced.
func (h *Harness) attach() {
	h.store.State().Subscribe(stream.Observer[engine.Tree]{
		Next:     h.rec.state,
		Complete: h.rec.complete,
	})
	h.rec.action(engine.InitAction)
	h.store.Actions().Subscribe(stream.Observer[action.Action]{
		Next: h.rec.action,
	})
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Op {
	case OpDispatch:
		a, err := demo.Decode(step.Action, step.Payload)
		if err != nil {
			return err
		}
		h.store.Dispatch(a)
		return nil

	case OpWait:
		d, err := time.ParseDuration(step.For)
		if err != nil {
			return err
		}
		if step.Until == "" {
			return sleep(ctx, d)
		}
		return h.waitFor(ctx, step.Until, d)

	case OpSubscribe:
		var got []engine.Tree
		sub := h.store.State().Subscribe(stream.Observer[engine.Tree]{
			Next: func(t engine.Tree) { got = append(got, t) },
		})
		sub.Unsubscribe()
		// The replayed value is delivered during Subscribe; anything after
		// it belongs to the long-lived recorder.
		if len(got) == 0 {
			h.rec.replay(nil, false)
		} else {
			h.rec.replay(got[0], true)
		}
		return nil

	case OpDestroy:
		h.store.Destroy()
		return nil

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// waitFor blocks until an action of type typ has been recorded, or d elapses.
func (h *Harness) waitFor(ctx context.Context, typ string, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if h.rec.seen(typ) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out after %s waiting for %s", d, typ)
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recorder turns bus notifications into trace events.
//
// Within one action's processing the reducer publishes state and effects
// may fault before the recorder's Action Bus observer runs, since that
// observer subscribed last. States and faults are therefore held as pending
// and written out after the action that caused them.
type recorder struct {
	mu      sync.Mutex
	seq     int64
	events  []TraceEvent
	pending []TraceEvent
	types   map[string]bool
	err     error
}

func (r *recorder) action(a action.Action) {
	payload, err := canonical.Normalize(a.Payload)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail(err)
	if r.types == nil {
		r.types = make(map[string]bool)
	}
	r.types[a.Type] = true
	r.append(TraceEvent{Kind: KindAction, Action: a.Type, Payload: payload})
	r.flushLocked()
}

func (r *recorder) state(t engine.Tree) {
	state, err := canonical.Normalize(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail(err)
	r.pending = append(r.pending, TraceEvent{Kind: KindState, State: state})
}

func (r *recorder) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, TraceEvent{Kind: KindComplete})
}

func (r *recorder) fault(pe *engine.PipelineError, d engine.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := TraceEvent{
		Kind:     KindFault,
		Action:   pe.Action,
		Code:     string(pe.Code),
		Pipeline: string(pe.Pipeline),
		Decision: d.String(),
	}
	if pe.Err != nil {
		e.Error = pe.Err.Error()
	}
	r.pending = append(r.pending, e)
}

func (r *recorder) replay(t engine.Tree, ok bool) {
	var state any
	var err error
	if ok {
		state, err = canonical.Normalize(t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail(err)
	r.flushLocked()
	r.append(TraceEvent{Kind: KindReplay, State: state})
}

func (r *recorder) seen(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.types[typ]
}

func (r *recorder) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
}

func (r *recorder) flushLocked() {
	for _, e := range r.pending {
		r.append(e)
	}
	r.pending = nil
}

func (r *recorder) append(e TraceEvent) {
	r.seq++
	e.Seq = r.seq
	r.events = append(r.events, e)
}

func (r *recorder) fail(err error) {
	if err != nil {
		r.err = errors.Join(r.err, err)
	}
}

func (r *recorder) result() ([]TraceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, fmt.Errorf("failed to record trace: %w", r.err)
	}
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

// tracingPolicy records every fault and defers the decision to next.
type tracingPolicy struct {
	next engine.Policy
	rec  *recorder
}

func (p tracingPolicy) Handle(err *engine.PipelineError) engine.Decision {
	d := p.next.Handle(err)
	p.rec.fault(err, d)
	return d
}
