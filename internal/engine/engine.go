package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/stream"
)

// Store is the orchestrator: it owns the Action Bus, the State Bus, the
// reducer pipeline and the effect pipeline.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine
//   - State(), Actions(), Current(): safe from any goroutine
//   - Destroy(): safe from any goroutine, idempotent
//
// INVARIANTS:
//   - INIT_STORE is the first action the reducer sees
//   - At most one goroutine drains the queue at a time
//   - Only the reducer pipeline publishes on the State Bus
//   - A published state is never Identical to the one before it
type Store[S any] struct {
	id      string
	reducer Reducer[S]
	logger  *slog.Logger
	policy  Policy
	metrics Metrics
	clock   *Clock

	maxCascade int

	queue    *actionQueue
	draining atomic.Bool
	// cursor is the envelope being drained, nil between drains.
	cursor atomic.Pointer[envelope]

	actions *stream.Subject[action.Action]
	states  *stream.Replay[S]

	// Reducer pipeline state. Only the draining goroutine touches these.
	last    S
	emitted bool

	reducerOn atomic.Bool
	effectsOn atomic.Bool

	mu         sync.Mutex
	reducerSub stream.Subscription
	effectSub  stream.Subscription
	// effectSubs are the subscriptions effects took on the guarded buses.
	effectSubs []stream.Subscription

	once sync.Once
	done chan struct{}
}

// New wires a store and dispatches InitAction before returning.
//
// effect may be nil, in which case the store has no effect pipeline.
// Options can be passed to configure the store (e.g., WithPolicy).
//
// Panics if reducer is nil.
func New[S any](reducer Reducer[S], effect Effect[S], opts ...Option) *Store[S] {
	if reducer == nil {
		panic("engine: nil reducer")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.policy == nil {
		o.policy = SuppressPolicy{Logger: o.logger}
	}
	if o.clock == nil {
		o.clock = NewClock()
	}

	s := &Store[S]{
		id:         o.ids.Generate(),
		reducer:    reducer,
		logger:     o.logger,
		policy:     o.policy,
		metrics:    o.metrics,
		clock:      o.clock,
		maxCascade: o.maxCascade,
		queue:      newActionQueue(),
		actions:    stream.NewSubject[action.Action](),
		states:     stream.NewReplay[S](),
		done:       make(chan struct{}),
	}

	// Hold the drain while wiring so that INIT_STORE is queued ahead of
	// anything an effect emits while it subscribes.
	s.draining.Store(true)
	func() {
		defer s.draining.Store(false)

		s.reducerOn.Store(true)
		sub := s.actions.Subscribe(stream.Observer[action.Action]{Next: s.reduce})
		s.mu.Lock()
		s.reducerSub = sub
		s.mu.Unlock()

		s.enqueue(InitAction, 0)

		if effect != nil {
			s.effectsOn.Store(true)
			s.startEffects(effect)
		}
	}()

	s.logger.Debug("store created", "store_id", s.id, "effects", effect != nil)
	s.drain()
	return s
}

// ID returns the store identifier used in logs.
func (s *Store[S]) ID() string {
	return s.id
}

// Dispatch queues a for processing. If no other goroutine is draining the
// queue, Dispatch processes a, and every action effects emit synchronously in
// response, before returning.
//
// Dispatch never panics under SuppressPolicy or IsolatePolicy. After Destroy
// it does nothing.
func (s *Store[S]) Dispatch(a action.Action) {
	if s.destroyed() {
		return
	}
	if !s.enqueue(a, 0) {
		return
	}
	s.drain()
}

// State returns a read-only view of the State Bus. New subscribers first
// receive the latest state, then every later one. The stream completes when
// the store is destroyed or the reducer pipeline stops.
func (s *Store[S]) State() stream.Stream[S] {
	return protect(s, stream.Stream[S](s.states))
}

// Actions returns a read-only view of the Action Bus. Subscribers see every
// action from the moment they subscribe, including ones effects emit.
func (s *Store[S]) Actions() stream.Stream[action.Action] {
	return protect(s, stream.Stream[action.Action](s.actions))
}

// Current returns the latest published state, if any.
func (s *Store[S]) Current() (S, bool) {
	return s.states.Latest()
}

// Running reports whether pipeline p is still live.
func (s *Store[S]) Running(p Pipeline) bool {
	switch p {
	case PipelineReducer:
		return s.reducerOn.Load()
	case PipelineEffects:
		return s.effectsOn.Load()
	default:
		return false
	}
}

// QueueLen returns the number of actions waiting to be processed.
func (s *Store[S]) QueueLen() int {
	return s.queue.Len()
}

// Done returns a channel closed by Destroy. Effects that run their own
// goroutines watch it to cancel outstanding work.
func (s *Store[S]) Done() <-chan struct{} {
	return s.done
}

// Destroy fires the teardown signal: it detaches both pipelines from their
// buses, drops queued actions and completes the State Bus. Only the first call
// has any effect.
func (s *Store[S]) Destroy() {
	s.once.Do(func() {
		s.queue.Close()
		s.stop(PipelineEffects)
		s.stop(PipelineReducer)
		s.states.Complete()
		s.actions.Complete()
		close(s.done)
		s.logger.Debug("store destroyed", "store_id", s.id)
	})
}

func (s *Store[S]) destroyed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// enqueue stamps a and appends it to the queue.
func (s *Store[S]) enqueue(a action.Action, depth int) bool {
	env := envelope{action: a, seq: s.clock.Next(), depth: depth}
	if !s.queue.Enqueue(env) {
		return false
	}
	s.metrics.ActionDispatched(a.Type)
	s.metrics.QueueDepth(s.queue.Len())
	return true
}

// drain publishes queued actions on the Action Bus until the queue is empty,
// unless another goroutine is already draining. The queue is re-checked after
// releasing the drain so an action queued during the release is not stranded.
func (s *Store[S]) drain() {
	for {
		if !s.draining.CompareAndSwap(false, true) {
			return
		}
		s.drainQueue()
		if s.queue.Len() == 0 {
			return
		}
	}
}

func (s *Store[S]) drainQueue() {
	defer func() {
		s.cursor.Store(nil)
		s.draining.Store(false)
	}()

	for {
		env, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		s.metrics.QueueDepth(s.queue.Len())
		s.cursor.Store(&env)
		s.logger.Debug("processing action",
			"store_id", s.id,
			"action", env.action.Type,
			"seq", env.seq,
			"depth", env.depth,
		)
		s.actions.Publish(env.action)
	}
}

// reduce is the reducer pipeline: it runs for every action on the Action Bus.
func (s *Store[S]) reduce(a action.Action) {
	if !s.reducerOn.Load() {
		return
	}

	next, err := s.apply(a)
	if err != nil {
		pe := s.pipelineError(PipelineReducer, ErrCodeReducerPanic, err)
		if s.fault(pe) == Skip {
			return
		}
		s.stop(PipelineReducer)
		s.states.Complete()
		return
	}

	if s.emitted && Identical(next, s.last) {
		s.metrics.StateSuppressed()
		s.logger.Debug("state unchanged", "store_id", s.id, "action", a.Type)
		return
	}
	s.last = next
	s.emitted = true
	s.metrics.StateEmitted()
	s.states.Publish(next)
}

// apply runs the reducer, turning a panic into an error.
func (s *Store[S]) apply(a action.Action) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return s.reducer(a, s.last), nil
}

func (s *Store[S]) startEffects(effect Effect[S]) {
	actions := guard(s, stream.Stream[action.Action](s.actions))
	states := guard(s, stream.Stream[S](s.states))

	var out stream.Stream[action.Action]
	if !s.call(func() { out = effect(actions, states) }) {
		return
	}
	if out == nil {
		s.stop(PipelineEffects)
		return
	}

	var sub stream.Subscription
	s.call(func() {
		sub = out.Subscribe(stream.Observer[action.Action]{
			Next:     s.emit,
			Error:    s.effectError,
			Complete: s.effectComplete,
		})
	})
	if sub == nil {
		return
	}

	s.mu.Lock()
	s.effectSub = sub
	stopped := !s.effectsOn.Load()
	s.mu.Unlock()
	if stopped {
		sub.Unsubscribe()
	}
}

// emit feeds an action produced by the effect pipeline back into the queue.
func (s *Store[S]) emit(a action.Action) {
	if !s.effectsOn.Load() {
		return
	}

	// An emission made while an action is being drained is attributed to
	// that action. Emissions from effect goroutines that land during an
	// unrelated drain are attributed to it too and may count one hop more.
	depth := 0
	if cur := s.cursor.Load(); cur != nil {
		depth = cur.depth + 1
	}
	if err := checkCascade(depth, s.maxCascade, a.Type); err != nil {
		pe := s.pipelineError(PipelineEffects, ErrCodeCascadeExceeded, err)
		if s.fault(pe) == Stop {
			s.stop(PipelineEffects)
		}
		return
	}

	if s.enqueue(a, depth) {
		s.drain()
	}
}

func (s *Store[S]) effectError(err error) {
	if !s.effectsOn.Load() {
		return
	}
	// The effect stream has already terminated; there is nothing to skip to.
	s.fault(s.pipelineError(PipelineEffects, ErrCodeEffectError, err))
	s.stop(PipelineEffects)
}

func (s *Store[S]) effectComplete() {
	if !s.effectsOn.Load() {
		return
	}
	s.logger.Debug(LogPrefix(PipelineEffects)+" effect stream completed", "store_id", s.id)
	s.stop(PipelineEffects)
}

// call runs effect code, turning a panic into an effect fault. Returns false
// if fn panicked.
func (s *Store[S]) call(fn func()) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		// A fault already handed to the policy (StrictPolicy re-panics)
		// passes through untouched.
		if _, handled := r.(*PipelineError); handled {
			panic(r)
		}
		ok = false
		pe := s.pipelineError(PipelineEffects, ErrCodeEffectPanic, panicError(r))
		if s.fault(pe) == Stop {
			s.stop(PipelineEffects)
		}
	}()
	fn()
	return true
}

func (s *Store[S]) pipelineError(p Pipeline, code ErrorCode, err error) *PipelineError {
	pe := &PipelineError{
		Code:     code,
		Pipeline: p,
		StoreID:  s.id,
		Err:      err,
	}
	if cur := s.cursor.Load(); cur != nil {
		pe.Action = cur.action.Type
		pe.Seq = cur.seq
	}
	return pe
}

func (s *Store[S]) fault(pe *PipelineError) Decision {
	s.metrics.PipelineFault(pe.Pipeline, pe.Code)
	return s.policy.Handle(pe)
}

// stop detaches pipeline p from its buses. Idempotent.
func (s *Store[S]) stop(p Pipeline) {
	var subs []stream.Subscription

	s.mu.Lock()
	switch p {
	case PipelineReducer:
		if s.reducerOn.CompareAndSwap(true, false) && s.reducerSub != nil {
			subs = append(subs, s.reducerSub)
		}
	case PipelineEffects:
		if s.effectsOn.CompareAndSwap(true, false) {
			if s.effectSub != nil {
				subs = append(subs, s.effectSub)
			}
			subs = append(subs, s.effectSubs...)
			s.effectSubs = nil
		}
	default:
		s.mu.Unlock()
		panic(fmt.Sprintf("engine: unknown pipeline %q", p))
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if len(subs) > 0 {
		s.logger.Debug("pipeline stopped", "store_id", s.id, "pipeline", string(p))
	}
}

// track records a subscription an effect took on a guarded bus so that
// stopping the effect pipeline releases it.
func (s *Store[S]) track(sub stream.Subscription) {
	s.mu.Lock()
	if !s.effectsOn.Load() {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	live := s.effectSubs[:0]
	for _, t := range s.effectSubs {
		if !t.Closed() {
			live = append(live, t)
		}
	}
	s.effectSubs = append(live, sub)
	s.mu.Unlock()
}
