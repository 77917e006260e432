package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

type noteKind int

const (
	noteNext noteKind = iota + 1
	noteError
	noteComplete
)

type note[T any] struct {
	kind  noteKind
	value T
	err   error
}

// sink guards an Observer. It serializes delivery, enforces the terminal
// contract and owns the teardown of whatever feeds it.
//
// Notifications are queued under mu and flushed by whichever goroutine claims
// the emitting flag, so re-entrant or concurrent pushes never run the observer
// twice at once.
type sink[T any] struct {
	obs Observer[T]

	mu        sync.Mutex
	pending   []note[T]
	emitting  bool
	stopped   bool // a terminal notification has been accepted
	teardowns []func()
	ctx       context.Context
	cancel    context.CancelFunc

	closed atomic.Bool
}

func newSink[T any](o Observer[T]) *sink[T] {
	return &sink[T]{obs: o}
}

// Next implements Sink.
func (s *sink[T]) Next(v T) { s.push(note[T]{kind: noteNext, value: v}) }

// Error implements Sink.
func (s *sink[T]) Error(err error) { s.push(note[T]{kind: noteError, err: err}) }

// Complete implements Sink.
func (s *sink[T]) Complete() { s.push(note[T]{kind: noteComplete}) }

// Closed reports whether the subscription is finished.
func (s *sink[T]) Closed() bool { return s.closed.Load() }

// Context is cancelled when the subscription finishes for any reason.
func (s *sink[T]) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		if s.closed.Load() {
			s.cancel()
		}
	}
	return s.ctx
}

// Unsubscribe implements Subscription.
func (s *sink[T]) Unsubscribe() {
	s.close()
}

// offer queues n and reports whether the caller must flush.
func (s *sink[T]) offer(n note[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.closed.Load() {
		return false
	}
	if n.kind != noteNext {
		s.stopped = true
	}
	s.pending = append(s.pending, n)
	if s.emitting {
		return false
	}
	s.emitting = true
	return true
}

func (s *sink[T]) push(n note[T]) {
	if s.offer(n) {
		s.flush()
	}
}

func (s *sink[T]) flush() {
	finished := false
	defer func() {
		if !finished {
			// Observer panicked: drop what is queued and release the flag so
			// the sink stays usable for the caller's fault handling.
			s.mu.Lock()
			s.pending = nil
			s.emitting = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.emitting = false
			s.mu.Unlock()
			finished = true
			return
		}
		n := s.pending[0]
		s.pending[0] = note[T]{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.deliver(n)
	}
}

func (s *sink[T]) deliver(n note[T]) {
	if s.closed.Load() {
		return
	}
	switch n.kind {
	case noteNext:
		if s.obs.Next != nil {
			s.obs.Next(n.value)
		}
	case noteError:
		s.close()
		if s.obs.Error != nil {
			s.obs.Error(n.err)
		}
	case noteComplete:
		s.close()
		if s.obs.Complete != nil {
			s.obs.Complete()
		}
	}
}

// addTeardown registers fn to run when the sink closes. If the sink is
// already closed fn runs immediately.
func (s *sink[T]) addTeardown(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if !s.closed.Load() {
		s.teardowns = append(s.teardowns, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *sink[T]) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	teardowns := s.teardowns
	s.teardowns = nil
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Reverse order: the most recently acquired resource is released first.
	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
}
