package stream

import "sync"

// hub is the multicast core shared by Subject and Replay.
type hub[T any] struct {
	mu     sync.Mutex
	subs   []*sink[T]
	replay bool
	latest T
	has    bool
	done   bool
}

func (h *hub[T]) subscribe(o Observer[T]) Subscription {
	s := newSink(o)

	h.mu.Lock()
	// The replayed value is queued while the lock is held so that any later
	// publication is always queued behind it.
	claim := false
	if h.replay && h.has {
		claim = s.offer(note[T]{kind: noteNext, value: h.latest})
	}
	if h.done {
		claim = s.offer(note[T]{kind: noteComplete}) || claim
		h.mu.Unlock()
		if claim {
			s.flush()
		}
		return s
	}
	h.subs = append(h.subs, s)
	h.mu.Unlock()

	s.addTeardown(func() { h.remove(s) })
	if claim {
		s.flush()
	}
	return s
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	if h.replay {
		h.latest = v
		h.has = true
	}
	subs := make([]*sink[T], len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.Next(v)
	}
}

func (h *hub[T]) complete() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for _, s := range subs {
		s.Complete()
	}
}

func (h *hub[T]) remove(target *sink[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s == target {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

func (h *hub[T]) observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub[T]) isDone() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Subject is a hot multicast stream. Every published value goes to the
// observers subscribed at that moment, in subscription order.
type Subject[T any] struct {
	h hub[T]
}

// NewSubject creates an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe implements Stream.
func (s *Subject[T]) Subscribe(o Observer[T]) Subscription { return s.h.subscribe(o) }

// Publish delivers v to every current observer. No-op once completed.
func (s *Subject[T]) Publish(v T) { s.h.publish(v) }

// Complete terminates the subject. Late subscribers complete immediately.
func (s *Subject[T]) Complete() { s.h.complete() }

// Done reports whether Complete has been called.
func (s *Subject[T]) Done() bool { return s.h.isDone() }

// Observers returns the number of active subscriptions.
func (s *Subject[T]) Observers() int { return s.h.observers() }

// Replay is a Subject with a one-slot replay buffer: each new subscriber
// first receives the most recently published value, if any.
type Replay[T any] struct {
	h hub[T]
}

// NewReplay creates an empty Replay.
func NewReplay[T any]() *Replay[T] {
	return &Replay[T]{h: hub[T]{replay: true}}
}

// Subscribe implements Stream.
func (r *Replay[T]) Subscribe(o Observer[T]) Subscription { return r.h.subscribe(o) }

// Publish records v as the latest value and delivers it to every observer.
func (r *Replay[T]) Publish(v T) { r.h.publish(v) }

// Complete terminates the stream. Late subscribers still receive the
// buffered value before completing.
func (r *Replay[T]) Complete() { r.h.complete() }

// Done reports whether Complete has been called.
func (r *Replay[T]) Done() bool { return r.h.isDone() }

// Observers returns the number of active subscriptions.
func (r *Replay[T]) Observers() int { return r.h.observers() }

// Latest returns the buffered value.
func (r *Replay[T]) Latest() (T, bool) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	return r.h.latest, r.h.has
}
