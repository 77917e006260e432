package engine

import (
	"sync"

	"github.com/roach88/redogs/internal/action"
)

// envelope is a queued action with its bookkeeping.
type envelope struct {
	action action.Action
	seq    int64
	// depth counts how many effect hops separate this action from the
	// external dispatch that started the chain.
	depth int
}

// actionQueue is a thread-safe FIFO of pending actions.
//
// The queue is unbounded so that effects emitting while the queue is being
// drained never block the drain loop that would empty it.
type actionQueue struct {
	mu      sync.Mutex
	pending []envelope
	closed  bool
}

func newActionQueue() *actionQueue {
	return &actionQueue{
		pending: make([]envelope, 0, 16),
	}
}

// Enqueue appends e. Returns false once the queue is closed.
func (q *actionQueue) Enqueue(e envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = append(q.pending, e)
	return true
}

// TryDequeue removes the front envelope without blocking.
// Returns false if the queue is empty or closed.
func (q *actionQueue) TryDequeue() (envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.pending) == 0 {
		return envelope{}, false
	}

	e := q.pending[0]
	// Clear the slot so the payload can be collected.
	q.pending[0] = envelope{}
	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}
	return e, true
}

// Len returns the number of pending envelopes.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further envelopes and drops the pending ones.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.pending = nil
}
