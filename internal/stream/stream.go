package stream

import "context"

// Observer receives notifications from a Stream. Nil callbacks are skipped.
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	// Unsubscribe stops delivery and releases the producer. Idempotent.
	Unsubscribe()
	// Closed reports whether the subscription has finished, either by
	// unsubscription or by a terminal notification.
	Closed() bool
}

// Stream is a source of values that can be subscribed to.
type Stream[T any] interface {
	Subscribe(o Observer[T]) Subscription
}

// Sink is the producer side of a stream created with New.
//
// Sink methods are safe to call from any goroutine. Calls after a terminal
// notification or after the subscriber has gone away are ignored.
type Sink[T any] interface {
	Next(v T)
	Error(err error)
	Complete()
	Closed() bool
	// Context is cancelled once the subscription is finished.
	Context() context.Context
}

// Func adapts a subscribe function to the Stream interface.
type Func[T any] func(o Observer[T]) Subscription

// Subscribe implements Stream.
func (f Func[T]) Subscribe(o Observer[T]) Subscription { return f(o) }

// New creates a cold stream. produce runs once for every subscriber and may
// return a teardown that runs when that subscription finishes.
func New[T any](produce func(out Sink[T]) (teardown func())) Stream[T] {
	return Func[T](func(o Observer[T]) Subscription {
		s := newSink(o)
		s.addTeardown(produce(s))
		return s
	})
}

// Of emits each value in order, then completes.
func Of[T any](values ...T) Stream[T] {
	return New(func(out Sink[T]) func() {
		for _, v := range values {
			out.Next(v)
		}
		out.Complete()
		return nil
	})
}

// Empty completes immediately.
func Empty[T any]() Stream[T] {
	return Of[T]()
}

// Never neither emits nor terminates.
func Never[T any]() Stream[T] {
	return New(func(Sink[T]) func() { return nil })
}

// Fail terminates immediately with err.
func Fail[T any](err error) Stream[T] {
	return New(func(out Sink[T]) func() {
		out.Error(err)
		return nil
	})
}
