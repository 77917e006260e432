package engine

import (
	"github.com/roach88/redogs/internal/stream"
)

// guard wraps a bus for use inside the effect pipeline. Panics raised by
// observers subscribed through it become effect faults, deliveries stop once
// the effect pipeline stops, and every subscription taken through it is
// released when the pipeline stops.
func guard[S, T any](s *Store[S], src stream.Stream[T]) stream.Stream[T] {
	return stream.Func[T](func(o stream.Observer[T]) stream.Subscription {
		sub := src.Subscribe(stream.Observer[T]{
			Next: func(v T) {
				if o.Next != nil && s.effectsOn.Load() {
					s.call(func() { o.Next(v) })
				}
			},
			Error: func(err error) {
				if o.Error != nil && s.effectsOn.Load() {
					s.call(func() { o.Error(err) })
				}
			},
			Complete: func() {
				if o.Complete != nil && s.effectsOn.Load() {
					s.call(o.Complete)
				}
			},
		})
		s.track(sub)
		return sub
	})
}

// protect wraps a bus handed to code outside the store. A panicking observer
// is logged and its delivery dropped; it never unwinds into Dispatch.
func protect[S, T any](s *Store[S], src stream.Stream[T]) stream.Stream[T] {
	return stream.Func[T](func(o stream.Observer[T]) stream.Subscription {
		return src.Subscribe(stream.Observer[T]{
			Next: func(v T) {
				if o.Next != nil {
					s.shield(func() { o.Next(v) })
				}
			},
			Error: func(err error) {
				if o.Error != nil {
					s.shield(func() { o.Error(err) })
				}
			},
			Complete: func() {
				if o.Complete != nil {
					s.shield(o.Complete)
				}
			},
		})
	})
}

func (s *Store[S]) shield(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if pe, ok := r.(*PipelineError); ok {
			panic(pe)
		}
		attrs := []any{"store_id", s.id, "error", panicError(r)}
		if cur := s.cursor.Load(); cur != nil {
			attrs = append(attrs, "action", cur.action.Type, "seq", cur.seq)
		}
		s.logger.Error("subscriber panic", attrs...)
	}()
	fn()
}
