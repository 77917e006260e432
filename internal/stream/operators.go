package stream

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Filter forwards the values of src for which keep returns true.
func Filter[T any](src Stream[T], keep func(T) bool) Stream[T] {
	return New(func(out Sink[T]) func() {
		sub := src.Subscribe(Observer[T]{
			Next: func(v T) {
				if keep(v) {
					out.Next(v)
				}
			},
			Error:    out.Error,
			Complete: out.Complete,
		})
		return sub.Unsubscribe
	})
}

// Map transforms every value of src.
func Map[T, R any](src Stream[T], fn func(T) R) Stream[R] {
	return New(func(out Sink[R]) func() {
		sub := src.Subscribe(Observer[T]{
			Next:     func(v T) { out.Next(fn(v)) },
			Error:    out.Error,
			Complete: out.Complete,
		})
		return sub.Unsubscribe
	})
}

// Merge interleaves the values of all sources in arrival order. It completes
// once every source has completed and fails as soon as any source fails.
// Merge of no sources completes immediately.
func Merge[T any](sources ...Stream[T]) Stream[T] {
	return New(func(out Sink[T]) func() {
		if len(sources) == 0 {
			out.Complete()
			return nil
		}

		g := newGroup(out)
		for _, src := range sources {
			if out.Closed() {
				break
			}
			g.add(src)
		}
		g.seal()
		return g.release
	})
}

// MergeMap projects each value of src to an inner stream and merges the
// inner streams. It completes when src and every inner stream have completed.
func MergeMap[T, R any](src Stream[T], project func(T) Stream[R]) Stream[R] {
	return New(func(out Sink[R]) func() {
		g := newGroup(out)
		outer := src.Subscribe(Observer[T]{
			Next: func(v T) {
				g.add(project(v))
			},
			Error:    out.Error,
			Complete: g.seal,
		})
		g.track(outer)
		return g.release
	})
}

// Go runs fn on its own goroutine for every subscriber and emits its single
// result. The context passed to fn is cancelled when the subscription ends.
// A returned error, or a panic inside fn, terminates the stream with Error.
func Go[T any](fn func(ctx context.Context) (T, error)) Stream[T] {
	return New(func(out Sink[T]) func() {
		ctx := out.Context()
		go func() {
			defer func() {
				if r := recover(); r != nil {
					out.Error(fmt.Errorf("stream: panic in producer: %v", r))
				}
			}()
			v, err := fn(ctx)
			if err != nil {
				out.Error(err)
				return
			}
			out.Next(v)
			out.Complete()
		}()
		return nil
	})
}

// After emits v once d has elapsed, then completes.
func After[T any](d time.Duration, v T) Stream[T] {
	return New(func(out Sink[T]) func() {
		t := time.AfterFunc(d, func() {
			out.Next(v)
			out.Complete()
		})
		return func() { t.Stop() }
	})
}

// group merges a dynamic set of inner streams into out.
type group[T any] struct {
	out Sink[T]

	mu     sync.Mutex
	subs   []Subscription
	active int
	sealed bool
}

func newGroup[T any](out Sink[T]) *group[T] {
	return &group[T]{out: out}
}

func (g *group[T]) add(src Stream[T]) {
	g.mu.Lock()
	g.active++
	g.mu.Unlock()

	sub := src.Subscribe(Observer[T]{
		Next:     g.out.Next,
		Error:    g.out.Error,
		Complete: g.done,
	})
	g.track(sub)
}

func (g *group[T]) track(sub Subscription) {
	g.mu.Lock()
	if sub.Closed() {
		g.mu.Unlock()
		return
	}
	// Drop finished inner subscriptions so long-lived merges do not grow.
	live := g.subs[:0]
	for _, s := range g.subs {
		if !s.Closed() {
			live = append(live, s)
		}
	}
	g.subs = append(live, sub)
	g.mu.Unlock()
}

func (g *group[T]) done() {
	g.mu.Lock()
	g.active--
	finished := g.sealed && g.active == 0
	g.mu.Unlock()
	if finished {
		g.out.Complete()
	}
}

// seal marks that no further sources will be added.
func (g *group[T]) seal() {
	g.mu.Lock()
	g.sealed = true
	finished := g.active == 0
	g.mu.Unlock()
	if finished {
		g.out.Complete()
	}
}

func (g *group[T]) release() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}
