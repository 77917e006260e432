package demo

import (
	"context"
	"log/slog"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/catalog"
	"github.com/roach88/redogs/internal/engine"
	"github.com/roach88/redogs/internal/stream"
)

// Loader fetches the todo list.
type Loader func(ctx context.Context) ([]Todo, error)

// CatalogLoader loads todos from c.
func CatalogLoader(c *catalog.Catalog) Loader {
	return func(ctx context.Context) ([]Todo, error) {
		items, err := c.List(ctx)
		if err != nil {
			return nil, err
		}
		todos := make([]Todo, len(items))
		for i, it := range items {
			todos[i] = Todo{ID: it.ID, Title: it.Title, Done: it.Done}
		}
		return todos, nil
	}
}

// FetchEffect answers every FETCH by running load on its own goroutine and
// emitting FETCH_SUCCESS or FETCH_FAILURE. Outstanding loads are cancelled
// when the store is destroyed.
func FetchEffect(load Loader) engine.Effect[engine.Tree] {
	return func(actions stream.Stream[action.Action], _ stream.Stream[engine.Tree]) stream.Stream[action.Action] {
		return stream.MergeMap(action.OfType(actions, Fetch), func(action.Action) stream.Stream[action.Action] {
			return stream.Go(func(ctx context.Context) (action.Action, error) {
				todos, err := load(ctx)
				if err != nil {
					// A failed load is an outcome, not an effect fault.
					return FetchFailure.With(err.Error()), nil
				}
				return FetchSuccess.With(todos), nil
			})
		})
	}
}

// PersistEffect writes every ADD_TODO and TOGGLE_TODO to c. It runs on the
// drain goroutine, so a FETCH dispatched after a write always sees it. It
// emits nothing; write failures are logged to logger.
func PersistEffect(c *catalog.Catalog, logger *slog.Logger) engine.Effect[engine.Tree] {
	return func(actions stream.Stream[action.Action], _ stream.Stream[engine.Tree]) stream.Stream[action.Action] {
		return stream.New(func(out stream.Sink[action.Action]) func() {
			sub := action.OfType(actions, AddTodo, ToggleTodo).Subscribe(stream.Observer[action.Action]{
				Next: func(a action.Action) {
					switch a.Type {
					case AddTodo.Type():
						title, _ := action.Payload[string](a)
						if _, err := c.Add(out.Context(), title); err != nil {
							logger.Warn("persist todo failed", "title", title, "error", err)
						}
					case ToggleTodo.Type():
						t, _ := action.Payload[Toggle](a)
						if err := c.SetDone(out.Context(), t.ID, t.Done); err != nil {
							logger.Warn("persist toggle failed", "id", t.ID, "error", err)
						}
					}
				},
				Error:    out.Error,
				Complete: out.Complete,
			})
			return sub.Unsubscribe
		})
	}
}
