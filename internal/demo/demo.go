// Package demo is the todo application used by the CLI and the scenario
// harness. It exercises every part of a store: composed branch reducers,
// a synchronous effect writing to the catalog and an asynchronous effect
// loading from it.
package demo

import (
	"log/slog"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/catalog"
	"github.com/roach88/redogs/internal/engine"
)

// Action creators.
var (
	Inc          = action.NewCreator("INC")
	Dec          = action.NewCreator("DEC")
	AddTodo      = action.NewCreator("ADD_TODO")
	ToggleTodo   = action.NewCreator("TOGGLE_TODO")
	Fetch        = action.NewCreator("FETCH")
	FetchSuccess = action.NewCreator("FETCH_SUCCESS")
	FetchFailure = action.NewCreator("FETCH_FAILURE")
	// Boom makes the counter reducer panic.
	Boom = action.NewCreator("BOOM")
)

// Branch names in the state tree.
const (
	BranchCounter = "counter"
	BranchStatus  = "status"
	BranchTodos   = "todos"
)

// Todo is one entry of the todos branch.
type Todo struct {
	ID    int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Title string `json:"title" yaml:"title"`
	Done  bool   `json:"done" yaml:"done"`
}

// Toggle is the TOGGLE_TODO payload.
type Toggle struct {
	ID   int64 `json:"id" yaml:"id"`
	Done bool  `json:"done" yaml:"done"`
}

// Status tracks the FETCH round trip.
type Status struct {
	Loading bool   `json:"loading" yaml:"loading"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Snapshot is a typed view of the demo state tree.
type Snapshot struct {
	Counter int    `json:"counter"`
	Status  Status `json:"status"`
	Todos   []Todo `json:"todos"`
}

// View extracts a Snapshot from a demo tree. Missing branches read as zero.
func View(tree engine.Tree) Snapshot {
	var s Snapshot
	s.Counter, _ = tree[BranchCounter].(int)
	s.Status, _ = tree[BranchStatus].(Status)
	s.Todos, _ = tree[BranchTodos].([]Todo)
	return s
}

// CounterReducer handles INC and DEC. BOOM panics.
func CounterReducer(a action.Action, n int) int {
	switch a.Type {
	case Inc.Type():
		return n + 1
	case Dec.Type():
		return n - 1
	case Boom.Type():
		panic("counter: BOOM")
	default:
		return n
	}
}

// TodosReducer appends on ADD_TODO, replaces the list on FETCH_SUCCESS and
// flips Done on TOGGLE_TODO. Todos added since the last fetch have no ID yet
// and cannot be toggled.
func TodosReducer(a action.Action, todos []Todo) []Todo {
	switch a.Type {
	case AddTodo.Type():
		title, ok := action.Payload[string](a)
		if !ok || title == "" {
			return todos
		}
		next := make([]Todo, len(todos), len(todos)+1)
		copy(next, todos)
		return append(next, Todo{Title: title})
	case FetchSuccess.Type():
		loaded, ok := action.Payload[[]Todo](a)
		if !ok {
			return todos
		}
		return loaded
	case ToggleTodo.Type():
		t, ok := action.Payload[Toggle](a)
		if !ok || t.ID == 0 {
			return todos
		}
		for i, td := range todos {
			if td.ID != t.ID {
				continue
			}
			if td.Done == t.Done {
				return todos
			}
			next := make([]Todo, len(todos))
			copy(next, todos)
			next[i].Done = t.Done
			return next
		}
		return todos
	default:
		return todos
	}
}

// StatusReducer follows FETCH, FETCH_SUCCESS and FETCH_FAILURE.
func StatusReducer(a action.Action, s Status) Status {
	switch a.Type {
	case Fetch.Type():
		return Status{Loading: true}
	case FetchSuccess.Type():
		return Status{}
	case FetchFailure.Type():
		msg, _ := action.Payload[string](a)
		return Status{Error: msg}
	default:
		return s
	}
}

// Reducer returns the root reducer of the demo application.
func Reducer() engine.Reducer[engine.Tree] {
	return engine.ComposeReducers(map[string]engine.Reducer[any]{
		BranchCounter: engine.Branch(0, CounterReducer),
		BranchStatus:  engine.Branch(Status{}, StatusReducer),
		BranchTodos:   engine.Branch([]Todo(nil), TodosReducer),
	}, nil)
}

// New builds the demo store against c. logger becomes the store's logger and
// receives catalog write failures; nil means slog.Default(). Options may still
// override the store logger.
func New(c *catalog.Catalog, logger *slog.Logger, opts ...engine.Option) *engine.Store[engine.Tree] {
	if logger == nil {
		logger = slog.Default()
	}
	effect := engine.ComposeEffects(
		PersistEffect(c, logger),
		FetchEffect(CatalogLoader(c)),
	)
	return engine.New(Reducer(), effect, append([]engine.Option{engine.WithLogger(logger)}, opts...)...)
}
