package demo

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/catalog"
	"github.com/roach88/redogs/internal/engine"
	"github.com/roach88/redogs/internal/stream"
	"github.com/roach88/redogs/internal/testutil"
)

func openCatalog(t *testing.T, titles ...string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(filepath.Join(t.TempDir(), "todos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Seed(context.Background(), titles...))
	return c
}

func newStore(t *testing.T, c *catalog.Catalog) *engine.Store[engine.Tree] {
	t.Helper()
	st := New(c, nil, engine.WithIDGenerator(engine.NewFixedGenerator("demo")))
	t.Cleanup(st.Destroy)
	return st
}

func current(t *testing.T, st *engine.Store[engine.Tree]) Snapshot {
	t.Helper()
	tree, ok := st.Current()
	require.True(t, ok)
	return View(tree)
}

func TestDemo_InitialState(t *testing.T) {
	st := newStore(t, openCatalog(t))

	assert.Equal(t, Snapshot{}, current(t, st))
}

func TestDemo_Counter(t *testing.T) {
	st := newStore(t, openCatalog(t))

	st.Dispatch(Inc.New())
	st.Dispatch(Inc.New())
	st.Dispatch(Dec.New())

	assert.Equal(t, 1, current(t, st).Counter)
}

func TestDemo_AddTodoPersists(t *testing.T) {
	c := openCatalog(t)
	st := newStore(t, c)

	st.Dispatch(AddTodo.With("milk"))

	assert.Equal(t, []Todo{{Title: "milk"}}, current(t, st).Todos)

	items, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Title)
}

func TestDemo_FetchLoadsCatalog(t *testing.T) {
	st := newStore(t, openCatalog(t, "milk", "eggs"))

	st.Dispatch(Fetch.New())
	assert.True(t, current(t, st).Status.Loading, "FETCH marks loading synchronously")

	require.Eventually(t, func() bool {
		return !current(t, st).Status.Loading
	}, 2*time.Second, 5*time.Millisecond)

	snap := current(t, st)
	assert.Equal(t, []Todo{{ID: 1, Title: "milk"}, {ID: 2, Title: "eggs"}}, snap.Todos)
	assert.Empty(t, snap.Status.Error)
}

func TestDemo_FetchFailure(t *testing.T) {
	failing := func(context.Context) ([]Todo, error) { return nil, errors.New("offline") }
	st := engine.New(Reducer(), engine.ComposeEffects(FetchEffect(failing)))
	t.Cleanup(st.Destroy)

	st.Dispatch(Fetch.New())

	require.Eventually(t, func() bool {
		tree, _ := st.Current()
		return View(tree).Status.Error == "offline"
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, st.Running(engine.PipelineEffects), "a failed load does not fault the effect")
}

func TestDemo_FetchCancelledOnDestroy(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	blocking := func(ctx context.Context) ([]Todo, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}
	st := engine.New(Reducer(), engine.ComposeEffects(FetchEffect(blocking)))

	st.Dispatch(Fetch.New())
	<-started
	st.Destroy()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("loader context was not cancelled")
	}
}

func TestDemo_BoomStopsReducerOnly(t *testing.T) {
	st := newStore(t, openCatalog(t, "milk"))
	states := 0
	sub := st.State().Subscribe(stream.Observer[engine.Tree]{Next: func(engine.Tree) { states++ }})
	defer sub.Unsubscribe()

	st.Dispatch(Boom.New())
	st.Dispatch(Inc.New())

	assert.Equal(t, 1, states)
	assert.False(t, st.Running(engine.PipelineReducer))
	assert.True(t, st.Running(engine.PipelineEffects))
}

func TestReducers_UnknownActionKeepsReferences(t *testing.T) {
	root := Reducer()
	tree := root(engine.InitAction, nil)
	tree = root(AddTodo.With("milk"), tree)

	next := root(action.New("NOTHING"), tree)

	assert.True(t, engine.Identical(tree, next))
}

func TestTodosReducer_IgnoresEmptyTitle(t *testing.T) {
	todos := []Todo{{Title: "a"}}
	assert.True(t, engine.Identical(todos, TodosReducer(AddTodo.With(""), todos)))
	assert.True(t, engine.Identical(todos, TodosReducer(AddTodo.With(3), todos)))
}

func TestStatusReducer(t *testing.T) {
	s := StatusReducer(Fetch.New(), Status{Error: "old"})
	assert.Equal(t, Status{Loading: true}, s)
	assert.Equal(t, Status{Error: "x"}, StatusReducer(FetchFailure.With("x"), s))
	assert.Equal(t, Status{}, StatusReducer(FetchSuccess.With([]Todo{}), s))
}

func TestView_MissingBranches(t *testing.T) {
	assert.Equal(t, Snapshot{}, View(nil))
	assert.Equal(t, Snapshot{Counter: 3}, View(engine.Tree{BranchCounter: 3}))
}

func TestDemo_TogglePersistsAndUpdatesState(t *testing.T) {
	c := openCatalog(t, "milk", "eggs")
	st := newStore(t, c)

	st.Dispatch(Fetch.New())
	require.Eventually(t, func() bool {
		return len(current(t, st).Todos) == 2
	}, 2*time.Second, 5*time.Millisecond)

	st.Dispatch(ToggleTodo.With(Toggle{ID: 2, Done: true}))

	assert.Equal(t, []Todo{{ID: 1, Title: "milk"}, {ID: 2, Title: "eggs", Done: true}}, current(t, st).Todos)
	items, err := c.List(context.Background())
	require.NoError(t, err)
	assert.False(t, items[0].Done)
	assert.True(t, items[1].Done)
}

func TestDemo_PersistFailureLogsToStoreLogger(t *testing.T) {
	logger, logs := testutil.NewLogger(slog.LevelWarn)
	st := New(openCatalog(t, "milk"), logger)
	t.Cleanup(st.Destroy)

	st.Dispatch(ToggleTodo.With(Toggle{ID: 42, Done: true}))

	assert.Equal(t, 1, logs.Count("persist toggle failed"))
	assert.Equal(t, 1, logs.Count(`"id":42`))
	assert.True(t, st.Running(engine.PipelineEffects), "a failed write is not an effect fault")
}

func TestTodosReducer_Toggle(t *testing.T) {
	todos := []Todo{{ID: 1, Title: "a"}, {ID: 2, Title: "b", Done: true}}

	next := TodosReducer(ToggleTodo.With(Toggle{ID: 1, Done: true}), todos)
	assert.Equal(t, []Todo{{ID: 1, Title: "a", Done: true}, {ID: 2, Title: "b", Done: true}}, next)
	assert.False(t, todos[0].Done, "input is not mutated")

	assert.True(t, engine.Identical(todos, TodosReducer(ToggleTodo.With(Toggle{ID: 2, Done: true}), todos)), "already done")
	assert.True(t, engine.Identical(todos, TodosReducer(ToggleTodo.With(Toggle{ID: 9, Done: true}), todos)), "unknown id")
	assert.True(t, engine.Identical(todos, TodosReducer(ToggleTodo.With("1"), todos)), "bad payload")
}
