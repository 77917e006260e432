package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/demo"
	"github.com/roach88/redogs/internal/engine"
	"github.com/roach88/redogs/internal/metrics"
	"github.com/roach88/redogs/internal/testutil"
)

func TestDemoCommand_Counter(t *testing.T) {
	out, err := execute(t, "demo", "INC", "INC", "DEC")
	require.NoError(t, err)

	assert.Contains(t, out, "→ INC")
	assert.Contains(t, out, "counter: 1")
	assert.Contains(t, out, "status:  idle")
	assert.NotContains(t, out, "stopped")
}

func TestDemoCommand_PersistsAndFetches(t *testing.T) {
	db := filepath.Join(t.TempDir(), "todos.db")

	_, err := execute(t, "demo", "--db", db, "ADD_TODO=buy milk")
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "demo", "--db", db, "--settle", "1s", "FETCH")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   DemoOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"FETCH"}, resp.Data.Dispatched)
	assert.Equal(t, []demo.Todo{{ID: 1, Title: "buy milk"}}, resp.Data.State.Todos)
	assert.False(t, resp.Data.State.Status.Loading)
}

func TestDemoCommand_ReducerFault(t *testing.T) {
	out, err := execute(t, "demo", "BOOM", "INC")
	require.NoError(t, err)
	assert.Contains(t, out, "counter: 0")
	assert.Contains(t, out, "✗ reducer pipeline stopped")

	out, err = execute(t, "demo", "--fault-mode", "skip", "BOOM", "INC")
	require.NoError(t, err)
	assert.Contains(t, out, "counter: 1")
	assert.NotContains(t, out, "stopped")
}

func TestDemoCommand_InvalidInput(t *testing.T) {
	_, err := execute(t, "demo", "INC=3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid action")

	_, err = execute(t, "demo", "--fault-mode", "panic", "INC")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid fault mode")
}

func TestDemoConfig_EnvAndFlags(t *testing.T) {
	t.Setenv("REDOGS_FAULT_MODE", "skip")
	t.Setenv("REDOGS_MAX_CASCADE", "7")

	cfg, err := demoConfig(&DemoOptions{RootOptions: &RootOptions{}})
	require.NoError(t, err)
	assert.Equal(t, "skip", cfg.FaultMode)
	assert.Equal(t, 7, cfg.MaxCascade)

	cfg, err = demoConfig(&DemoOptions{
		RootOptions: &RootOptions{Verbose: true},
		FaultMode:   "stop",
		MaxCascade:  3,
		Database:    "x.db",
	})
	require.NoError(t, err)
	assert.Equal(t, "stop", cfg.FaultMode)
	assert.Equal(t, 3, cfg.MaxCascade)
	assert.Equal(t, "x.db", cfg.CatalogDB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSession_CountsMetrics(t *testing.T) {
	collector := metrics.NewCollector("")
	st := engine.New(demo.Reducer(), nil, engine.WithMetrics(collector))
	defer st.Destroy()

	logger := testutil.Discard()
	out, err := session(context.Background(), st, []action.Action{demo.Inc.New(), demo.Inc.New()}, 0, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, out.State.Counter)
	assert.True(t, out.ReducerRunning)
	assert.False(t, out.EffectsRunning, "a store without effects has no effect pipeline")

	srv := httptest.NewServer(metricsMux(collector))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `redogs_actions_dispatched_total{type="INC"} 2`)
}

func TestSession_CancelledWhileSettling(t *testing.T) {
	st := engine.New(demo.Reducer(), nil)
	defer st.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := session(ctx, st, []action.Action{demo.Inc.New()}, time.Hour, testutil.Discard())
	assert.ErrorIs(t, err, context.Canceled)
}
