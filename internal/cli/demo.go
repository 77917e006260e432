package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/catalog"
	"github.com/roach88/redogs/internal/config"
	"github.com/roach88/redogs/internal/demo"
	"github.com/roach88/redogs/internal/engine"
	"github.com/roach88/redogs/internal/metrics"
)

// shutdownTimeout bounds how long the metrics server gets to drain.
const shutdownTimeout = 5 * time.Second

// DemoOptions holds flags for the demo command. Empty values fall back to
// the REDOGS_* environment configuration.
type DemoOptions struct {
	*RootOptions
	Database    string
	Settle      time.Duration
	MetricsAddr string
	FaultMode   string
	MaxCascade  int
}

// DemoOutput is the JSON payload of the demo command.
type DemoOutput struct {
	StoreID        string        `json:"store_id"`
	Dispatched     []string      `json:"dispatched"`
	State          demo.Snapshot `json:"state"`
	ReducerRunning bool          `json:"reducer_running"`
	EffectsRunning bool          `json:"effects_running"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo [actions...]",
		Short: "Drive the todo demo store",
		Long: `Build the todo demo store against a SQLite catalog, dispatch each
argument as an action and print the resulting state.

Actions are written TYPE or TYPE=payload. Payloads that parse as JSON are
decoded; ADD_TODO and FETCH_FAILURE always take the raw text.

Known actions: INC, DEC, ADD_TODO=<title>, FETCH, FETCH_SUCCESS=<json>,
FETCH_FAILURE=<message>, TOGGLE_TODO={"id":N,"done":true},
BOOM (makes the reducer panic).

--fault-mode stop ends the faulting pipeline, skip drops only the faulting
action, strict panics the process on the first fault.

With --metrics-addr the store's Prometheus metrics are served on /metrics
until the process is interrupted.

Examples:
  redogs demo INC INC DEC
  redogs demo --db ./todos.db "ADD_TODO=buy milk" FETCH
  redogs demo --fault-mode skip BOOM INC
  redogs demo --metrics-addr :9090 FETCH`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite catalog (default $REDOGS_CATALOG_DB)")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 200*time.Millisecond, "time to wait for asynchronous effects before printing")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics on this address (default $REDOGS_METRICS_ADDR)")
	cmd.Flags().StringVar(&opts.FaultMode, "fault-mode", "", "stop, skip or strict (default $REDOGS_FAULT_MODE)")
	cmd.Flags().IntVar(&opts.MaxCascade, "max-cascade", 0, "cascade depth limit (default $REDOGS_MAX_CASCADE)")

	return cmd
}

// demoConfig merges flags over the environment configuration.
func demoConfig(opts *DemoOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.CatalogDB = opts.Database
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if opts.FaultMode != "" {
		cfg.FaultMode = opts.FaultMode
	}
	if opts.MaxCascade > 0 {
		cfg.MaxCascade = opts.MaxCascade
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func runDemo(opts *DemoOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := demoConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	actions := make([]action.Action, 0, len(args))
	for _, arg := range args {
		a, err := demo.ParseArg(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid action", err)
		}
		actions = append(actions, a)
	}

	logger := cfg.Logger(cmd.ErrOrStderr())

	logger.Debug("opening catalog", "path", cfg.CatalogDB)
	c, err := catalog.Open(cfg.CatalogDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open catalog", err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger.Error("error closing catalog", "error", closeErr)
		}
	}()

	collector := metrics.NewCollector(metrics.DefaultNamespace)
	storeOpts := append(cfg.StoreOptions(logger), engine.WithMetrics(collector))
	st := demo.New(c, logger, storeOpts...)
	defer st.Destroy()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(collector)}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		out, err := session(ctx, st, actions, opts.Settle, logger)
		if err != nil {
			return err
		}
		if err := writeDemo(f, out); err != nil {
			return err
		}
		if cfg.MetricsAddr != "" {
			f.VerboseLog("Metrics on %s/metrics, press Ctrl-C to stop.", cfg.MetricsAddr)
			<-ctx.Done()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "demo failed", err)
	}
	return nil
}

// session dispatches actions in order, lets asynchronous effects settle and
// reports the resulting state.
func session(ctx context.Context, st *engine.Store[engine.Tree], actions []action.Action, settle time.Duration, logger *slog.Logger) (DemoOutput, error) {
	out := DemoOutput{StoreID: st.ID(), Dispatched: make([]string, 0, len(actions))}
	for _, a := range actions {
		logger.Debug("dispatching", "store_id", st.ID(), "action", a.Type)
		st.Dispatch(a)
		out.Dispatched = append(out.Dispatched, a.String())
	}

	if len(actions) > 0 && settle > 0 {
		t := time.NewTimer(settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return DemoOutput{}, ctx.Err()
		case <-t.C:
		}
	}

	tree, _ := st.Current()
	out.State = demo.View(tree)
	out.ReducerRunning = st.Running(engine.PipelineReducer)
	out.EffectsRunning = st.Running(engine.PipelineEffects)
	return out, nil
}

func metricsMux(c *metrics.Collector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return mux
}

func writeDemo(f *OutputFormatter, out DemoOutput) error {
	if f.JSON() {
		return f.Success(out)
	}
	writeDemoText(f.Writer, out)
	return nil
}

func writeDemoText(w io.Writer, out DemoOutput) {
	fmt.Fprintf(w, "Store %s\n", out.StoreID)
	for _, a := range out.Dispatched {
		fmt.Fprintf(w, "  → %s\n", a)
	}
	fmt.Fprintln(w)

	s := out.State
	fmt.Fprintf(w, "counter: %d\n", s.Counter)
	switch {
	case s.Status.Loading:
		fmt.Fprintln(w, "status:  loading")
	case s.Status.Error != "":
		fmt.Fprintf(w, "status:  error: %s\n", s.Status.Error)
	default:
		fmt.Fprintln(w, "status:  idle")
	}
	fmt.Fprintf(w, "todos:   %d\n", len(s.Todos))
	for _, t := range s.Todos {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s\n", mark, t.Title)
	}

	if !out.ReducerRunning {
		fmt.Fprintln(w, "\n✗ reducer pipeline stopped")
	}
	if !out.EffectsRunning {
		fmt.Fprintln(w, "✗ effect pipeline stopped")
	}
}
