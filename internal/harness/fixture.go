package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/catalog"
	"github.com/roach88/redogs/internal/demo"
	"github.com/roach88/redogs/internal/engine"
	"github.com/roach88/redogs/internal/stream"
)

// Actions understood by the faulty fixture's effects.
var (
	// Ping is echoed back by an effect forever, until the cascade limit
	// trips.
	Ping = action.NewCreator("PING")
	// Explode makes an effect panic.
	Explode = action.NewCreator("EXPLODE")
)

// builder creates the store for a fixture. logger is the store's logger.
type builder func(logger *slog.Logger, opts ...engine.Option) *engine.Store[engine.Tree]

// fixture opens what the scenario's store needs. The returned cleanup must
// run after the store is destroyed.
func fixture(ctx context.Context, s *Scenario) (builder, func(), error) {
	switch s.Fixture {
	case FixtureCounter:
		reducer := engine.ComposeReducers(map[string]engine.Reducer[any]{
			demo.BranchCounter: engine.Branch(0, demo.CounterReducer),
		}, nil)
		return func(logger *slog.Logger, opts ...engine.Option) *engine.Store[engine.Tree] {
			return engine.New(reducer, nil, append(opts, engine.WithLogger(logger))...)
		}, func() {}, nil

	case FixtureTodos:
		c, err := catalog.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		if err := c.Seed(ctx, s.Seed...); err != nil {
			c.Close()
			return nil, nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		return func(logger *slog.Logger, opts ...engine.Option) *engine.Store[engine.Tree] {
			return demo.New(c, logger, opts...)
		}, func() { c.Close() }, nil

	case FixtureFaulty:
		effect := engine.ComposeEffects[engine.Tree](echoEffect, explodeEffect)
		return func(logger *slog.Logger, opts ...engine.Option) *engine.Store[engine.Tree] {
			return engine.New(demo.Reducer(), effect, append(opts, engine.WithLogger(logger))...)
		}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown fixture %q", s.Fixture)
	}
}

func echoEffect(actions stream.Stream[action.Action], _ stream.Stream[engine.Tree]) stream.Stream[action.Action] {
	return action.OfType(actions, Ping)
}

func explodeEffect(actions stream.Stream[action.Action], _ stream.Stream[engine.Tree]) stream.Stream[action.Action] {
	return stream.Map(action.OfType(actions, Explode), func(a action.Action) action.Action {
		panic(fmt.Sprintf("effect: %s", a.Type))
	})
}
