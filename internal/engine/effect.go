package engine

import (
	"github.com/roach88/redogs/internal/action"
	"github.com/roach88/redogs/internal/stream"
)

// ComposeEffects combines effects into one whose output is the merge of every
// constituent's output, in arrival order.
//
// The merge always includes a stream that never emits and never completes,
// so the composed effect stays live with zero effects and never completes
// just because its constituents did. Nil effects, and effects that return a
// nil stream, are ignored.
func ComposeEffects[S any](effects ...Effect[S]) Effect[S] {
	return func(actions stream.Stream[action.Action], states stream.Stream[S]) stream.Stream[action.Action] {
		sources := make([]stream.Stream[action.Action], 0, len(effects)+1)
		sources = append(sources, stream.Never[action.Action]())
		for _, effect := range effects {
			if effect == nil {
				continue
			}
			if out := effect(actions, states); out != nil {
				sources = append(sources, out)
			}
		}
		return stream.Merge(sources...)
	}
}
