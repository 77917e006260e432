package engine

import (
	"sort"

	"github.com/roach88/redogs/internal/action"
)

// Tree is the keyed state produced by ComposeReducers: branch name to branch
// state.
type Tree map[string]any

// ComposeReducers combines branch reducers into one reducer over a Tree.
//
// Every branch sees every action together with its own slice of the tree
// (nil if the key is absent). A new tree is built only when at least one
// branch returns a value that is not Identical to its previous one; otherwise
// the incoming tree is returned as-is, so callers can compare trees by
// reference to learn whether anything changed. A nil incoming tree is
// replaced by initial (or an empty tree).
//
// Branch keys are visited in sorted order. Keys present in the tree but not
// owned by any branch are not carried into a rebuilt tree. A panicking branch
// panics out of the composed reducer.
func ComposeReducers(branches map[string]Reducer[any], initial Tree) Reducer[Tree] {
	keys := make([]string, 0, len(branches))
	for k, r := range branches {
		if r != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	seed := initial
	if seed == nil {
		seed = Tree{}
	}

	return func(a action.Action, state Tree) Tree {
		if state == nil {
			state = seed
		}

		results := make([]any, len(keys))
		changed := false
		for i, key := range keys {
			prev := state[key]
			next := branches[key](a, prev)
			results[i] = next
			if !changed && !Identical(next, prev) {
				changed = true
			}
		}
		if !changed {
			return state
		}

		tree := make(Tree, len(keys))
		for i, key := range keys {
			tree[key] = results[i]
		}
		return tree
	}
}

// Branch adapts a typed reducer for use with ComposeReducers. When the branch
// state is nil (absent from the tree) or not an S, r receives initial instead.
//
//	engine.ComposeReducers(map[string]engine.Reducer[any]{
//		"counter": engine.Branch(0, counter),
//		"todos":   engine.Branch([]Item(nil), todos),
//	}, nil)
func Branch[S any](initial S, r Reducer[S]) Reducer[any] {
	return func(a action.Action, state any) any {
		s, ok := state.(S)
		if !ok {
			s = initial
		}
		return r(a, s)
	}
}
