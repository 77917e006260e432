// Package action defines the tagged records that flow through a redogs store
// and the small helpers used to build and recognise them.
//
// An Action is a plain value: a Type discriminant and an optional Payload whose
// shape is a contract between whoever dispatches it and whoever handles it.
// Nothing in the store inspects the payload.
package action

import (
	"fmt"

	"github.com/roach88/redogs/internal/stream"
)

// Action is the unit flowing through the store.
type Action struct {
	Type    string `json:"type" yaml:"type"`
	Payload any    `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// New returns an Action of the given type without payload.
func New(actionType string) Action {
	return Action{Type: actionType}
}

// String renders the action for logs.
func (a Action) String() string {
	if a.Payload == nil {
		return a.Type
	}
	return fmt.Sprintf("%s(%v)", a.Type, a.Payload)
}

// Payload returns the payload of a as T.
func Payload[T any](a Action) (T, bool) {
	v, ok := a.Payload.(T)
	return v, ok
}

// Creator builds actions of one type.
//
//	var Add = action.NewCreator("ADD_TODO")
//	store.Dispatch(Add.With("buy milk"))
//	switch a.Type { case Add.Type(): ... }
type Creator struct {
	actionType string
}

// NewCreator returns a Creator for actionType.
func NewCreator(actionType string) Creator {
	return Creator{actionType: actionType}
}

// Type returns the discriminant this creator stamps on its actions.
func (c Creator) Type() string { return c.actionType }

// New returns an action without payload.
func (c Creator) New() Action { return Action{Type: c.actionType} }

// With returns an action carrying payload.
func (c Creator) With(payload any) Action {
	return Action{Type: c.actionType, Payload: payload}
}

// Is reports whether a was built by this creator.
func (c Creator) Is(a Action) bool { return a.Type == c.actionType }

// IsActionOf returns a predicate matching actions of any of the creators.
func IsActionOf(creators ...Creator) func(Action) bool {
	types := make(map[string]struct{}, len(creators))
	for _, c := range creators {
		types[c.actionType] = struct{}{}
	}
	return func(a Action) bool {
		_, ok := types[a.Type]
		return ok
	}
}

// OfType narrows an action stream to the given creators. It is the usual
// first step of an effect.
func OfType(actions stream.Stream[Action], creators ...Creator) stream.Stream[Action] {
	return stream.Filter(actions, IsActionOf(creators...))
}
