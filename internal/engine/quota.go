package engine

import "fmt"

// DefaultMaxCascade bounds how many effect hops may separate an action from
// the external dispatch that started the chain.
const DefaultMaxCascade = 1000

// CascadeError is returned when an effect emits an action whose depth would
// exceed the store's cascade limit.
//
// The limit catches effects that answer their own output forever
// (A → A → A ...). Without it such a loop spins the drain goroutine and
// Dispatch never returns.
type CascadeError struct {
	Depth int
	Limit int
	// Action is the type of the action that was refused.
	Action string
}

// Error implements the error interface.
func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade depth %d exceeds limit %d (action=%s)", e.Depth, e.Limit, e.Action)
}

// checkCascade returns a CascadeError if depth is past limit.
// A limit of zero or less disables the check.
func checkCascade(depth, limit int, actionType string) error {
	if limit <= 0 || depth <= limit {
		return nil
	}
	return &CascadeError{Depth: depth, Limit: limit, Action: actionType}
}
