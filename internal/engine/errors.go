package engine

import (
	"errors"
	"fmt"
)

// PipelineError is a fault detected inside one of the store's pipelines.
//
// Pipeline errors include:
//   - Reducer panic: the reducer panicked while folding an action
//   - Effect panic: effect code panicked while observing actions or state
//   - Effect error: the composed effect stream terminated with an error
//   - Cascade exceeded: effects kept emitting past the configured depth
//
// PipelineError is handed to the store's Policy, which decides whether the
// pipeline stops or skips the offending action.
type PipelineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Pipeline is where the fault happened.
	Pipeline Pipeline

	// StoreID identifies the store that raised it.
	StoreID string

	// Action is the action being processed, if known.
	Action string

	// Seq is the sequence number of that action, zero if unknown.
	Seq int64

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	// ErrCodeReducerPanic indicates the reducer panicked.
	ErrCodeReducerPanic ErrorCode = "REDUCER_PANIC"

	// ErrCodeEffectPanic indicates effect code panicked.
	ErrCodeEffectPanic ErrorCode = "EFFECT_PANIC"

	// ErrCodeEffectError indicates the effect stream signalled an error.
	ErrCodeEffectError ErrorCode = "EFFECT_ERROR"

	// ErrCodeCascadeExceeded indicates an effect feedback loop ran too deep.
	ErrCodeCascadeExceeded ErrorCode = "CASCADE_EXCEEDED"
)

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s pipeline failed on %s (seq=%d): %v", e.Code, e.Pipeline, e.Action, e.Seq, e.Err)
	}
	return fmt.Sprintf("%s: %s pipeline failed: %v", e.Code, e.Pipeline, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsReducerFault returns true if err is a reducer pipeline error.
// Uses errors.As to handle wrapped errors.
func IsReducerFault(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Pipeline == PipelineReducer
	}
	return false
}

// IsEffectFault returns true if err is an effect pipeline error.
func IsEffectFault(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Pipeline == PipelineEffects
	}
	return false
}

// IsCascadeError returns true if err reports an exceeded cascade depth.
// Matches both PipelineError with ErrCodeCascadeExceeded and CascadeError.
func IsCascadeError(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Code == ErrCodeCascadeExceeded {
		return true
	}
	var ce *CascadeError
	return errors.As(err, &ce)
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func panicError(v any) error {
	return &PanicError{Value: v}
}
