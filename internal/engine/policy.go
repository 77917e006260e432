package engine

import (
	"log/slog"
)

// Decision is what a Policy tells the faulted pipeline to do.
type Decision int

const (
	// Stop terminates the faulted pipeline. The other pipeline keeps running.
	Stop Decision = iota
	// Skip drops the offending action or emission and keeps the pipeline alive.
	Skip
)

func (d Decision) String() string {
	switch d {
	case Stop:
		return "stop"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Policy decides how a store reacts to pipeline faults.
//
// Handle is called on the goroutine that observed the fault, once per fault.
// Faults that cannot be resumed (an Error from the effect stream, which has
// already terminated) stop the pipeline whatever Handle returns.
type Policy interface {
	Handle(err *PipelineError) Decision
}

// SuppressPolicy logs every fault and stops the faulted pipeline. This is the
// default policy: a broken reducer or effect never takes the caller down, and
// the other pipeline keeps working.
type SuppressPolicy struct {
	Logger *slog.Logger
}

// Handle implements Policy.
func (p SuppressPolicy) Handle(err *PipelineError) Decision {
	logFault(p.Logger, err, Stop)
	return Stop
}

// IsolatePolicy logs every fault and skips the offending action, so a single
// bad action or a single panicking effect does not disable the pipeline.
type IsolatePolicy struct {
	Logger *slog.Logger
}

// Handle implements Policy.
func (p IsolatePolicy) Handle(err *PipelineError) Decision {
	logFault(p.Logger, err, Skip)
	return Skip
}

// StrictPolicy re-raises every fault as a panic carrying the *PipelineError.
// Intended for tests, where a silent fault is worse than a crash.
type StrictPolicy struct{}

// Handle implements Policy.
func (StrictPolicy) Handle(err *PipelineError) Decision {
	panic(err)
}

func logFault(logger *slog.Logger, err *PipelineError, d Decision) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"store_id", err.StoreID,
		"pipeline", string(err.Pipeline),
		"code", string(err.Code),
		"decision", d.String(),
		"error", err.Err,
	}
	if err.Action != "" {
		attrs = append(attrs, "action", err.Action, "seq", err.Seq)
	}
	logger.Error(LogPrefix(err.Pipeline)+" pipeline fault", attrs...)
}
