package harness

// Trace event kinds.
const (
	KindAction   = "action"
	KindState    = "state"
	KindFault    = "fault"
	KindReplay   = "replay"
	KindComplete = "complete"
)

// TraceEvent is one observation made while a scenario ran. Values are held
// in the canonical JSON model so that traces compare byte for byte.
type TraceEvent struct {
	Kind string `json:"kind"`
	Seq  int64  `json:"seq"`

	// Action is the action type for action events and the action being
	// processed for fault events.
	Action  string `json:"action,omitempty"`
	Payload any    `json:"payload,omitempty"`

	// State is the published value for state and replay events.
	State any `json:"state,omitempty"`

	Code     string `json:"code,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Decision string `json:"decision,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every observation in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the last published state.
	State any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Events returns the trace events of the given kind.
func (r *Result) Events(kind string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
