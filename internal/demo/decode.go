package demo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/redogs/internal/action"
)

// Decode builds a demo action from a type and a loosely typed payload, as
// read from a command line or a scenario file. Payloads are converted to the
// type the reducers expect; unknown action types keep their payload as-is.
func Decode(actionType string, payload any) (action.Action, error) {
	switch actionType {
	case Inc.Type(), Dec.Type(), Fetch.Type(), Boom.Type():
		if payload != nil {
			return action.Action{}, fmt.Errorf("%s takes no payload", actionType)
		}
		return action.New(actionType), nil
	case AddTodo.Type(), FetchFailure.Type():
		s, ok := payload.(string)
		if !ok {
			return action.Action{}, fmt.Errorf("%s payload must be a string, got %T", actionType, payload)
		}
		return action.Action{Type: actionType, Payload: s}, nil
	case FetchSuccess.Type():
		var todos []Todo
		if err := convert(payload, &todos); err != nil {
			return action.Action{}, fmt.Errorf("%s payload: %w", actionType, err)
		}
		return FetchSuccess.With(todos), nil
	case ToggleTodo.Type():
		var t Toggle
		if err := convert(payload, &t); err != nil {
			return action.Action{}, fmt.Errorf("%s payload: %w", actionType, err)
		}
		if t.ID <= 0 {
			return action.Action{}, fmt.Errorf("%s payload needs a positive id", actionType)
		}
		return ToggleTodo.With(t), nil
	default:
		return action.Action{Type: actionType, Payload: payload}, nil
	}
}

// ParseArg parses a command-line action: "TYPE" or "TYPE=payload". The
// payload is taken as a string unless it is valid JSON.
func ParseArg(arg string) (action.Action, error) {
	typ, raw, hasPayload := strings.Cut(arg, "=")
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return action.Action{}, fmt.Errorf("empty action type in %q", arg)
	}
	if !hasPayload {
		return Decode(typ, nil)
	}

	var payload any = raw
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		if _, isString := decoded.(string); isString || !isScalarText(typ) {
			payload = decoded
		}
	}
	return Decode(typ, payload)
}

// isScalarText reports whether typ always takes a plain string, so that
// ADD_TODO=42 adds a todo titled "42".
func isScalarText(typ string) bool {
	return typ == AddTodo.Type() || typ == FetchFailure.Type()
}

func convert(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
