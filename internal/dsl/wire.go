package dsl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireAction mirrors the union of the structured and legacy flat wire shapes: a structured
// action carries "kind" and a {strategy,value} target object; a legacy action carries "action"
// and a prefixed target string such as "css=#submit". Both forms are accepted on every
// endpoint and normalized to Action before validation.
type wireAction struct {
	Kind    *string         `json:"kind"`
	Action  *string         `json:"action"`
	Target  json.RawMessage `json:"target"`
	Value   *string         `json:"value"`
	Options Options         `json:"options"`
}

// UnmarshalJSON accepts both the structured and legacy flat action wire forms and normalizes
// them into the canonical Action representation.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w wireAction
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		// Unknown fields are tolerated on the wire rather than rejected: re-decode permissively,
		// which drops them without reporting any warning.
		w = wireAction{}
		if err2 := json.Unmarshal(data, &w); err2 != nil {
			return fmt.Errorf("dsl: invalid action: %w", err)
		}
	}

	switch {
	case w.Kind != nil:
		a.Kind = Kind(*w.Kind)
	case w.Action != nil:
		a.Kind = Kind(*w.Action)
	default:
		return fmt.Errorf("dsl: action missing both \"kind\" and \"action\" fields")
	}

	target, err := parseWireTarget(w.Target)
	if err != nil {
		return fmt.Errorf("dsl: invalid target: %w", err)
	}
	a.Target = target

	if w.Value != nil {
		a.Value = *w.Value
	}
	a.Options = w.Options
	return nil
}

// parseWireTarget accepts a target given either as a prefixed string ("css=#submit", legacy
// flat form) or as a structured {"strategy":"css","value":"#submit"} object.
func parseWireTarget(raw json.RawMessage) (*Selector, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		sel, err := ParseSelector(asString)
		if err != nil {
			return nil, err
		}
		return &sel, nil
	}

	var asStruct Selector
	if err := json.Unmarshal(raw, &asStruct); err != nil {
		return nil, fmt.Errorf("target must be a prefixed string or {strategy,value} object: %w", err)
	}
	return &asStruct, nil
}

// MarshalJSON always emits the structured wire form, regardless of which form was decoded;
// re-marshaling a normalized Action is therefore idempotent.
func (a Action) MarshalJSON() ([]byte, error) {
	type alias struct {
		Kind    Kind      `json:"kind"`
		Target  *Selector `json:"target,omitempty"`
		Value   string    `json:"value,omitempty"`
		Options Options   `json:"options,omitempty"`
	}
	return json.Marshal(alias{Kind: a.Kind, Target: a.Target, Value: a.Value, Options: a.Options})
}

// DecodePlan accepts either {"actions":[...]} or a bare JSON array of actions, the two request
// shapes POST /execute-dsl supports.
func DecodePlan(data []byte) (Plan, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var actions []Action
		if err := json.Unmarshal(trimmed, &actions); err != nil {
			return Plan{}, fmt.Errorf("dsl: invalid plan array: %w", err)
		}
		return Plan{Actions: actions}, nil
	}

	var p Plan
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Plan{}, fmt.Errorf("dsl: invalid plan object: %w", err)
	}
	return p, nil
}
