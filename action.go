package slicebox

import (
	"encoding/json"
	"errors"
	"fmt"
)

type (
	// ActionType discriminates the variants of Action
	ActionType string

	// Action describes an event that may update state
	Action interface {
		Type() ActionType
	}

	// RawAction carries an action whose type has no registered variant
	RawAction struct {
		Kind    ActionType
		Payload json.RawMessage
	}

	// Decoder builds an Action variant from its JSON payload
	Decoder func(json.RawMessage) (Action, error)

	// Decoders maps action types to the Decoder for their variant
	Decoders map[ActionType]Decoder

	envelope struct {
		Type ActionType `json:"type"`
	}
)

var (
	// ErrNilAction is returned when a nil Action is dispatched
	ErrNilAction = errors.New("action is nil")

	// ErrInvalidPayload is returned when a RawAction payload is not JSON
	ErrInvalidPayload = errors.New("action payload is not valid JSON")
)

// MakeDecoder returns a Decoder that unmarshals into a fresh *T
func MakeDecoder[T any, A interface {
	*T
	Action
}]() Decoder {
	return func(data json.RawMessage) (Action, error) {
		var v T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
		}
		return A(&v), nil
	}
}

// Type returns the action type carried by the RawAction
func (a *RawAction) Type() ActionType {
	return a.Kind
}

// Decode builds the registered variant for typ, or a RawAction when nothing
// is registered for it
func (d Decoders) Decode(typ ActionType, data json.RawMessage) (Action, error) {
	if dec, ok := d[typ]; ok {
		return dec(data)
	}
	return &RawAction{Kind: typ, Payload: data}, nil
}

// Resolve turns a RawAction into its registered variant. Any other Action,
// or a RawAction with no registered decoder, is returned as-is once its
// payload is known to be JSON
func (d Decoders) Resolve(a Action) (Action, error) {
	raw, ok := a.(*RawAction)
	if !ok {
		return a, nil
	}
	if raw == nil {
		return nil, ErrNilAction
	}
	if dec, ok := d[raw.Kind]; ok {
		return dec(raw.Payload)
	}
	if err := validPayload(raw); err != nil {
		return nil, err
	}
	return a, nil
}

// Parse decodes a {"type": ...} envelope. The whole object is handed to the
// variant's Decoder
func (d Decoders) Parse(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return d.Decode(env.Type, data)
}

// Encode marshals an Action's payload for journaling
func Encode(a Action) (json.RawMessage, error) {
	if raw, ok := a.(*RawAction); ok {
		if err := validPayload(raw); err != nil {
			return nil, err
		}
		return raw.Payload, nil
	}
	return json.Marshal(a)
}

func validPayload(raw *RawAction) error {
	if len(raw.Payload) > 0 && !json.Valid(raw.Payload) {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, raw.Kind)
	}
	return nil
}
