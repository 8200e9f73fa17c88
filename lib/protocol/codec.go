// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope tags, the first frame of every upstream message.
const (
	TagEvent  = "event"
	TagAction = "action"
)

var (
	// ErrUnknownType is wrapped by DecodeError when the type field
	// holds a value this version does not know.
	ErrUnknownType = errors.New("unknown message type")

	// ErrMissingWorkbook is wrapped by DecodeError when the workbook
	// id is empty or absent.
	ErrMissingWorkbook = errors.New("missing workbook id")
)

// DecodeError reports a payload that could not be interpreted.
type DecodeError struct {
	// Kind is "event" or "action".
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeEvent returns the wire encoding of event.
func EncodeEvent(event *Event) ([]byte, error) {
	if event == nil {
		return nil, errors.New("encoding event: nil event")
	}
	return marshal(event)
}

// EncodeAction returns the wire encoding of action.
func EncodeAction(action *Action) ([]byte, error) {
	if action == nil {
		return nil, errors.New("encoding action: nil action")
	}
	return marshal(action)
}

// DecodeEvent parses an event payload. The prev_cells invariant is
// re-applied, so a sender that attaches mismatched previous cells
// yields an event without them.
func DecodeEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, &DecodeError{Kind: "event", Err: err}
	}
	if err := event.Validate(); err != nil {
		return nil, &DecodeError{Kind: "event", Err: err}
	}
	event.normalize()
	return &event, nil
}

// DecodeAction parses an action payload.
func DecodeAction(data []byte) (*Action, error) {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, &DecodeError{Kind: "action", Err: err}
	}
	if err := action.Validate(); err != nil {
		return nil, &DecodeError{Kind: "action", Err: err}
	}
	return &action, nil
}

// marshal encodes compactly without HTML escaping: cell values are
// user text and go over the wire exactly as typed.
func marshal(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}
