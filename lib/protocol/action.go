// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// ActionType enumerates actions. Encoded as its integer value.
type ActionType int

const (
	// ComnsenseChange asks the document to apply cells.
	ComnsenseChange ActionType = iota
	// RangeRequest asks for a snapshot of a named range.
	RangeRequest
)

func (t ActionType) String() string {
	switch t {
	case ComnsenseChange:
		return "ComnsenseChange"
	case RangeRequest:
		return "RangeRequest"
	default:
		return fmt.Sprintf("ActionType(%d)", int(t))
	}
}

func (t ActionType) valid() bool {
	return t == ComnsenseChange || t == RangeRequest
}

// Action flows from the remote agent to a document.
//
// For ComnsenseChange, Cells carries the new contents and the four
// booleans say which attribute categories the sender intends to set.
// For RangeRequest, RangeName names the range and Flags selects the
// optional attributes of the response.
type Action struct {
	Type     ActionType `json:"type"`
	Workbook string     `json:"workbook"`
	Sheet    string     `json:"sheet,omitempty"`

	ChangeID  string   `json:"changeid,omitempty"`
	Cells     [][]Cell `json:"cells,omitempty"`
	Font      bool     `json:"font"`
	Borders   bool     `json:"borders"`
	Color     bool     `json:"color"`
	FontStyle bool     `json:"fontstyle"`

	RangeName string     `json:"rangeName,omitempty"`
	Flags     RangeFlags `json:"flags"`
}

// ChangeAttributes returns the attribute categories a ComnsenseChange
// intends to set.
func (a *Action) ChangeAttributes() Attributes {
	return Attributes{
		Color:     a.Color,
		Font:      a.Font,
		FontStyle: a.FontStyle,
		Borders:   a.Borders,
	}
}

// Validate reports whether the action can be interpreted at all.
func (a *Action) Validate() error {
	if !a.Type.valid() {
		return fmt.Errorf("%w: action type %d", ErrUnknownType, int(a.Type))
	}
	if a.Workbook == "" {
		return ErrMissingWorkbook
	}
	return nil
}
