// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"fmt"
)

// Cell is one addressed cell of a grid. Key is the cell reference
// (documents emit absolute references such as "$B$3").
type Cell struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	Font      *string    `json:"font,omitempty"`
	Color     *uint8     `json:"color,omitempty"`
	FontStyle *FontStyle `json:"fontstyle,omitempty"`
	Borders   *Borders   `json:"borders,omitempty"`
}

// WithFont returns a copy of c with the font name set.
func (c Cell) WithFont(name string) Cell {
	c.Font = &name
	return c
}

// WithColor returns a copy of c with the palette color index set.
func (c Cell) WithColor(index uint8) Cell {
	c.Color = &index
	return c
}

// WithFontStyle returns a copy of c with the font style mask set.
func (c Cell) WithFontStyle(style FontStyle) Cell {
	c.FontStyle = &style
	return c
}

// WithBorders returns a copy of c with borders set. An empty Borders
// clears the field so that it is omitted from the encoding.
func (c Cell) WithBorders(borders Borders) Cell {
	if borders.IsEmpty() {
		c.Borders = nil
		return c
	}
	c.Borders = &borders
	return c
}

// FontStyle is the font style bit mask.
type FontStyle uint8

const (
	Bold FontStyle = 1 << iota
	Italic
	Underline
)

// NewFontStyle packs the three style flags into a mask.
func NewFontStyle(bold, italic, underline bool) FontStyle {
	var style FontStyle
	if bold {
		style |= Bold
	}
	if italic {
		style |= Italic
	}
	if underline {
		style |= Underline
	}
	return style
}

func (s FontStyle) Bold() bool      { return s&Bold != 0 }
func (s FontStyle) Italic() bool    { return s&Italic != 0 }
func (s FontStyle) Underline() bool { return s&Underline != 0 }

// Border weights, as the host enumerates them.
const (
	WeightHairline = 1
	WeightThin     = 2
	WeightThick    = 4
	WeightMedium   = -4138
)

// Border line styles, as the host enumerates them.
const (
	LineStyleContinuous   = 1
	LineStyleDashDot      = 4
	LineStyleDashDotDot   = 5
	LineStyleSlantDashDot = 13
	LineStyleDash         = -4115
	LineStyleDot          = -4118
	LineStyleDouble       = -4119
	LineStyleNone         = -4142
)

// Edge is one border edge. It encodes as the two-element array
// [weight, lineStyle]; there is no partial edge.
type Edge struct {
	Weight    int
	LineStyle int
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{e.Weight, e.LineStyle})
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("border edge: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("border edge must be [weight, lineStyle], got %d elements", len(pair))
	}
	e.Weight, e.LineStyle = pair[0], pair[1]
	return nil
}

// Borders holds the four optional edges of a cell.
type Borders struct {
	Top    *Edge `json:"top,omitempty"`
	Bottom *Edge `json:"bottom,omitempty"`
	Left   *Edge `json:"left,omitempty"`
	Right  *Edge `json:"right,omitempty"`
}

// IsEmpty reports whether no edge is present.
func (b Borders) IsEmpty() bool {
	return b.Top == nil && b.Bottom == nil && b.Left == nil && b.Right == nil
}

// Attributes selects which optional cell attributes a snapshot
// includes or a change applies. Key and value are never optional.
type Attributes struct {
	Color     bool
	Font      bool
	FontStyle bool
	Borders   bool
}

// AllAttributes selects every optional attribute.
func AllAttributes() Attributes {
	return Attributes{Color: true, Font: true, FontStyle: true, Borders: true}
}

// RangeFlags is the bit-packed attribute selection of a RangeRequest.
type RangeFlags uint8

const (
	FlagColor RangeFlags = 1 << iota
	FlagFont
	FlagFontStyle
	FlagBorders
)

// Attributes unpacks the flag byte.
func (f RangeFlags) Attributes() Attributes {
	return Attributes{
		Color:     f&FlagColor != 0,
		Font:      f&FlagFont != 0,
		FontStyle: f&FlagFontStyle != 0,
		Borders:   f&FlagBorders != 0,
	}
}

// FlagsFor packs an attribute selection into a flag byte.
func FlagsFor(attributes Attributes) RangeFlags {
	var flags RangeFlags
	if attributes.Color {
		flags |= FlagColor
	}
	if attributes.Font {
		flags |= FlagFont
	}
	if attributes.FontStyle {
		flags |= FlagFontStyle
	}
	if attributes.Borders {
		flags |= FlagBorders
	}
	return flags
}
