// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// EventType enumerates events. Encoded as its integer value.
type EventType int

const (
	// WorkbookOpen is the first event of a document; it carries only
	// the workbook id.
	WorkbookOpen EventType = iota
	// WorkbookBeforeClose is the last event of a document.
	WorkbookBeforeClose
	// SheetChange reports edited cells, optionally with their
	// previous contents.
	SheetChange
	// RangeResponse answers a RangeRequest action.
	RangeResponse
)

func (t EventType) String() string {
	switch t {
	case WorkbookOpen:
		return "WorkbookOpen"
	case WorkbookBeforeClose:
		return "WorkbookBeforeClose"
	case SheetChange:
		return "SheetChange"
	case RangeResponse:
		return "RangeResponse"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

func (t EventType) valid() bool {
	return t >= WorkbookOpen && t <= RangeResponse
}

// Event flows from a document to the remote agent. Cells are row-major:
// the outer slice is rows, the inner slice the cells of one row.
type Event struct {
	Type      EventType `json:"type"`
	Workbook  string    `json:"workbook"`
	Sheet     string    `json:"sheet,omitempty"`
	Cells     [][]Cell  `json:"cells,omitempty"`
	PrevCells [][]Cell  `json:"prev_cells,omitempty"`
}

// NewWorkbookOpen returns the opening event for a document.
func NewWorkbookOpen(workbook string) *Event {
	return &Event{Type: WorkbookOpen, Workbook: workbook}
}

// NewWorkbookBeforeClose returns the closing event for a document.
func NewWorkbookBeforeClose(workbook string) *Event {
	return &Event{Type: WorkbookBeforeClose, Workbook: workbook}
}

// NewSheetChange reports changed cells. previous is attached only when
// it has exactly as many rows as cells; otherwise it is dropped whole.
func NewSheetChange(workbook, sheet string, cells, previous [][]Cell) *Event {
	event := &Event{
		Type:      SheetChange,
		Workbook:  workbook,
		Sheet:     sheet,
		Cells:     cells,
		PrevCells: previous,
	}
	event.normalize()
	return event
}

// NewRangeResponse wraps a range snapshot.
func NewRangeResponse(workbook, sheet string, cells [][]Cell) *Event {
	return &Event{Type: RangeResponse, Workbook: workbook, Sheet: sheet, Cells: cells}
}

// Validate reports whether the event can be interpreted at all.
func (e *Event) Validate() error {
	if !e.Type.valid() {
		return fmt.Errorf("%w: event type %d", ErrUnknownType, int(e.Type))
	}
	if e.Workbook == "" {
		return ErrMissingWorkbook
	}
	return nil
}

// normalize enforces the prev_cells row-count invariant.
func (e *Event) normalize() {
	if len(e.PrevCells) != len(e.Cells) {
		e.PrevCells = nil
	}
}
