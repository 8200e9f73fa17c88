// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"sync"
)

var (
	// ErrNoSuchSheet is returned when a sheet name does not resolve.
	ErrNoSuchSheet = errors.New("no such sheet")

	// ErrNoSuchRange is returned when a range name is neither a
	// defined name nor a cell reference.
	ErrNoSuchRange = errors.New("no such range")
)

// Document is the adapter a router uses to read and mutate one open
// document. Implementations must be safe for use from the router
// goroutine while the host raises notifications from its own.
type Document interface {
	// ResolveSheet returns the canonical name of the named sheet, or
	// of the active sheet when name is empty.
	ResolveSheet(name string) (string, error)

	// GetRange snapshots a defined name or literal reference. When the
	// defined name is qualified with its own sheet, that sheet wins
	// over the argument; Range.Sheet reports which one was read.
	GetRange(sheet, name string) (Range, error)

	SetCellValue(sheet, key, value string) error
	SetCellFont(sheet, key, font string) error
	SetCellColor(sheet, key string, color uint8) error
	SetCellBold(sheet, key string, bold bool) error
	SetCellItalic(sheet, key string, italic bool) error
	SetCellUnderline(sheet, key string, underline bool) error
	SetCellBorder(sheet, key string, edge Edge, border Border) error

	// SuspendNotifications stops change notifications until the
	// matching ResumeNotifications. Calls nest.
	SuspendNotifications()
	ResumeNotifications()
}

// Host enumerates the documents currently open.
type Host interface {
	OpenDocuments() []Document
}

// Suspend suspends notifications on doc and returns the function that
// resumes them. The returned function is safe to call more than once;
// only the first call resumes. Intended use:
//
//	release := document.Suspend(doc)
//	defer release()
func Suspend(doc Document) (release func()) {
	doc.SuspendNotifications()
	var once sync.Once
	return func() { once.Do(doc.ResumeNotifications) }
}

// Edge names one side of a cell.
type Edge int

const (
	EdgeTop Edge = iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

// Edges lists the four edges in wire order.
var Edges = [4]Edge{EdgeTop, EdgeBottom, EdgeLeft, EdgeRight}

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return "edge?"
	}
}

// Border is the style of one edge, in the host's enumeration (see the
// Weight and LineStyle constants in lib/protocol). The zero Border
// means no line.
type Border struct {
	Weight    int
	LineStyle int
}

// lineStyleNone is the host's "no line" style.
const lineStyleNone = -4142

// IsNone reports whether the edge draws nothing.
func (b Border) IsNone() bool {
	return b == Border{} || b.LineStyle == lineStyleNone
}

// CellStyle carries the three font style flags.
type CellStyle struct {
	Bold      bool
	Italic    bool
	Underline bool
}

// CellSnapshot is a copy of one cell taken by GetRange. Color 0 means
// no fill.
type CellSnapshot struct {
	Ref     CellRef
	Value   string
	Font    string
	Color   uint8
	Style   CellStyle
	Borders [4]Border
}

// Range is a row-major grid of snapshots.
type Range struct {
	Sheet string
	Area  Area
	Cells [][]CellSnapshot
}
