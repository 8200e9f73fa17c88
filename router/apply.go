// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/protocol"
)

// ApplyChange writes the cells of a ComnsenseChange to doc, row-major.
//
// Every value is written. An optional attribute is written only when
// the cell carries it and the action's matching flag (color, font,
// fontstyle, borders) is set. Font style bits and border edges are
// applied one by one. A failing cell does not stop the others; all
// failures are returned joined.
//
// The caller owns notification suspension.
func ApplyChange(doc document.Document, action *protocol.Action) error {
	attributes := action.ChangeAttributes()
	var errs []error
	for _, row := range action.Cells {
		for _, cell := range row {
			if err := applyCell(doc, action.Sheet, cell, attributes); err != nil {
				errs = append(errs, fmt.Errorf("cell %s: %w", cell.Key, err))
			}
		}
	}
	return errors.Join(errs...)
}

func applyCell(doc document.Document, sheet string, cell protocol.Cell, attributes protocol.Attributes) error {
	var errs []error
	if err := doc.SetCellValue(sheet, cell.Key, cell.Value); err != nil {
		// An unaddressable cell takes no styles either.
		return err
	}
	if attributes.Color && cell.Color != nil {
		errs = append(errs, doc.SetCellColor(sheet, cell.Key, *cell.Color))
	}
	if attributes.Font && cell.Font != nil {
		errs = append(errs, doc.SetCellFont(sheet, cell.Key, *cell.Font))
	}
	if attributes.FontStyle && cell.FontStyle != nil {
		style := *cell.FontStyle
		errs = append(errs,
			doc.SetCellBold(sheet, cell.Key, style.Bold()),
			doc.SetCellItalic(sheet, cell.Key, style.Italic()),
			doc.SetCellUnderline(sheet, cell.Key, style.Underline()),
		)
	}
	if attributes.Borders && cell.Borders != nil {
		for edge, wire := range map[document.Edge]*protocol.Edge{
			document.EdgeTop:    cell.Borders.Top,
			document.EdgeBottom: cell.Borders.Bottom,
			document.EdgeLeft:   cell.Borders.Left,
			document.EdgeRight:  cell.Borders.Right,
		} {
			if wire == nil {
				continue
			}
			border := document.Border{Weight: wire.Weight, LineStyle: wire.LineStyle}
			errs = append(errs, doc.SetCellBorder(sheet, cell.Key, edge, border))
		}
	}
	return errors.Join(errs...)
}

// ServeRange snapshots the range a RangeRequest names and wraps it as
// the RangeResponse for document id. An empty sheet means the active
// sheet; a defined name qualified with another sheet reads that sheet,
// and the response reports the sheet actually read.
//
// The caller owns notification suspension.
func ServeRange(doc document.Document, id string, action *protocol.Action) (*protocol.Event, error) {
	sheet, err := doc.ResolveSheet(action.Sheet)
	if err != nil {
		return nil, err
	}
	snapshot, err := doc.GetRange(sheet, action.RangeName)
	if err != nil {
		return nil, err
	}
	cells := CellsFromRange(snapshot, action.Flags.Attributes())
	return protocol.NewRangeResponse(id, snapshot.Sheet, cells), nil
}
