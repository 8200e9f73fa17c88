// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/protocol"
)

// CellsFromRange converts a snapshot to wire cells carrying key, value
// and the selected attributes.
//
// A selected attribute is still omitted when the cell has nothing to
// report: no fill (color 0), no font name, or no visible border edge.
// A selected font style is always reported, since 0 is meaningful.
func CellsFromRange(snapshot document.Range, attributes protocol.Attributes) [][]protocol.Cell {
	rows := make([][]protocol.Cell, len(snapshot.Cells))
	for i, row := range snapshot.Cells {
		cells := make([]protocol.Cell, len(row))
		for j, source := range row {
			cells[j] = cellFromSnapshot(source, attributes)
		}
		rows[i] = cells
	}
	return rows
}

func cellFromSnapshot(source document.CellSnapshot, attributes protocol.Attributes) protocol.Cell {
	cell := protocol.Cell{Key: source.Ref.String(), Value: source.Value}
	if attributes.Color && source.Color != 0 {
		cell = cell.WithColor(source.Color)
	}
	if attributes.Font && source.Font != "" {
		cell = cell.WithFont(source.Font)
	}
	if attributes.FontStyle {
		cell = cell.WithFontStyle(protocol.NewFontStyle(
			source.Style.Bold, source.Style.Italic, source.Style.Underline))
	}
	if attributes.Borders {
		cell = cell.WithBorders(bordersFromSnapshot(source.Borders))
	}
	return cell
}

func bordersFromSnapshot(edges [4]document.Border) protocol.Borders {
	var borders protocol.Borders
	for _, edge := range document.Edges {
		border := edges[edge]
		if border.IsNone() {
			continue
		}
		wire := &protocol.Edge{Weight: border.Weight, LineStyle: border.LineStyle}
		switch edge {
		case document.EdgeTop:
			borders.Top = wire
		case document.EdgeBottom:
			borders.Bottom = wire
		case document.EdgeLeft:
			borders.Left = wire
		case document.EdgeRight:
			borders.Right = wire
		}
	}
	return borders
}
