// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/unidoc/unioffice/schema/soo/sml"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/bureau-foundation/comnsense/lib/document"
)

// Load reads the file at path. The workbook is named after the file
// and records its absolute path.
func Load(path string) (*document.Workbook, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(absolute)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	workbook, err := Read(file, info.Size(), filepath.Base(absolute))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", absolute, err)
	}
	workbook.SetPath(absolute)
	return workbook, nil
}

// Read parses an .xlsx stream of the given size.
func Read(r io.ReaderAt, size int64, name string) (*document.Workbook, error) {
	source, err := spreadsheet.Read(r, size)
	if err != nil {
		return nil, err
	}

	sheets := source.Sheets()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	names := make([]string, len(sheets))
	for i, sheet := range sheets {
		names[i] = sheet.Name()
	}
	workbook := document.NewWorkbook(name, names...)

	styles := newStyleTable(source.StyleSheet)
	for _, sheet := range sheets {
		if err := loadSheet(workbook, sheet, styles); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name(), err)
		}
	}

	for _, defined := range source.DefinedNames() {
		// Names bound to formulas or broken references cannot be
		// snapshotted as ranges.
		if _, _, err := document.ParseReference(defined.Content()); err != nil {
			continue
		}
		if err := workbook.DefineName(defined.Name(), defined.Content()); err != nil {
			return nil, err
		}
	}

	if active, ok := activeTab(source); ok && active < len(names) {
		if err := workbook.Activate(names[active]); err != nil {
			return nil, err
		}
	}
	return workbook, nil
}

func loadSheet(workbook *document.Workbook, sheet spreadsheet.Sheet, styles *styleTable) error {
	for _, row := range sheet.Rows() {
		for _, cell := range row.Cells() {
			column, err := cell.Column()
			if err != nil {
				continue
			}
			ref := document.CellRef{
				Row:    int(row.RowNumber()),
				Column: int(reference.ColumnToIndex(column)) + 1,
			}
			if ref.Row < 1 || ref.Row > document.MaxRows || ref.Column > document.MaxColumns {
				continue
			}
			key := ref.String()

			if err := workbook.SetCellValue(sheet.Name(), key, cell.GetString()); err != nil {
				return err
			}
			if cell.X().SAttr == nil {
				continue
			}
			if err := styles.apply(workbook, sheet.Name(), key, *cell.X().SAttr); err != nil {
				return err
			}
		}
	}
	return nil
}

func activeTab(source *spreadsheet.Workbook) (int, bool) {
	x := source.X()
	if x == nil || x.BookViews == nil || len(x.BookViews.WorkbookView) == 0 {
		return 0, false
	}
	active := x.BookViews.WorkbookView[0].ActiveTabAttr
	if active == nil {
		return 0, false
	}
	return int(*active), true
}

// cellStyle is what a style id resolves to.
type cellStyle struct {
	font    string
	color   uint8
	style   document.CellStyle
	borders [4]document.Border
}

// styleTable resolves style ids once per workbook.
type styleTable struct {
	source   spreadsheet.StyleSheet
	resolved map[uint32]cellStyle
}

func newStyleTable(source spreadsheet.StyleSheet) *styleTable {
	return &styleTable{source: source, resolved: make(map[uint32]cellStyle)}
}

func (t *styleTable) apply(workbook *document.Workbook, sheet, key string, styleID uint32) error {
	style, ok := t.resolved[styleID]
	if !ok {
		style = t.resolve(styleID)
		t.resolved[styleID] = style
	}

	if style.font != "" {
		if err := workbook.SetCellFont(sheet, key, style.font); err != nil {
			return err
		}
	}
	if style.color != 0 {
		if err := workbook.SetCellColor(sheet, key, style.color); err != nil {
			return err
		}
	}
	if style.style.Bold {
		if err := workbook.SetCellBold(sheet, key, true); err != nil {
			return err
		}
	}
	if style.style.Italic {
		if err := workbook.SetCellItalic(sheet, key, true); err != nil {
			return err
		}
	}
	if style.style.Underline {
		if err := workbook.SetCellUnderline(sheet, key, true); err != nil {
			return err
		}
	}
	for _, edge := range document.Edges {
		if style.borders[edge].IsNone() {
			continue
		}
		if err := workbook.SetCellBorder(sheet, key, edge, style.borders[edge]); err != nil {
			return err
		}
	}
	return nil
}

func (t *styleTable) resolve(styleID uint32) cellStyle {
	x := t.source.X()
	if x == nil || x.CellXfs == nil || int(styleID) >= len(x.CellXfs.Xf) {
		return cellStyle{}
	}
	xf := x.CellXfs.Xf[styleID]

	var style cellStyle
	if xf.FontIdAttr != nil && x.Fonts != nil && int(*xf.FontIdAttr) < len(x.Fonts.Font) {
		style.font, style.style = fontProperties(x.Fonts.Font[*xf.FontIdAttr])
	}
	if xf.FillIdAttr != nil && x.Fills != nil && int(*xf.FillIdAttr) < len(x.Fills.Fill) {
		style.color = fillColor(x.Fills.Fill[*xf.FillIdAttr])
	}
	if xf.BorderIdAttr != nil && x.Borders != nil && int(*xf.BorderIdAttr) < len(x.Borders.Border) {
		style.borders = borderEdges(x.Borders.Border[*xf.BorderIdAttr])
	}
	return style
}

func fontProperties(font *sml.CT_Font) (string, document.CellStyle) {
	if font == nil {
		return "", document.CellStyle{}
	}
	var name string
	if len(font.Name) > 0 && font.Name[0] != nil {
		name = font.Name[0].ValAttr
	}
	return name, document.CellStyle{
		Bold:      booleanProperty(font.B),
		Italic:    booleanProperty(font.I),
		Underline: underlined(font.U),
	}
}

// booleanProperty reads an OOXML toggle: present without a value
// means true.
func booleanProperty(properties []*sml.CT_BooleanProperty) bool {
	if len(properties) == 0 || properties[0] == nil {
		return false
	}
	return properties[0].ValAttr == nil || *properties[0].ValAttr
}

func underlined(properties []*sml.CT_UnderlineProperty) bool {
	if len(properties) == 0 || properties[0] == nil {
		return false
	}
	return properties[0].ValAttr.String() != "none"
}

func fillColor(fill *sml.CT_Fill) uint8 {
	if fill == nil || fill.PatternFill == nil || fill.PatternFill.FgColor == nil {
		return 0
	}
	if fill.PatternFill.PatternTypeAttr.String() == "none" {
		return 0
	}
	foreground := fill.PatternFill.FgColor
	if foreground.IndexedAttr != nil {
		return paletteFromIndexed(*foreground.IndexedAttr)
	}
	if foreground.RgbAttr != nil {
		return paletteFromRGB(*foreground.RgbAttr)
	}
	return 0
}

func borderEdges(border *sml.CT_Border) [4]document.Border {
	var edges [4]document.Border
	if border == nil {
		return edges
	}
	for edge, properties := range map[document.Edge]*sml.CT_BorderPr{
		document.EdgeTop:    border.Top,
		document.EdgeBottom: border.Bottom,
		document.EdgeLeft:   border.Left,
		document.EdgeRight:  border.Right,
	} {
		if properties == nil {
			continue
		}
		edges[edge] = BorderFromStyle(properties.StyleAttr.String())
	}
	return edges
}
