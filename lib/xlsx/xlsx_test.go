// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"path/filepath"
	"testing"

	"github.com/unidoc/unioffice/schema/soo/sml"
	"github.com/unidoc/unioffice/spreadsheet"

	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/protocol"
)

func TestLoadRoundTrip(t *testing.T) {
	source := spreadsheet.New()
	data := source.AddSheet()
	data.SetName("Data")
	summary := source.AddSheet()
	summary.SetName("Summary")

	data.Cell("A1").SetString("hello")
	data.Cell("B2").SetNumber(5)
	summary.Cell("C3").SetString("total")

	font := source.StyleSheet.AddFont()
	font.SetBold(true)
	font.SetName("Arial")
	style := source.StyleSheet.AddCellStyle()
	style.SetFont(font)
	data.Cell("A1").SetStyle(style)

	source.AddDefinedName("Totals", "Data!$B$2")
	source.AddDefinedName("Broken", "#REF!")

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := source.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	workbook, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if workbook.Name() != "book.xlsx" || workbook.Path() != path {
		t.Errorf("name %q path %q", workbook.Name(), workbook.Path())
	}
	if sheets := workbook.Sheets(); len(sheets) != 2 || sheets[0] != "Data" || sheets[1] != "Summary" {
		t.Errorf("sheets = %v", sheets)
	}

	a1, err := workbook.Cell("Data", "A1")
	if err != nil {
		t.Fatalf("Cell(A1): %v", err)
	}
	if a1.Value != "hello" || a1.Font != "Arial" || !a1.Style.Bold {
		t.Errorf("A1 = %+v", a1)
	}

	totals, err := workbook.GetRange("Summary", "Totals")
	if err != nil {
		t.Fatalf("GetRange(Totals): %v", err)
	}
	if totals.Sheet != "Data" || totals.Cells[0][0].Value != "5" {
		t.Errorf("Totals = %q %+v", totals.Sheet, totals.Cells)
	}
	if _, ok := workbook.DefinedNames()["Broken"]; ok {
		t.Error("broken defined name was loaded")
	}

	c3, err := workbook.Cell("Summary", "C3")
	if err != nil || c3.Value != "total" {
		t.Errorf("Summary!C3 = %+v, %v", c3, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.xlsx")); err == nil {
		t.Fatal("expected error")
	}
}

func TestBorderFromStyle(t *testing.T) {
	tests := []struct {
		style string
		want  document.Border
	}{
		{"thin", document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleContinuous}},
		{"hair", document.Border{Weight: protocol.WeightHairline, LineStyle: protocol.LineStyleContinuous}},
		{"double", document.Border{Weight: protocol.WeightThick, LineStyle: protocol.LineStyleDouble}},
		{"mediumDashDot", document.Border{Weight: protocol.WeightMedium, LineStyle: protocol.LineStyleDashDot}},
		{"none", document.Border{}},
		{"", document.Border{}},
	}
	for _, test := range tests {
		if got := BorderFromStyle(test.style); got != test.want {
			t.Errorf("BorderFromStyle(%q) = %+v, want %+v", test.style, got, test.want)
		}
	}
}

func TestBorderEdges(t *testing.T) {
	border := &sml.CT_Border{
		Top:  &sml.CT_BorderPr{StyleAttr: sml.ST_BorderStyleThick},
		Left: &sml.CT_BorderPr{StyleAttr: sml.ST_BorderStyleDotted},
	}
	edges := borderEdges(border)
	if edges[document.EdgeTop] != (document.Border{Weight: protocol.WeightThick, LineStyle: protocol.LineStyleContinuous}) {
		t.Errorf("top = %+v", edges[document.EdgeTop])
	}
	if edges[document.EdgeLeft] != (document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleDot}) {
		t.Errorf("left = %+v", edges[document.EdgeLeft])
	}
	if !edges[document.EdgeBottom].IsNone() || !edges[document.EdgeRight].IsNone() {
		t.Errorf("absent edges not none: %+v", edges)
	}
}

func TestFontProperties(t *testing.T) {
	off := false
	font := &sml.CT_Font{
		Name: []*sml.CT_FontName{{ValAttr: "Calibri"}},
		B:    []*sml.CT_BooleanProperty{{}},
		I:    []*sml.CT_BooleanProperty{{ValAttr: &off}},
		U:    []*sml.CT_UnderlineProperty{{}},
	}
	name, style := fontProperties(font)
	if name != "Calibri" {
		t.Errorf("name = %q", name)
	}
	if style != (document.CellStyle{Bold: true, Underline: true}) {
		t.Errorf("style = %+v", style)
	}
	if name, style := fontProperties(nil); name != "" || style != (document.CellStyle{}) {
		t.Error("nil font produced properties")
	}
}

func TestPalette(t *testing.T) {
	if got := paletteFromIndexed(10); got != 3 {
		t.Errorf("indexed 10 = %d, want 3 (red)", got)
	}
	if got := paletteFromIndexed(64); got != 0 {
		t.Errorf("system foreground = %d, want 0", got)
	}
	if got := paletteFromRGB("FFFF0000"); got != 3 {
		t.Errorf("ARGB red = %d, want 3", got)
	}
	if got := paletteFromRGB("#ffff00"); got != 6 {
		t.Errorf("RGB yellow = %d, want 6", got)
	}
	if got := paletteFromRGB("123456"); got != 0 {
		t.Errorf("off-palette = %d, want 0", got)
	}
}
