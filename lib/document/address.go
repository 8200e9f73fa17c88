// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxRows and MaxColumns are the grid limits of the .xlsx format.
	MaxRows    = 1048576
	MaxColumns = 16384
)

// ErrBadReference is wrapped by every parse failure in this file.
var ErrBadReference = errors.New("bad cell reference")

// CellRef addresses one cell. Row and Column are 1-based.
type CellRef struct {
	Row    int
	Column int
}

// String returns the absolute form, for example "$B$3".
func (r CellRef) String() string {
	return "$" + ColumnName(r.Column) + "$" + strconv.Itoa(r.Row)
}

// Relative returns the relative form, for example "B3".
func (r CellRef) Relative() string {
	return ColumnName(r.Column) + strconv.Itoa(r.Row)
}

// ColumnName converts a 1-based column index to letters: 1 is "A",
// 27 is "AA".
func ColumnName(column int) string {
	var letters []byte
	for column > 0 {
		column--
		letters = append(letters, byte('A'+column%26))
		column /= 26
	}
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters)
}

// ParseCellRef parses "B3", "$B$3", "B$3" or "$B3", case-insensitively.
func ParseCellRef(s string) (CellRef, error) {
	input := s
	s = strings.TrimPrefix(s, "$")

	letters := 0
	for letters < len(s) && isLetter(s[letters]) {
		letters++
	}
	if letters == 0 || letters > 3 {
		return CellRef{}, fmt.Errorf("%w: %q", ErrBadReference, input)
	}
	column := 0
	for _, c := range strings.ToUpper(s[:letters]) {
		column = column*26 + int(c-'A'+1)
	}

	digits := strings.TrimPrefix(s[letters:], "$")
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return CellRef{}, fmt.Errorf("%w: %q", ErrBadReference, input)
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return CellRef{}, fmt.Errorf("%w: %q", ErrBadReference, input)
	}

	ref := CellRef{Row: row, Column: column}
	if row < 1 || row > MaxRows || column > MaxColumns {
		return CellRef{}, fmt.Errorf("%w: %q out of range", ErrBadReference, input)
	}
	return ref, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// Area is an inclusive rectangle of cells with First at the top left.
type Area struct {
	First CellRef
	Last  CellRef
}

// SingleCell returns the area covering one cell.
func SingleCell(ref CellRef) Area {
	return Area{First: ref, Last: ref}
}

// ParseArea parses "A1", "A1:C3" or their absolute forms. The corners
// may be given in any order.
func ParseArea(s string) (Area, error) {
	first, last, found := strings.Cut(s, ":")
	a, err := ParseCellRef(first)
	if err != nil {
		return Area{}, err
	}
	if !found {
		return SingleCell(a), nil
	}
	b, err := ParseCellRef(last)
	if err != nil {
		return Area{}, err
	}
	return Area{
		First: CellRef{Row: min(a.Row, b.Row), Column: min(a.Column, b.Column)},
		Last:  CellRef{Row: max(a.Row, b.Row), Column: max(a.Column, b.Column)},
	}, nil
}

// ParseReference parses an optionally sheet-qualified area such as
// "Sheet1!$A$1:$B$2" or "'Q1 Budget'!C4". The sheet is empty when the
// reference carries none.
func ParseReference(s string) (sheet string, area Area, err error) {
	if bang := strings.LastIndex(s, "!"); bang >= 0 {
		sheet = s[:bang]
		s = s[bang+1:]
		if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
		if sheet == "" {
			return "", Area{}, fmt.Errorf("%w: empty sheet name", ErrBadReference)
		}
	}
	area, err = ParseArea(s)
	return sheet, area, err
}

// String returns the absolute form: "$A$1" for a single cell,
// "$A$1:$C$3" otherwise.
func (a Area) String() string {
	if a.First == a.Last {
		return a.First.String()
	}
	return a.First.String() + ":" + a.Last.String()
}

// Rows returns the number of rows in the area.
func (a Area) Rows() int { return a.Last.Row - a.First.Row + 1 }

// Columns returns the number of columns in the area.
func (a Area) Columns() int { return a.Last.Column - a.First.Column + 1 }

// Contains reports whether ref lies inside the area.
func (a Area) Contains(ref CellRef) bool {
	return ref.Row >= a.First.Row && ref.Row <= a.Last.Row &&
		ref.Column >= a.First.Column && ref.Column <= a.Last.Column
}
