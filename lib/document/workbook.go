// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// maxSnapshotCells bounds a single GetRange.
const maxSnapshotCells = 1 << 20

// Change is an edit or selection notification.
type Change struct {
	Workbook *Workbook
	Sheet    string
	Area     Area
}

// Workbook is an in-memory document. The zero value is not usable;
// call NewWorkbook.
type Workbook struct {
	name string

	mu         sync.Mutex
	path       string
	sheets     []*sheet
	active     int
	names      map[string]definedName
	properties map[string]string
	suspended  int

	onChange    []func(Change)
	onSelection []func(Change)
}

type definedName struct {
	name      string
	reference string
}

type sheet struct {
	name  string
	cells map[CellRef]*cell
}

type cell struct {
	value   string
	font    string
	color   uint8
	style   CellStyle
	borders [4]Border
}

func (c *cell) snapshot(ref CellRef) CellSnapshot {
	return CellSnapshot{
		Ref:     ref,
		Value:   c.value,
		Font:    c.font,
		Color:   c.color,
		Style:   c.style,
		Borders: c.borders,
	}
}

// NewWorkbook returns a workbook with the given sheets, or a single
// "Sheet1" when none are named. The first sheet is active.
func NewWorkbook(name string, sheets ...string) *Workbook {
	if len(sheets) == 0 {
		sheets = []string{"Sheet1"}
	}
	w := &Workbook{
		name:       name,
		names:      make(map[string]definedName),
		properties: make(map[string]string),
	}
	for _, sheetName := range sheets {
		w.sheets = append(w.sheets, &sheet{name: sheetName, cells: make(map[CellRef]*cell)})
	}
	return w
}

// Name returns the display name given at construction.
func (w *Workbook) Name() string { return w.name }

// Path returns the file the workbook was loaded from, if any.
func (w *Workbook) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// SetPath records the backing file.
func (w *Workbook) SetPath(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.path = path
}

// AddSheet appends an empty sheet.
func (w *Workbook) AddSheet(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" {
		return fmt.Errorf("adding sheet: empty name")
	}
	if w.sheetLocked(name) != nil {
		return fmt.Errorf("adding sheet %q: already exists", name)
	}
	w.sheets = append(w.sheets, &sheet{name: name, cells: make(map[CellRef]*cell)})
	return nil
}

// Sheets returns the sheet names in order.
func (w *Workbook) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.name
	}
	return names
}

// Activate makes the named sheet the active one.
func (w *Workbook) Activate(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.sheets {
		if strings.EqualFold(s.name, name) {
			w.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNoSuchSheet, name)
}

// DefineName binds a workbook-level name to a reference such as
// "Sheet1!$A$1:$B$4". Names are case-insensitive.
func (w *Workbook) DefineName(name, reference string) error {
	if name == "" {
		return fmt.Errorf("defining name: empty name")
	}
	if _, _, err := ParseReference(reference); err != nil {
		return fmt.Errorf("defining name %q: %w", name, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.names[strings.ToUpper(name)] = definedName{name: name, reference: reference}
	return nil
}

// CustomProperty returns a document custom property.
func (w *Workbook) CustomProperty(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	value, ok := w.properties[name]
	return value, ok
}

// SetCustomProperty sets a document custom property.
func (w *Workbook) SetCustomProperty(name, value string) error {
	if name == "" {
		return fmt.Errorf("setting custom property: empty name")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.properties[name] = value
	return nil
}

// OnSheetChange registers fn for cell value edits. Listeners run
// synchronously on the editing goroutine, outside the workbook lock,
// and not at all while notifications are suspended.
func (w *Workbook) OnSheetChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// OnSelectionChange registers fn for selection moves, under the same
// rules as OnSheetChange.
func (w *Workbook) OnSelectionChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSelection = append(w.onSelection, fn)
}

// Select moves the selection and notifies.
func (w *Workbook) Select(sheetName string, area Area) error {
	w.mu.Lock()
	s, err := w.resolveLocked(sheetName)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	listeners := w.listenersLocked(w.onSelection)
	w.mu.Unlock()

	notify(listeners, Change{Workbook: w, Sheet: s.name, Area: area})
	return nil
}

// Suspended reports whether notifications are currently suspended.
func (w *Workbook) Suspended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.suspended > 0
}

func (w *Workbook) SuspendNotifications() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suspended++
}

func (w *Workbook) ResumeNotifications() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.suspended > 0 {
		w.suspended--
	}
}

func (w *Workbook) ResolveSheet(name string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolveLocked(name)
	if err != nil {
		return "", err
	}
	return s.name, nil
}

func (w *Workbook) GetRange(sheetName, name string) (Range, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reference := name
	if defined, ok := w.names[strings.ToUpper(name)]; ok {
		reference = defined.reference
	}
	qualifier, area, err := ParseReference(reference)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrNoSuchRange, name)
	}
	if qualifier != "" {
		sheetName = qualifier
	}
	s, err := w.resolveLocked(sheetName)
	if err != nil {
		return Range{}, err
	}
	if area.Rows()*area.Columns() > maxSnapshotCells {
		return Range{}, fmt.Errorf("range %q covers %d cells, limit is %d",
			name, area.Rows()*area.Columns(), maxSnapshotCells)
	}

	result := Range{Sheet: s.name, Area: area, Cells: make([][]CellSnapshot, 0, area.Rows())}
	for row := area.First.Row; row <= area.Last.Row; row++ {
		cells := make([]CellSnapshot, 0, area.Columns())
		for column := area.First.Column; column <= area.Last.Column; column++ {
			ref := CellRef{Row: row, Column: column}
			if c, ok := s.cells[ref]; ok {
				cells = append(cells, c.snapshot(ref))
			} else {
				cells = append(cells, CellSnapshot{Ref: ref})
			}
		}
		result.Cells = append(result.Cells, cells)
	}
	return result, nil
}

// Cell snapshots a single cell.
func (w *Workbook) Cell(sheetName, key string) (CellSnapshot, error) {
	r, err := w.GetRange(sheetName, key)
	if err != nil {
		return CellSnapshot{}, err
	}
	return r.Cells[0][0], nil
}

// SetCellValue sets a value and raises a sheet change unless
// notifications are suspended.
func (w *Workbook) SetCellValue(sheetName, key, value string) error {
	ref, err := ParseCellRef(key)
	if err != nil {
		return err
	}
	w.mu.Lock()
	s, err := w.resolveLocked(sheetName)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	s.cellLocked(ref).value = value
	listeners := w.listenersLocked(w.onChange)
	w.mu.Unlock()

	notify(listeners, Change{Workbook: w, Sheet: s.name, Area: SingleCell(ref)})
	return nil
}

func (w *Workbook) SetCellFont(sheetName, key, font string) error {
	return w.update(sheetName, key, func(c *cell) { c.font = font })
}

// SetCellColor sets the fill palette index; 0 clears the fill.
func (w *Workbook) SetCellColor(sheetName, key string, color uint8) error {
	return w.update(sheetName, key, func(c *cell) { c.color = color })
}

func (w *Workbook) SetCellBold(sheetName, key string, bold bool) error {
	return w.update(sheetName, key, func(c *cell) { c.style.Bold = bold })
}

func (w *Workbook) SetCellItalic(sheetName, key string, italic bool) error {
	return w.update(sheetName, key, func(c *cell) { c.style.Italic = italic })
}

func (w *Workbook) SetCellUnderline(sheetName, key string, underline bool) error {
	return w.update(sheetName, key, func(c *cell) { c.style.Underline = underline })
}

func (w *Workbook) SetCellBorder(sheetName, key string, edge Edge, border Border) error {
	if edge < EdgeTop || edge > EdgeRight {
		return fmt.Errorf("setting border of %s: invalid edge %d", key, int(edge))
	}
	return w.update(sheetName, key, func(c *cell) { c.borders[edge] = border })
}

// SyncValues copies every cell of from into w. Cells whose value
// differs are written through SetCellValue so that listeners see
// them as edits; styles and sheets missing from w are copied
// silently. It returns the number of edited cells.
func (w *Workbook) SyncValues(from *Workbook) (int, error) {
	from.mu.Lock()
	type pending struct {
		sheet string
		ref   CellRef
		data  cell
	}
	var incoming []pending
	for _, s := range from.sheets {
		for ref, c := range s.cells {
			incoming = append(incoming, pending{sheet: s.name, ref: ref, data: *c})
		}
	}
	from.mu.Unlock()

	slices.SortFunc(incoming, func(a, b pending) int {
		if a.sheet != b.sheet {
			return strings.Compare(a.sheet, b.sheet)
		}
		if a.ref.Row != b.ref.Row {
			return a.ref.Row - b.ref.Row
		}
		return a.ref.Column - b.ref.Column
	})

	edited := 0
	for _, p := range incoming {
		w.mu.Lock()
		s := w.sheetLocked(p.sheet)
		if s == nil {
			s = &sheet{name: p.sheet, cells: make(map[CellRef]*cell)}
			w.sheets = append(w.sheets, s)
		}
		current := s.cellLocked(p.ref)
		changed := current.value != p.data.value
		value := current.value
		*current = p.data
		current.value = value
		w.mu.Unlock()

		if changed {
			if err := w.SetCellValue(p.sheet, p.ref.String(), p.data.value); err != nil {
				return edited, err
			}
			edited++
		}
	}
	return edited, nil
}

func (w *Workbook) update(sheetName, key string, mutate func(*cell)) error {
	ref, err := ParseCellRef(key)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.resolveLocked(sheetName)
	if err != nil {
		return err
	}
	mutate(s.cellLocked(ref))
	return nil
}

func (w *Workbook) resolveLocked(name string) (*sheet, error) {
	if name == "" {
		if len(w.sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrNoSuchSheet)
		}
		return w.sheets[w.active], nil
	}
	if s := w.sheetLocked(name); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchSheet, name)
}

func (w *Workbook) sheetLocked(name string) *sheet {
	for _, s := range w.sheets {
		if strings.EqualFold(s.name, name) {
			return s
		}
	}
	return nil
}

func (w *Workbook) listenersLocked(listeners []func(Change)) []func(Change) {
	if w.suspended > 0 {
		return nil
	}
	return slices.Clone(listeners)
}

// DefinedNames returns a copy of the name table, keyed by display
// name.
func (w *Workbook) DefinedNames() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	result := make(map[string]string, len(w.names))
	for _, defined := range w.names {
		result[defined.name] = defined.reference
	}
	return result
}

func (s *sheet) cellLocked(ref CellRef) *cell {
	c, ok := s.cells[ref]
	if !ok {
		c = &cell{}
		s.cells[ref] = c
	}
	return c
}

func notify(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}
