// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"slices"
	"sync"
)

// Application holds the open workbooks and relays their notifications.
// Handlers run synchronously on the goroutine that triggered them.
type Application struct {
	mu        sync.Mutex
	workbooks []*Workbook
	relayed   map[*Workbook]bool

	onOpen        []func(*Workbook)
	onNew         []func(*Workbook)
	onBeforeClose []func(*Workbook)
	onChange      []func(Change)
	onSelection   []func(Change)
}

// NewApplication returns an application with no open workbooks.
func NewApplication() *Application {
	return &Application{}
}

func (a *Application) OnWorkbookOpen(fn func(*Workbook)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onOpen = append(a.onOpen, fn)
}

func (a *Application) OnNewWorkbook(fn func(*Workbook)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onNew = append(a.onNew, fn)
}

func (a *Application) OnWorkbookBeforeClose(fn func(*Workbook)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onBeforeClose = append(a.onBeforeClose, fn)
}

// OnSheetChange registers fn for value edits in any open workbook.
func (a *Application) OnSheetChange(fn func(Change)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = append(a.onChange, fn)
}

// OnSheetSelectionChange registers fn for selection moves in any open
// workbook.
func (a *Application) OnSheetSelectionChange(fn func(Change)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSelection = append(a.onSelection, fn)
}

// Open adds an existing workbook and raises WorkbookOpen. Opening a
// workbook that is already open does nothing.
func (a *Application) Open(w *Workbook) {
	if !a.add(w) {
		return
	}
	for _, fn := range handlers(a, &a.onOpen) {
		fn(w)
	}
}

// New creates an empty workbook, adds it and raises NewWorkbook.
func (a *Application) New(name string) *Workbook {
	w := NewWorkbook(name)
	a.add(w)
	for _, fn := range handlers(a, &a.onNew) {
		fn(w)
	}
	return w
}

// Close raises WorkbookBeforeClose and removes the workbook. It
// reports whether the workbook was open.
func (a *Application) Close(w *Workbook) bool {
	if !a.isOpen(w) {
		return false
	}
	for _, fn := range handlers(a, &a.onBeforeClose) {
		fn(w)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	index := slices.Index(a.workbooks, w)
	if index < 0 {
		return false
	}
	a.workbooks = slices.Delete(a.workbooks, index, index+1)
	return true
}

// Workbooks returns the open workbooks in opening order.
func (a *Application) Workbooks() []*Workbook {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.workbooks)
}

// OpenDocuments implements Host.
func (a *Application) OpenDocuments() []Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	documents := make([]Document, len(a.workbooks))
	for i, w := range a.workbooks {
		documents[i] = w
	}
	return documents
}

// FindPath returns the open workbook backed by path.
func (a *Application) FindPath(path string) (*Workbook, bool) {
	for _, w := range a.Workbooks() {
		if w.Path() == path {
			return w, true
		}
	}
	return nil, false
}

func (a *Application) add(w *Workbook) bool {
	a.mu.Lock()
	if slices.Contains(a.workbooks, w) {
		a.mu.Unlock()
		return false
	}
	a.workbooks = append(a.workbooks, w)
	relayed := a.relayed[w]
	if a.relayed == nil {
		a.relayed = make(map[*Workbook]bool)
	}
	a.relayed[w] = true
	a.mu.Unlock()

	if relayed {
		return true
	}

	w.OnSheetChange(func(change Change) {
		if a.isOpen(w) {
			for _, fn := range handlers(a, &a.onChange) {
				fn(change)
			}
		}
	})
	w.OnSelectionChange(func(change Change) {
		if a.isOpen(w) {
			for _, fn := range handlers(a, &a.onSelection) {
				fn(change)
			}
		}
	})
	return true
}

func (a *Application) isOpen(w *Workbook) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Contains(a.workbooks, w)
}

func handlers[T any](a *Application, list *[]T) []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(*list)
}
