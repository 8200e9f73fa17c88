// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/testutil"
)

// loadText reads "A1=value" lines into a single-sheet workbook.
func loadText(path string) (*document.Workbook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	w := document.NewWorkbook(filepath.Base(path))
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", scanner.Text())
		}
		if err := w.SetCellValue("", key, value); err != nil {
			return nil, err
		}
	}
	return w, scanner.Err()
}

func writeText(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newWatcher(t *testing.T, app *document.Application) *Watcher {
	t.Helper()
	watcher, err := NewWatcher(WatcherConfig{
		Application: app,
		Load:        loadText,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { watcher.Close() })
	return watcher
}

func countChanges(app *document.Application) *int {
	var count int
	app.OnSheetChange(func(document.Change) { count++ })
	return &count
}

func TestWatcherOpen(t *testing.T) {
	app := document.NewApplication()
	watcher := newWatcher(t, app)
	path := filepath.Join(t.TempDir(), "book.txt")
	writeText(t, path, "A1=5\nB2=x\n")

	w, err := watcher.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.Path() != path {
		t.Errorf("Path = %q, want %q", w.Path(), path)
	}
	if found, ok := app.FindPath(path); !ok || found != w {
		t.Error("workbook not open in the application")
	}
	b2, _ := w.Cell("", "B2")
	if b2.Value != "x" {
		t.Errorf("B2 = %q", b2.Value)
	}

	again, err := watcher.Open(path)
	if err != nil || again != w {
		t.Errorf("second Open = %p, %v; want the open workbook", again, err)
	}
	if watcher.Following() != 1 {
		t.Errorf("Following = %d, want 1", watcher.Following())
	}
}

func TestWatcherOpenErrors(t *testing.T) {
	watcher := newWatcher(t, document.NewApplication())
	dir := t.TempDir()

	if _, err := watcher.Open(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Open succeeded for a missing file")
	}
	bad := filepath.Join(dir, "bad.txt")
	writeText(t, bad, "no equals sign\n")
	if _, err := watcher.Open(bad); err == nil {
		t.Error("Open succeeded for an unloadable file")
	}
	if watcher.Following() != 0 {
		t.Errorf("Following = %d after failed opens", watcher.Following())
	}
}

func TestWatcherReload(t *testing.T) {
	app := document.NewApplication()
	changes := countChanges(app)
	watcher := newWatcher(t, app)
	path := filepath.Join(t.TempDir(), "book.txt")
	writeText(t, path, "A1=5\nA2=6\n")
	w, err := watcher.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	*changes = 0

	if edited := watcher.Reload(path); edited != 0 || *changes != 0 {
		t.Errorf("unchanged file: edited %d, notifications %d", edited, *changes)
	}

	writeText(t, path, "A1=5\nA2=7\nA3=8\n")
	if edited := watcher.Reload(path); edited != 2 {
		t.Errorf("edited = %d, want 2", edited)
	}
	if *changes != 2 {
		t.Errorf("notifications = %d, want 2", *changes)
	}
	a2, _ := w.Cell("", "A2")
	if a2.Value != "7" {
		t.Errorf("A2 = %q, want 7", a2.Value)
	}

	// The new content is now the baseline.
	if edited := watcher.Reload(path); edited != 0 {
		t.Errorf("second reload edited %d cells", edited)
	}
}

func TestWatcherReloadKeepsBaselineOnLoadFailure(t *testing.T) {
	app := document.NewApplication()
	watcher := newWatcher(t, app)
	path := filepath.Join(t.TempDir(), "book.txt")
	writeText(t, path, "A1=5\n")
	w, err := watcher.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	writeText(t, path, "half-writ")
	if edited := watcher.Reload(path); edited != 0 {
		t.Errorf("edited = %d for an unloadable file", edited)
	}
	writeText(t, path, "A1=9\n")
	if edited := watcher.Reload(path); edited != 1 {
		t.Errorf("edited = %d after the write completed, want 1", edited)
	}
	a1, _ := w.Cell("", "A1")
	if a1.Value != "9" {
		t.Errorf("A1 = %q, want 9", a1.Value)
	}
}

func TestWatcherForgetsClosedWorkbooks(t *testing.T) {
	app := document.NewApplication()
	watcher := newWatcher(t, app)
	path := filepath.Join(t.TempDir(), "book.txt")
	writeText(t, path, "A1=5\n")
	w, err := watcher.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	app.Close(w)
	writeText(t, path, "A1=6\n")
	if edited := watcher.Reload(path); edited != 0 {
		t.Errorf("closed workbook edited %d cells", edited)
	}
	if watcher.Following() != 0 {
		t.Errorf("Following = %d, want 0", watcher.Following())
	}
	if watcher.Reload(filepath.Join(t.TempDir(), "unrelated.txt")) != 0 {
		t.Error("Reload of an unfollowed path edited cells")
	}
}

func TestWatcherRunFollowsWrites(t *testing.T) {
	app := document.NewApplication()
	edits := make(chan document.Change, 16)
	app.OnSheetChange(func(change document.Change) { edits <- change })
	watcher := newWatcher(t, app)
	path := filepath.Join(t.TempDir(), "book.txt")
	writeText(t, path, "A1=5\n")
	if _, err := watcher.Open(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- watcher.Run(ctx) }()

	writeText(t, path, "A1=6\n")
	change := testutil.RequireReceive(t, edits, testTimeout, "edit from the rewritten file")
	if change.Area.String() != "$A$1" {
		t.Errorf("changed area = %s, want $A$1", change.Area)
	}

	cancel()
	if err := testutil.RequireReceive(t, result, testTimeout, "Run exit"); err != nil {
		t.Errorf("Run = %v", err)
	}
}
