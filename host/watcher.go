// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bureau-foundation/comnsense/lib/binhash"
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/xlsx"
)

// LoadFunc reads a workbook file.
type LoadFunc func(path string) (*document.Workbook, error)

// WatcherConfig configures a Watcher. Application is required.
type WatcherConfig struct {
	Application *document.Application

	// Load defaults to xlsx.Load.
	Load LoadFunc

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher opens workbook files and follows their later rewrites.
type Watcher struct {
	app    *document.Application
	load   LoadFunc
	logger *slog.Logger
	notify *fsnotify.Watcher

	mu sync.Mutex
	// digests maps the absolute path of every opened file to the
	// digest of the content last loaded from it.
	digests map[string]binhash.Digest
	// directories holds the directories already registered with
	// fsnotify.
	directories map[string]bool
}

// NewWatcher returns a watcher with no files.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Application == nil {
		return nil, errors.New("host: application is required")
	}
	if config.Load == nil {
		config.Load = xlsx.Load
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &Watcher{
		app:         config.Application,
		load:        config.Load,
		logger:      config.Logger,
		notify:      notify,
		digests:     make(map[string]binhash.Digest),
		directories: make(map[string]bool),
	}, nil
}

// Open loads the file at path, opens it in the application and starts
// following it. Opening a file that is already open returns the open
// workbook.
func (w *Watcher) Open(path string) (*document.Workbook, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if existing, ok := w.app.FindPath(absolute); ok {
		return existing, nil
	}

	digest, err := binhash.HashFile(absolute)
	if err != nil {
		return nil, err
	}
	workbook, err := w.load(absolute)
	if err != nil {
		return nil, err
	}
	workbook.SetPath(absolute)

	// Editors commonly replace a file by renaming a temporary over it,
	// which only the parent directory's watch sees.
	directory := filepath.Dir(absolute)
	w.mu.Lock()
	if !w.directories[directory] {
		if err := w.notify.Add(directory); err != nil {
			w.mu.Unlock()
			return nil, fmt.Errorf("watching %s: %w", directory, err)
		}
		w.directories[directory] = true
	}
	w.digests[absolute] = digest
	w.mu.Unlock()

	w.app.Open(workbook)
	w.logger.Info("opened workbook", "path", absolute, "digest", digest)
	return workbook, nil
}

// Run follows file events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.Reload(event.Name)
			}
		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Reload re-reads path if it is followed and its content changed, and
// copies the new values into the open workbook. It reports the number
// of cells whose value changed. Files that fail to load (for example
// mid-write) are left for the next event.
func (w *Watcher) Reload(path string) int {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return 0
	}
	w.mu.Lock()
	previous, followed := w.digests[absolute]
	w.mu.Unlock()
	if !followed {
		return 0
	}

	target, ok := w.app.FindPath(absolute)
	if !ok {
		w.forget(absolute)
		w.logger.Debug("stopped following closed workbook", "path", absolute)
		return 0
	}

	digest, err := binhash.HashFile(absolute)
	if err != nil {
		w.logger.Debug("hashing workbook file", "path", absolute, "error", err)
		return 0
	}
	if digest == previous {
		w.logger.Debug("workbook file rewritten without changes", "path", absolute)
		return 0
	}

	fresh, err := w.load(absolute)
	if err != nil {
		w.logger.Debug("reloading workbook file", "path", absolute, "error", err)
		return 0
	}
	edited, err := target.SyncValues(fresh)
	if err != nil {
		w.logger.Warn("applying reloaded workbook", "path", absolute, "error", err)
	}

	w.mu.Lock()
	if _, ok := w.digests[absolute]; ok {
		w.digests[absolute] = digest
	}
	w.mu.Unlock()

	w.logger.Info("reloaded workbook", "path", absolute, "digest", digest, "edited_cells", edited)
	return edited
}

func (w *Watcher) forget(absolute string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.digests, absolute)
}

// Following returns the number of files being followed.
func (w *Watcher) Following() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.digests)
}

// Close releases the underlying watch. Run returns afterwards.
func (w *Watcher) Close() error {
	return w.notify.Close()
}
