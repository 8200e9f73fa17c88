// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/comnsense/lib/clock"
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/protocol"
	"github.com/bureau-foundation/comnsense/router"
)

// Config wires an Addin to its collaborators. All fields except
// Logger are required.
type Config struct {
	Application *document.Application
	Identity    document.Identity
	Publisher   *router.Publisher
	Manager     *router.Manager
	Logger      *slog.Logger
}

// Addin reacts to application notifications. Its handlers run on the
// goroutine that raised the notification.
type Addin struct {
	app       *document.Application
	identity  document.Identity
	publisher *router.Publisher
	manager   *router.Manager
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool

	// selections holds the values of each workbook's last selected
	// area, taken when it was selected.
	selections map[*document.Workbook][][]protocol.Cell
}

// New registers the add-in with the application and treats every
// workbook that is already open as just opened.
func New(config Config) (*Addin, error) {
	switch {
	case config.Application == nil:
		return nil, errors.New("host: application is required")
	case config.Identity == nil:
		return nil, errors.New("host: document identity is required")
	case config.Publisher == nil:
		return nil, errors.New("host: publisher is required")
	case config.Manager == nil:
		return nil, errors.New("host: router manager is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	a := &Addin{
		app:        config.Application,
		identity:   config.Identity,
		publisher:  config.Publisher,
		manager:    config.Manager,
		logger:     config.Logger,
		selections: make(map[*document.Workbook][][]protocol.Cell),
	}
	a.app.OnWorkbookOpen(a.opened)
	a.app.OnNewWorkbook(a.opened)
	a.app.OnWorkbookBeforeClose(a.beforeClose)
	a.app.OnSheetSelectionChange(a.selectionChanged)
	a.app.OnSheetChange(a.sheetChanged)

	for _, w := range a.app.Workbooks() {
		a.opened(w)
	}
	return a, nil
}

// Close stops every router and waits for them. Notifications arriving
// afterwards are ignored.
func (a *Addin) Close() {
	a.mu.Lock()
	a.closed = true
	clear(a.selections)
	a.mu.Unlock()
	a.manager.Shutdown()
}

func (a *Addin) active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.closed
}

// documentID returns the id of w, minting one on first sight.
func (a *Addin) documentID(w *document.Workbook) (string, bool) {
	id, minted, err := document.EnsureID(a.identity, w)
	if err != nil {
		a.logger.Error("assigning document id", "workbook", w.Name(), "error", err)
		return "", false
	}
	if minted {
		a.logger.Info("assigned document id", "workbook", w.Name(), "document", id)
	}
	return id, true
}

func (a *Addin) opened(w *document.Workbook) {
	if !a.active() {
		return
	}
	id, ok := a.documentID(w)
	if !ok {
		return
	}
	if _, err := a.manager.EnsureRunning(id); err != nil {
		a.logger.Error("starting router", "document", id, "error", err)
	}
	a.publish(protocol.NewWorkbookOpen(id))
}

// Reconnect starts a router for every open workbook whose router has
// exited, typically because the agent was unreachable or dropped the
// connection, and announces the workbook again with WorkbookOpen. It
// reports how many routers were started.
func (a *Addin) Reconnect() int {
	if !a.active() {
		return 0
	}
	var started int
	for _, w := range a.app.Workbooks() {
		id, ok := a.documentID(w)
		if !ok {
			continue
		}
		restarted, err := a.manager.EnsureRunning(id)
		if err != nil {
			a.logger.Error("restarting router", "document", id, "error", err)
			continue
		}
		if !restarted {
			continue
		}
		a.logger.Info("router restarted", "document", id)
		a.publish(protocol.NewWorkbookOpen(id))
		started++
	}
	return started
}

// Supervise calls Reconnect every interval until ctx is done.
func (a *Addin) Supervise(ctx context.Context, clk clock.Clock, interval time.Duration) error {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Reconnect()
		}
	}
}

func (a *Addin) beforeClose(w *document.Workbook) {
	if !a.active() {
		return
	}
	a.mu.Lock()
	delete(a.selections, w)
	a.mu.Unlock()

	id, ok := a.documentID(w)
	if !ok {
		return
	}
	a.publish(protocol.NewWorkbookBeforeClose(id))
	a.manager.Cancel(id)
}

func (a *Addin) selectionChanged(change document.Change) {
	if !a.active() {
		return
	}
	cells, err := values(change)
	if err != nil {
		a.logger.Debug("snapshotting selection", "workbook", change.Workbook.Name(), "error", err)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selections[change.Workbook] = cells
}

func (a *Addin) sheetChanged(change document.Change) {
	if !a.active() {
		return
	}
	id, ok := a.documentID(change.Workbook)
	if !ok {
		return
	}
	cells, err := values(change)
	if err != nil {
		a.logger.Warn("snapshotting changed cells", "document", id, "error", err)
		return
	}

	a.mu.Lock()
	previous := a.selections[change.Workbook]
	a.mu.Unlock()

	a.publish(protocol.NewSheetChange(id, change.Sheet, cells, previous))
}

func (a *Addin) publish(event *protocol.Event) {
	if err := a.publisher.Publish(event); err != nil {
		a.logger.Error("publishing event", "type", event.Type, "document", event.Workbook, "error", err)
	}
}

// values snapshots the keys and values of the changed area.
func values(change document.Change) ([][]protocol.Cell, error) {
	snapshot, err := change.Workbook.GetRange(change.Sheet, change.Area.String())
	if err != nil {
		return nil, err
	}
	return router.CellsFromRange(snapshot, protocol.Attributes{}), nil
}
