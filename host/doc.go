// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package host connects a document application to the routers.
//
// [Addin] subscribes to the application's lifecycle and edit
// notifications. When a document is opened or created it makes sure
// the document carries an id, starts its router through the
// [router.Manager] and publishes WorkbookOpen. Before a document
// closes it publishes WorkbookBeforeClose and cancels the router.
// Local value edits become SheetChange events; when the user had a
// selection before editing, the values of that selection are attached
// as prev_cells. A router whose upstream connection fails exits;
// [Addin.Supervise] restarts it on the next tick and announces the
// document again.
//
// [Watcher] keeps file-backed workbooks in step with their files. It
// loads a workbook from disk, opens it in the application and, when
// the file is rewritten with different content, copies the new values
// into the open workbook. Those copies are ordinary local edits, so
// they flow out as SheetChange events like any other.
package host
