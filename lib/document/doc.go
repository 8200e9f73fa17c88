// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package document is the document model that routers read and
// mutate.
//
// [Document] is the narrow adapter a router needs: resolve a sheet,
// snapshot a range, set cell contents and styles, and suspend change
// notifications while it writes. [Host] enumerates open documents and
// [Identity] maps a document to its stable id. Routers hold none of
// these beyond a single operation; they look the document up by id
// every time.
//
// [Workbook] is the in-memory implementation used by the host binary
// (populated from .xlsx files by lib/xlsx) and by tests. [Application]
// holds the open workbooks and raises the lifecycle and edit
// notifications the host add-in listens to.
//
// Cell references follow spreadsheet A1 notation. Parsing accepts
// relative ("B3") and absolute ("$B$3") forms; snapshots always report
// absolute references.
package document
