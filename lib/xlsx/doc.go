// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package xlsx loads .xlsx files into in-memory [document.Workbook]
// values.
//
// Only what a router can observe is read: cell values, the first font
// name, bold/italic/underline, the fill color as a palette index,
// the four border edges, defined names and the active sheet. Formulas
// are not evaluated; the cached value stored in the file is used.
// Nothing is ever written back.
//
// Fill colors are reported as palette indexes 1 through 56. Indexed
// fills map directly; RGB fills map only when they equal a default
// palette entry, otherwise the cell reports no fill.
package xlsx
