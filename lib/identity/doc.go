// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity persists document ids for file-backed documents.
//
// The host binary opens .xlsx files read-only, so the id minted for a
// document cannot be written back into the file's custom properties.
// [Store] remembers it instead, keyed by the file's absolute path, in
// a CBOR state file written atomically (temporary file, fsync,
// rename). A document reopened in a later session therefore keeps its
// id, and the agent sees the same workbook.
//
// Store implements [document.Identity]. The custom property on the
// in-memory document stays authoritative: the store is consulted only
// when the property is absent, and SetID writes both.
package identity
