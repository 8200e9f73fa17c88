// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 content digests of document files.
//
// The host's file watcher hashes a workbook file after every write
// event and reloads it only when the digest changed, so that editors
// which rewrite a file without changing it (or write it in several
// steps) do not produce spurious SheetChange events.
//
// This package has no internal dependencies.
package binhash
