// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve (select with a wall-clock fallback) so individual tests never
// call time.After themselves. They are the only place in the test
// suite where real timeouts are used.
//
// [UniqueID] produces monotonically increasing identifiers for tests
// that need distinct document ids or topics.
//
// All helpers call t.Fatalf on failure. This package has no internal
// dependencies.
package testutil
