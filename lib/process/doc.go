// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. [Fatal] is the
// one sanctioned place where a binary writes to stderr before (or
// after) its structured logger exists.
package process
