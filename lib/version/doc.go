// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the
// comnsense binaries.
//
// Four variables are injected at build time via -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/comnsense/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" / "0.1.0-dev" in development builds and
// test runs. [Info] formats them for --version output; [Print] writes
// that line to stdout.
package version
