// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedClose reports whether err, typically from [Conn.Err], is
// an ordinary end of the connection: EOF, a locally closed socket, a
// broken pipe or a reset. Anything else is a protocol or I/O failure.
func IsExpectedClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
