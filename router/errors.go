// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"errors"
	"fmt"
)

// ErrLookupMiss reports that no open document carries the router's id.
// Operations that hit it are abandoned without a response.
var ErrLookupMiss = errors.New("document not open")

// TransportError reports the loss of the subscription or the upstream
// connection. It ends Run unless cancellation was already requested.
type TransportError struct {
	// Op is "subscribe", "dial", "forward", "receive" or "respond".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("router transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// errSubscriptionClosed is the cause of a TransportError raised when
// the hub closes the router's subscription.
var errSubscriptionClosed = errors.New("broadcast subscription closed")
