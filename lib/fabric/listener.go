// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"fmt"
	"net"
	"time"

	"github.com/bureau-foundation/comnsense/lib/codec"
	"github.com/bureau-foundation/comnsense/lib/version"
)

// Listener accepts upstream connections.
type Listener struct {
	listener net.Listener
}

// Listen listens on a TCP address. Use "127.0.0.1:0" for an ephemeral
// port.
func Listen(address string) (*Listener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}
	return &Listener{listener: listener}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.listener.Addr() }

// Accept waits for a connection and reads its handshake. A peer that
// sends no valid handshake within the handshake timeout, or speaks
// another framing version, is disconnected and reported as an error;
// the listener stays usable.
func (l *Listener) Accept() (*Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	decoder := codec.NewDecoder(conn)
	var handshake Handshake
	if err := decoder.Decode(&handshake); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading handshake from %s: %w", conn.RemoteAddr(), err)
	}
	if handshake.Version != version.ProtocolVersion {
		conn.Close()
		return nil, fmt.Errorf("peer %s speaks framing version %d, want %d",
			conn.RemoteAddr(), handshake.Version, version.ProtocolVersion)
	}
	if len(handshake.Identity) == 0 {
		conn.Close()
		return nil, fmt.Errorf("peer %s sent an empty identity", conn.RemoteAddr())
	}
	conn.SetReadDeadline(time.Time{})

	return newConn(conn, handshake.Identity, codec.NewEncoder(conn), decoder), nil
}

// Close stops listening. Connections already accepted stay open.
func (l *Listener) Close() error { return l.listener.Close() }
