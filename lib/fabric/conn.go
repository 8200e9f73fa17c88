// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/comnsense/lib/codec"
	"github.com/bureau-foundation/comnsense/lib/version"
)

const (
	// handshakeTimeout bounds connection setup when the caller's
	// context carries no deadline of its own.
	handshakeTimeout = 5 * time.Second

	// writeTimeout bounds a single Send.
	writeTimeout = 10 * time.Second

	// receiveBuffer is the depth of the inbound message queue.
	receiveBuffer = 16
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("fabric: connection closed")

// Handshake is the first item the dialing side writes.
type Handshake struct {
	Identity []byte `cbor:"identity"`
	Version  int    `cbor:"version"`
}

// Conn is one upstream connection. Send may be called from any
// goroutine; inbound messages are delivered on Receive.
type Conn struct {
	conn     net.Conn
	identity []byte
	encoder  *codec.Encoder

	writeMu sync.Mutex

	incoming  chan Message
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to address and introduces itself as identity.
func Dial(ctx context.Context, address string, identity []byte) (*Conn, error) {
	if len(identity) == 0 {
		return nil, errors.New("fabric: dial requires a connection identity")
	}

	ctx, cancel := handshakeContext(ctx)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}

	deadline, _ := ctx.Deadline()
	conn.SetWriteDeadline(deadline)
	encoder := codec.NewEncoder(conn)
	if err := encoder.Encode(Handshake{Identity: identity, Version: version.ProtocolVersion}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending handshake to %s: %w", address, err)
	}
	conn.SetWriteDeadline(time.Time{})

	return newConn(conn, identity, encoder, codec.NewDecoder(conn)), nil
}

// handshakeContext applies handshakeTimeout unless ctx already has a
// deadline, which then governs alone.
func handshakeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, handshakeTimeout)
}

func newConn(conn net.Conn, identity []byte, encoder *codec.Encoder, decoder *codec.Decoder) *Conn {
	c := &Conn{
		conn:     conn,
		identity: identity,
		encoder:  encoder,
		incoming: make(chan Message, receiveBuffer),
		done:     make(chan struct{}),
	}
	go c.readLoop(decoder)
	return c
}

// Identity returns the connection identity: this side's for a dialed
// connection, the peer's for an accepted one.
func (c *Conn) Identity() []byte { return c.identity }

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send writes one message.
func (c *Conn) Send(message Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.encoder.Encode([][]byte(message)); err != nil {
		return fmt.Errorf("sending to %s: %w", c.conn.RemoteAddr(), err)
	}
	return nil
}

// Receive returns the inbound message channel. It is closed when the
// connection ends; Err then reports why.
func (c *Conn) Receive() <-chan Message { return c.incoming }

// Err returns the error that ended the connection, or nil while it is
// open. A connection ended by Close reports ErrClosed.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close ends the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setErr(ErrClosed)
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) readLoop(decoder *codec.Decoder) {
	defer close(c.incoming)
	for {
		var frames [][]byte
		if err := decoder.Decode(&frames); err != nil {
			c.setErr(fmt.Errorf("receiving from %s: %w", c.conn.RemoteAddr(), err))
			c.conn.Close()
			return
		}
		select {
		case c.incoming <- Message(frames):
		case <-c.done:
			return
		}
	}
}

// setErr records the first terminal error.
func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
