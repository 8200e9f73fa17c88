// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fabric carries multipart messages between document routers
// and the remote agent.
//
// A [Message] is a list of byte frames. Two transports use it:
//
//   - [Hub] is the in-process broadcast channel. The first frame of a
//     published message is its topic; a [Subscription] receives only
//     messages whose topic equals its own byte for byte (no prefix
//     matching). Delivery is at-most-once: every subscriber has a
//     bounded queue and a message that finds the queue full is dropped
//     for that subscriber.
//
//   - [Conn] is one upstream connection over TCP. The dialing side
//     opens with a [Handshake] carrying its connection identity and
//     the framing version, then both sides exchange messages, each
//     encoded as a single CBOR array of byte strings. [Listener] is
//     the accepting side, used by the mock agent and by tests.
//
// Frames are shared, not copied, between the sender and every
// receiver. Receivers must treat them as read-only.
package fabric
