// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration.
//
// Comnsense uses two serialization formats with a clear boundary:
//
//   - JSON for the document protocol itself: Event and Action payloads
//     are read by the remote agent and must stay text-based (see
//     lib/protocol).
//   - CBOR for everything the agent never parses: the multipart
//     framing on the upstream connection (lib/fabric), the connection
//     handshake, and on-disk state such as the identity store
//     (lib/identity).
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical value always produces the same bytes, which keeps
// state files diffable and frame sizes predictable.
//
// For buffer-oriented operations (files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (connections):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only ever travel as CBOR carry `cbor` struct tags. Never
// put both `cbor` and `json` tags on the same field.
package codec
