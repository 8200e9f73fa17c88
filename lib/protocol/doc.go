// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the document synchronization wire protocol:
// the [Event] messages a document emits (opened, closing, cells
// changed, range snapshot) and the [Action] messages the remote agent
// sends back (apply a change, request a range).
//
// Payloads are compact UTF-8 JSON. The agent is written against this
// exact shape, so field names are fixed by the protocol rather than by
// Go naming: "prev_cells", "rangeName", "changeid" and so on.
//
// # Optional fields
//
// A [Cell] always carries key and value. Its font, color, fontstyle
// and borders are pointers: nil means "no opinion" and the field is
// left out of the encoding entirely. An encoded zero means "set this
// attribute to zero". Receivers depend on the distinction, so the
// encoder never writes null for an absent field.
//
// # Decoding
//
// [DecodeEvent] and [DecodeAction] are forward compatible: unknown
// fields are ignored and missing optional fields decode as absent.
// Anything that cannot be interpreted (malformed JSON, an unknown
// message type, an empty workbook id, a border edge that is not a
// [weight, lineStyle] pair) yields a *[DecodeError].
//
// # Framing
//
// On the upstream connection every payload travels as the second
// frame of a two-frame message whose first frame is a tag: [TagEvent]
// for events, [TagAction] for actions. The framing itself is owned by
// lib/fabric.
package protocol
