// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package router bridges open documents and the remote agent.
//
// Each open document gets one [Router], identified by the document id
// D. A running Router holds two connections, both opened in [Router.Run]
// and closed on every exit path:
//
//   - a subscription to the broadcast hub with topic D, through which
//     the [Publisher] delivers the document's own events;
//   - an upstream connection to the agent endpoint, dialed with a fresh
//     random connection identity so that many routers can share one
//     endpoint.
//
// The loop forwards every broadcast event upstream as ["event",
// payload] with the payload bytes untouched, and handles every
// inbound action: a ComnsenseChange for D is applied to the document,
// a RangeRequest is answered with a RangeResponse on the same
// connection. Undecodable actions are logged and dropped. The loop
// waits at most one poll interval at a time, so cancellation is
// observed within one interval even when both connections are idle.
//
// Routers never hold a document across operations. They find it by
// scanning the host's open documents for the one whose identity is D,
// and they bracket every access with notification suspension so that
// their own writes are not echoed back as local edits.
//
// [Manager] owns the routers of a process: one per document id,
// restarted when the previous one has exited or been cancelled, and
// joined on shutdown. [Manager.EnsureRunning] returns once the new
// router is subscribed, so events published right after it are
// forwarded.
package router
