// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

// State is the lifecycle state of a Router.
type State int32

const (
	// Idle: constructed, Run not yet called.
	Idle State = iota
	// Running: Run entered. The connections are opened first, then
	// the loop serves them.
	Running
	// Cancelling: cancellation observed, connections being released.
	Cancelling
	// Stopped: Run has returned and both connections are closed.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
