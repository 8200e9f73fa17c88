// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"errors"
	"slices"
	"testing"

	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/protocol"
	"github.com/bureau-foundation/comnsense/lib/testutil"
)

func (h *harness) manager() *Manager {
	m := NewManager(ManagerConfig{
		Hub:             h.hub,
		UpstreamAddress: h.agent.Addr().String(),
		Host:            h.app,
		Identity:        document.PropertyIdentity{},
		Clock:           h.clock,
		Logger:          h.logger,
		Metrics:         h.metrics,
	})
	h.t.Cleanup(m.Shutdown)
	return m
}

func ensure(t *testing.T, m *Manager, id string, want bool) {
	t.Helper()
	started, err := m.EnsureRunning(id)
	if err != nil {
		t.Fatalf("EnsureRunning(%s): %v", id, err)
	}
	if started != want {
		t.Fatalf("EnsureRunning(%s) started = %v, want %v", id, started, want)
	}
}

func done(t *testing.T, m *Manager, id string) <-chan struct{} {
	t.Helper()
	ch, err := m.Done(id)
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func TestManagerEnsureRunningIsIdempotent(t *testing.T) {
	h := newHarness(t)
	m := h.manager()

	ensure(t, m, "doc-1", true)
	h.accept()
	ensure(t, m, "doc-1", false)
	ensure(t, m, "doc-2", true)
	h.accept()

	if got := m.Running(); !slices.Equal(got, []string{"doc-1", "doc-2"}) {
		t.Errorf("Running = %v", got)
	}
	if state, ok := m.State("doc-1"); !ok || state != Running {
		t.Errorf("State(doc-1) = %s, %v", state, ok)
	}
	if _, ok := m.State("doc-3"); ok {
		t.Error("State reports an unknown document")
	}
}

func TestManagerEnsureRunningSubscribesBeforeReturning(t *testing.T) {
	h := newHarness(t)
	m := h.manager()

	ensure(t, m, "doc-1", true)
	if got := h.hub.Subscribers("doc-1"); got != 1 {
		t.Fatalf("subscribers = %d right after EnsureRunning, want 1", got)
	}

	// Published before the upstream connection exists, delivered once
	// it does.
	publisher := NewPublisher(h.hub, h.metrics)
	if err := publisher.Publish(protocol.NewWorkbookOpen("doc-1")); err != nil {
		t.Fatal(err)
	}
	peer := h.accept()
	message := testutil.RequireReceive(t, peer.Receive(), testTimeout, "early event")
	event, err := protocol.DecodeEvent(message[1])
	if err != nil {
		t.Fatal(err)
	}
	if event.Type != protocol.WorkbookOpen {
		t.Errorf("event = %+v", event)
	}
}

func TestManagerCancelThenRestart(t *testing.T) {
	h := newHarness(t)
	m := h.manager()

	ensure(t, m, "doc-1", true)
	h.accept()
	first := done(t, m, "doc-1")

	if !m.Cancel("doc-1") {
		t.Fatal("Cancel found no router")
	}
	testutil.RequireClosed(t, first, testTimeout, "cancelled router exit")
	if err := m.Err("doc-1"); err != nil {
		t.Errorf("Err after cancel = %v, want nil", err)
	}
	if state, _ := m.State("doc-1"); state != Stopped {
		t.Errorf("state = %s, want stopped", state)
	}

	ensure(t, m, "doc-1", true)
	h.accept()
	if second := done(t, m, "doc-1"); second == first {
		t.Error("restart reused the exited worker")
	}
	if m.Cancel("doc-9") {
		t.Error("Cancel reported an unknown document")
	}
}

func TestManagerRestartsAfterTransportError(t *testing.T) {
	h := newHarness(t)
	m := h.manager()

	ensure(t, m, "doc-1", true)
	peer := h.accept()
	peer.Close()
	testutil.RequireClosed(t, done(t, m, "doc-1"), testTimeout, "router exit after upstream loss")

	var transportError *TransportError
	if err := m.Err("doc-1"); !errors.As(err, &transportError) {
		t.Errorf("Err = %v, want *TransportError", err)
	}
	if got := m.Running(); len(got) != 0 {
		t.Errorf("Running = %v, want none", got)
	}

	ensure(t, m, "doc-1", true)
	h.accept()
}

func TestManagerShutdownJoinsEverything(t *testing.T) {
	h := newHarness(t)
	m := h.manager()

	var exits []<-chan struct{}
	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		ensure(t, m, id, true)
		h.accept()
		exits = append(exits, done(t, m, id))
	}

	m.Shutdown()
	for i, exit := range exits {
		select {
		case <-exit:
		default:
			t.Errorf("router %d still running after Shutdown", i)
		}
	}
	if got := m.Running(); len(got) != 0 {
		t.Errorf("Running after Shutdown = %v", got)
	}
}

func TestManagerDoneUnknown(t *testing.T) {
	h := newHarness(t)
	if _, err := h.manager().Done("doc-1"); err == nil {
		t.Error("Done for an unknown document succeeded")
	}
}
