// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/comnsense/lib/clock"
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/fabric"
	"github.com/bureau-foundation/comnsense/lib/protocol"
	"github.com/bureau-foundation/comnsense/lib/testutil"
)

const testTimeout = 5 * time.Second

// harness wires routers to an in-memory application and a loopback
// agent endpoint.
type harness struct {
	t       *testing.T
	hub     *fabric.Hub
	app     *document.Application
	agent   *fabric.Listener
	clock   *clock.FakeClock
	metrics *Metrics
	logger  *slog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	agent, err := fabric.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	h := &harness{
		t:       t,
		hub:     fabric.NewHub(16),
		app:     document.NewApplication(),
		agent:   agent,
		clock:   clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		metrics: NewMetrics(nil),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	t.Cleanup(func() {
		agent.Close()
		h.hub.Close()
	})
	return h
}

// openDocument opens a workbook carrying id.
func (h *harness) openDocument(id string, sheets ...string) *document.Workbook {
	h.t.Helper()
	w := document.NewWorkbook(id, sheets...)
	if err := w.SetCustomProperty(document.IDProperty, id); err != nil {
		h.t.Fatal(err)
	}
	h.app.Open(w)
	return w
}

func (h *harness) config(id string) Config {
	return Config{
		ID:              id,
		Hub:             h.hub,
		UpstreamAddress: h.agent.Addr().String(),
		Host:            h.app,
		Identity:        document.PropertyIdentity{},
		PollInterval:    DefaultPollInterval,
		Clock:           h.clock,
		Logger:          h.logger,
		Metrics:         h.metrics,
	}
}

// running is a started router and the agent's end of its connection.
type running struct {
	router *Router
	peer   *fabric.Conn
	cancel context.CancelFunc
	done   chan struct{}

	// err is written before done is closed.
	err error
}

// wait returns what Run returned.
func (rr *running) wait(t *testing.T) error {
	t.Helper()
	testutil.RequireClosed(t, rr.done, testTimeout, "waiting for router %s to exit", rr.router.ID())
	return rr.err
}

// start runs a router for id and accepts its upstream connection.
// The subscription exists before the dial, so once the connection is
// accepted, published events reach the router.
func (h *harness) start(id string) *running {
	h.t.Helper()
	return h.startWith(h.config(id))
}

func (h *harness) startWith(config Config) *running {
	h.t.Helper()
	r, err := New(config)
	if err != nil {
		h.t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rr := &running{router: r, cancel: cancel, done: make(chan struct{})}
	go func() {
		rr.err = r.Run(ctx)
		close(rr.done)
	}()

	rr.peer = h.accept()
	h.t.Cleanup(func() {
		cancel()
		rr.wait(h.t)
	})
	return rr
}

// accept takes the next upstream connection. It is closed at cleanup.
func (h *harness) accept() *fabric.Conn {
	h.t.Helper()
	type accepted struct {
		conn *fabric.Conn
		err  error
	}
	accepts := make(chan accepted, 1)
	go func() {
		conn, err := h.agent.Accept()
		accepts <- accepted{conn, err}
	}()
	result := testutil.RequireReceive(h.t, accepts, testTimeout, "accepting a router connection")
	if result.err != nil {
		h.t.Fatalf("Accept: %v", result.err)
	}
	h.t.Cleanup(func() { result.conn.Close() })
	return result.conn
}

// send encodes action and sends it as the agent would.
func (rr *running) send(t *testing.T, action *protocol.Action) {
	t.Helper()
	payload, err := protocol.EncodeAction(action)
	if err != nil {
		t.Fatalf("EncodeAction: %v", err)
	}
	rr.sendRaw(t, payload)
}

func (rr *running) sendRaw(t *testing.T, payload []byte) {
	t.Helper()
	if err := rr.peer.Send(fabric.Message{[]byte(protocol.TagAction), payload}); err != nil {
		t.Fatalf("agent Send: %v", err)
	}
}

// receiveEvent waits for the next upstream message and decodes it.
func (rr *running) receiveEvent(t *testing.T) *protocol.Event {
	t.Helper()
	message := testutil.RequireReceive(t, rr.peer.Receive(), testTimeout, "waiting for upstream event")
	if len(message) != 2 || string(message[0]) != protocol.TagEvent {
		t.Fatalf("upstream message = %q, want [event, payload]", message)
	}
	event, err := protocol.DecodeEvent(message[1])
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	return event
}

// observedHost reports every enumeration of open documents, after the
// list has been taken.
type observedHost struct {
	document.Host
	enumerated chan struct{}
}

func (o *observedHost) OpenDocuments() []document.Document {
	documents := o.Host.OpenDocuments()
	o.enumerated <- struct{}{}
	return documents
}

// rangeRequest asks for name on sheet with flags.
func rangeRequest(id, sheet, name string, flags protocol.RangeFlags) *protocol.Action {
	return &protocol.Action{
		Type:      protocol.RangeRequest,
		Workbook:  id,
		Sheet:     sheet,
		RangeName: name,
		Flags:     flags,
	}
}

// barrier sends a RangeRequest and waits for its response. The loop
// handles messages in order, so everything sent before has been
// handled when it returns.
func (rr *running) barrier(t *testing.T, id string) *protocol.Event {
	t.Helper()
	rr.send(t, rangeRequest(id, "", "A1", 0))
	return rr.receiveEvent(t)
}

// faultyHost hands out its workbooks wrapped so that setting a font
// fails.
type faultyHost struct {
	document.Host
	panics bool
}

func (f *faultyHost) OpenDocuments() []document.Document {
	documents := f.Host.OpenDocuments()
	for i, doc := range documents {
		if w, ok := doc.(*document.Workbook); ok {
			documents[i] = &faultyDocument{Workbook: w, panics: f.panics}
		}
	}
	return documents
}

type faultyDocument struct {
	*document.Workbook
	panics bool
}

var errFontRejected = errors.New("font rejected")

func (f *faultyDocument) SetCellFont(sheet, key, font string) error {
	if f.panics {
		panic("font rejected")
	}
	return errFontRejected
}
