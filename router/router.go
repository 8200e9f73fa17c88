// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/comnsense/lib/clock"
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/fabric"
	"github.com/bureau-foundation/comnsense/lib/protocol"
)

// DefaultPollInterval bounds each wait of the loop.
const DefaultPollInterval = 500 * time.Millisecond

// Config configures one Router.
type Config struct {
	// ID is the document id D. Required.
	ID string

	// Hub is the broadcast channel the Publisher writes to. Required.
	Hub *fabric.Hub

	// UpstreamAddress is the agent endpoint, host:port. Required.
	UpstreamAddress string

	// Host enumerates open documents. Required.
	Host document.Host

	// Identity reads document ids. Required.
	Identity document.Identity

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// DialTimeout bounds connection setup. Zero leaves the transport's
	// own handshake limit.
	DialTimeout time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to an unregistered set.
	Metrics *Metrics
}

// Router bridges one document and the agent. Run it once.
type Router struct {
	id       string
	hub      *fabric.Hub
	address  string
	host     document.Host
	identity document.Identity
	interval time.Duration
	dialWait time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics

	state atomic.Int32
	ready chan struct{}
}

// New validates config and returns an idle Router.
func New(config Config) (*Router, error) {
	switch {
	case config.ID == "":
		return nil, errors.New("router: document id is required")
	case config.Hub == nil:
		return nil, errors.New("router: hub is required")
	case config.UpstreamAddress == "":
		return nil, errors.New("router: upstream address is required")
	case config.Host == nil:
		return nil, errors.New("router: document host is required")
	case config.Identity == nil:
		return nil, errors.New("router: document identity is required")
	case config.PollInterval < 0:
		return nil, fmt.Errorf("router: negative poll interval %s", config.PollInterval)
	case config.DialTimeout < 0:
		return nil, fmt.Errorf("router: negative dial timeout %s", config.DialTimeout)
	}

	r := &Router{
		id:       config.ID,
		hub:      config.Hub,
		address:  config.UpstreamAddress,
		host:     config.Host,
		identity: config.Identity,
		interval: config.PollInterval,
		dialWait: config.DialTimeout,
		clock:    config.Clock,
		logger:   config.Logger,
		metrics:  config.Metrics,
		ready:    make(chan struct{}),
	}
	if r.interval == 0 {
		r.interval = DefaultPollInterval
	}
	if r.clock == nil {
		r.clock = clock.Real()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	r.logger = r.logger.With("document", r.id)
	return r, nil
}

// ID returns the document id the router serves.
func (r *Router) ID() string { return r.id }

// State returns the current lifecycle state.
func (r *Router) State() State { return State(r.state.Load()) }

func (r *Router) setState(state State) { r.state.Store(int32(state)) }

// Ready is closed once Run has subscribed to the hub. From then on,
// events published for the document are queued for forwarding even
// while the upstream connection is still being set up. It never closes
// for a router that is not run.
func (r *Router) Ready() <-chan struct{} { return r.ready }

// Run opens both connections and serves until ctx is cancelled or a
// connection fails. Cancellation yields nil, including when it causes
// a connection failure; any other failure is a *TransportError.
func (r *Router) Run(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return fmt.Errorf("router %s: Run called in state %s", r.id, r.State())
	}
	defer r.setState(Stopped)

	subscription := r.hub.Subscribe(r.id)
	defer subscription.Close()
	close(r.ready)

	upstream, err := r.dial(ctx)
	if err != nil {
		return r.fail(ctx, "dial", err)
	}
	defer upstream.Close()

	r.metrics.Running.Inc()
	defer r.metrics.Running.Dec()

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("router running", "upstream", r.address, "poll_interval", r.interval)
	for {
		if ctx.Err() != nil {
			return r.cancelled()
		}

		select {
		case message, ok := <-subscription.C():
			if !ok {
				return r.fail(ctx, "subscribe", errSubscriptionClosed)
			}
			if err := r.forward(upstream, message); err != nil {
				return r.fail(ctx, "forward", err)
			}

		case message, ok := <-upstream.Receive():
			if !ok {
				return r.fail(ctx, "receive", upstream.Err())
			}
			if err := r.handle(upstream, message); err != nil {
				return r.fail(ctx, "respond", err)
			}

		case <-ticker.C:
		case <-ctx.Done():
		}
	}
}

// dial connects upstream under a fresh connection identity.
func (r *Router) dial(ctx context.Context) (*fabric.Conn, error) {
	if r.dialWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.dialWait)
		defer cancel()
	}
	return fabric.Dial(ctx, r.address, []byte(uuid.NewString()))
}

func (r *Router) cancelled() error {
	r.setState(Cancelling)
	r.metrics.Exits.WithLabelValues("cancelled").Inc()
	r.logger.Info("router stopping")
	return nil
}

// fail classifies a transport failure: after cancellation it is the
// expected way for a connection to end.
func (r *Router) fail(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return r.cancelled()
	}
	r.metrics.Exits.WithLabelValues("error").Inc()
	return &TransportError{Op: op, Err: err}
}

// forward relays a broadcast event upstream with its payload bytes
// unchanged.
func (r *Router) forward(upstream *fabric.Conn, message fabric.Message) error {
	if len(message) < 2 {
		r.logger.Debug("dropping broadcast message without payload", "frames", len(message))
		return nil
	}
	if err := upstream.Send(fabric.Message{[]byte(protocol.TagEvent), message[1]}); err != nil {
		return err
	}
	r.metrics.Forwarded.Inc()
	return nil
}

// handle dispatches one inbound message. Only a failure to send a
// response is returned; everything else is logged.
func (r *Router) handle(upstream *fabric.Conn, message fabric.Message) error {
	if len(message) == 0 {
		return nil
	}
	payload := message[len(message)-1]

	action, err := protocol.DecodeAction(payload)
	if err != nil {
		r.metrics.DecodeErrors.Inc()
		r.logger.Debug("dropping undecodable action", "error", err)
		return nil
	}

	switch action.Type {
	case protocol.ComnsenseChange:
		r.applyChange(action)
		return nil
	case protocol.RangeRequest:
		response := r.serveRange(action)
		if response == nil {
			return nil
		}
		encoded, err := protocol.EncodeEvent(response)
		if err != nil {
			r.logger.Error("encoding range response", "error", err)
			return nil
		}
		return upstream.Send(fabric.Message{[]byte(protocol.TagEvent), encoded})
	}
	return nil
}

func (r *Router) applyChange(action *protocol.Action) {
	if action.Workbook != r.id {
		r.metrics.Actions.WithLabelValues(action.Type.String(), resultIgnored).Inc()
		r.logger.Warn("ignoring change for another document", "workbook", action.Workbook)
		return
	}

	result := r.withDocument(action, func(doc document.Document) error {
		start := r.clock.Now()
		err := ApplyChange(doc, action)
		r.metrics.ApplySeconds.Observe(r.clock.Now().Sub(start).Seconds())
		return err
	})
	if result == resultApplied {
		r.logger.Debug("change applied", "changeid", action.ChangeID)
	}
}

func (r *Router) serveRange(action *protocol.Action) *protocol.Event {
	var response *protocol.Event
	r.withDocument(action, func(doc document.Document) error {
		var err error
		response, err = ServeRange(doc, r.id, action)
		return err
	})
	return response
}

// withDocument looks the document up, suspends its notifications for
// the duration of operate, and records the outcome. A panic in the
// document adapter is contained here so it cannot take down the
// process.
func (r *Router) withDocument(action *protocol.Action, operate func(document.Document) error) (result string) {
	kind := action.Type.String()
	defer func() {
		r.metrics.Actions.WithLabelValues(kind, result).Inc()
	}()

	doc, err := r.lookup()
	if err != nil {
		r.logger.Debug("action for a document that is not open", "action", kind)
		return resultLookupMiss
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("document adapter panicked", "action", kind, "panic", recovered)
			result = resultFailed
		}
	}()

	release := document.Suspend(doc)
	defer release()

	if err := operate(doc); err != nil {
		r.logger.Warn("action failed", "action", kind, "error", err)
		return resultFailed
	}
	if action.Type == protocol.RangeRequest {
		return resultServed
	}
	return resultApplied
}

// lookup scans the open documents for the one whose id is the
// router's.
func (r *Router) lookup() (document.Document, error) {
	doc, ok := document.Find(r.host, r.identity, r.id)
	if !ok {
		return nil, ErrLookupMiss
	}
	return doc, nil
}
