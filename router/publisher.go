// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/comnsense/lib/fabric"
	"github.com/bureau-foundation/comnsense/lib/protocol"
)

// Publisher broadcasts document events on the hub. Delivery is
// fire-and-forget: no acknowledgement, no retry, no backlog for
// subscribers that arrive later.
type Publisher struct {
	hub     *fabric.Hub
	metrics *Metrics
}

// NewPublisher returns a publisher on hub. metrics may be nil.
func NewPublisher(hub *fabric.Hub, metrics *Metrics) *Publisher {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Publisher{hub: hub, metrics: metrics}
}

// Publish encodes event and emits [workbook, payload]. Only encoding
// failures are reported; a subscriber that cannot keep up loses the
// event silently.
func (p *Publisher) Publish(event *protocol.Event) error {
	if event == nil {
		return errors.New("publishing: nil event")
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}
	payload, err := protocol.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}

	delivered, dropped := p.hub.Publish(fabric.Message{[]byte(event.Workbook), payload})
	p.metrics.Published.WithLabelValues("delivered").Add(float64(delivered))
	p.metrics.Published.WithLabelValues("dropped").Add(float64(dropped))
	return nil
}
