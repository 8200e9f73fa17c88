// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"sync"
	"sync/atomic"
)

// Message is a multipart message.
type Message [][]byte

// Topic returns the first frame, or nil for an empty message.
func (m Message) Topic() []byte {
	if len(m) == 0 {
		return nil
	}
	return m[0]
}

// Hub is an in-process publish/subscribe channel keyed by exact topic.
// It is safe for concurrent use.
type Hub struct {
	buffer int

	mu          sync.Mutex
	subscribers map[string]map[*Subscription]struct{}
	closed      bool

	dropped atomic.Uint64
}

// NewHub returns a hub whose subscriptions queue up to buffer
// messages each.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe returns a subscription to topic. Subscribing to a closed
// hub returns an already-closed subscription.
func (h *Hub) Subscribe(topic string) *Subscription {
	subscription := &Subscription{
		hub:      h,
		topic:    topic,
		messages: make(chan Message, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		subscription.closed = true
		close(subscription.messages)
		return subscription
	}
	set, ok := h.subscribers[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subscribers[topic] = set
	}
	set[subscription] = struct{}{}
	return subscription
}

// Publish delivers message to every subscriber of its topic without
// blocking. It returns how many subscribers received the message and
// how many lost it to a full queue. Empty messages are discarded.
func (h *Hub) Publish(message Message) (delivered, dropped int) {
	if len(message) == 0 {
		return 0, 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, 0
	}
	for subscription := range h.subscribers[string(message[0])] {
		select {
		case subscription.messages <- message:
			delivered++
		default:
			dropped++
		}
	}
	h.dropped.Add(uint64(dropped))
	return delivered, dropped
}

// Dropped returns the number of deliveries lost to full queues since
// the hub was created.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Subscribers returns the number of live subscriptions to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[topic])
}

// Close closes every subscription. Later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subscribers {
		for subscription := range set {
			subscription.closeLocked()
		}
	}
	h.subscribers = nil
}

// Subscription receives the messages of one topic.
type Subscription struct {
	hub      *Hub
	topic    string
	messages chan Message

	// closed is guarded by hub.mu.
	closed bool
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// C returns the delivery channel. It is closed when the subscription
// or the hub is closed.
func (s *Subscription) C() <-chan Message { return s.messages }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.closed {
		return
	}
	if set, ok := s.hub.subscribers[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.hub.subscribers, s.topic)
		}
	}
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.messages)
	}
}
