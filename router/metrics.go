// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action results recorded in the actions counter.
const (
	resultApplied    = "applied"
	resultServed     = "served"
	resultIgnored    = "ignored"
	resultLookupMiss = "lookup_miss"
	resultFailed     = "failed"
)

// Metrics are the Prometheus collectors shared by every router,
// publisher and manager of a process.
type Metrics struct {
	// Published counts broadcast deliveries by outcome
	// ("delivered" or "dropped").
	Published *prometheus.CounterVec

	// Forwarded counts events relayed upstream.
	Forwarded prometheus.Counter

	// Actions counts inbound actions by type and result.
	Actions *prometheus.CounterVec

	// DecodeErrors counts dropped undecodable actions.
	DecodeErrors prometheus.Counter

	// Running is the number of routers inside Run.
	Running prometheus.Gauge

	// Exits counts router exits by reason ("cancelled" or "error").
	Exits *prometheus.CounterVec

	// ApplySeconds observes how long a ComnsenseChange holds the
	// document.
	ApplySeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with
// registerer. A nil registerer leaves them unregistered, which is what
// tests and embedders without a /metrics endpoint want.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "comnsense_events_published_total",
			Help: "Broadcast deliveries of document events, by outcome.",
		}, []string{"outcome"}),
		Forwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "comnsense_router_events_forwarded_total",
			Help: "Events relayed from the broadcast hub to the agent.",
		}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "comnsense_router_actions_total",
			Help: "Actions received from the agent, by type and result.",
		}, []string{"type", "result"}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "comnsense_router_decode_errors_total",
			Help: "Undecodable actions dropped.",
		}),
		Running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "comnsense_routers_running",
			Help: "Routers currently running.",
		}),
		Exits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "comnsense_router_exits_total",
			Help: "Router exits, by reason.",
		}, []string{"reason"}),
		ApplySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "comnsense_router_apply_seconds",
			Help:    "Time spent applying one change to a document.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
