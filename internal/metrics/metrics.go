// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors of the tracking pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trailmap"

var (
	FixesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "position",
		Name:      "fixes_received_total",
		Help:      "Number of position fixes delivered by the location providers.",
	})
	FixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "position",
		Name:      "fixes_accepted_total",
		Help:      "Number of position fixes that passed the distance and interval filters.",
	})
	SubscriptionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "position",
		Name:      "subscription_errors_total",
		Help:      "Number of position subscriptions that ended with an error.",
	})

	ProviderFixes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "fixes_total",
		Help:      "Number of position fixes published by location provider.",
	}, []string{"provider"})
	ProviderRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "restarts_total",
		Help:      "Number of location provider streams restarted after ending or failing.",
	}, []string{"provider"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Number of tracking session transitions by target phase.",
	}, []string{"phase"})
	TrailPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "trail_points",
		Help:      "Number of points in the current trail.",
	})
	PowerQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "power",
		Name:      "queries_total",
		Help:      "Number of battery saver queries by resulting status.",
	}, []string{"status"})

	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geocode",
		Name:      "requests_total",
		Help:      "Number of geocoding requests by provider, kind and result.",
	}, []string{"provider", "kind", "result"})
)

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
