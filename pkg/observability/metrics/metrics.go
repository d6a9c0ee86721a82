/*
 * Copyright 2024 The JWX Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics implements prometheus metrics and exposes the metrics HTTP listener
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricNamespace     = "jwx"
	buildSubsystem      = "build"
	frontendSubsystem   = "frontend"
	controlSubsystem    = "control"
	dispatcherSubsystem = "dispatcher"
	routerSubsystem     = "router"
)

// Default histogram buckets used by jwx
var (
	defaultBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}
)

// BuildInfo is a Gauge representing the jwx binary build information of the running server instance
var BuildInfo *prometheus.GaugeVec

// FrontendRequestStatus is a Counter of front end requests that have been processed,
// labeled by how they were served (static, dynamic, fallback) and their status
var FrontendRequestStatus *prometheus.CounterVec

// FrontendRequestDuration is a histogram that tracks the time it takes to process a request
var FrontendRequestDuration *prometheus.HistogramVec

// FrontendRequestWrittenBytes is a Counter of bytes written for front end requests
var FrontendRequestWrittenBytes *prometheus.CounterVec

// FrontendParseFailures is a Counter of buffered requests that could not be parsed
var FrontendParseFailures prometheus.Counter

// FrontendMaxConnections is a Gauge representing the max number of active concurrent connections in the server
var FrontendMaxConnections prometheus.Gauge

// FrontendActiveConnections is a Gauge representing the number of active connections in the server
var FrontendActiveConnections prometheus.Gauge

// FrontendConnectionAccepted is a counter representing the total number of connections accepted by the frontend
var FrontendConnectionAccepted prometheus.Counter

// FrontendConnectionClosed is a counter representing the total number of connections closed by the frontend
var FrontendConnectionClosed prometheus.Counter

// FrontendConnectionFailed is a counter for the total number of connections failed to accept
var FrontendConnectionFailed prometheus.Counter

// ControlMessages is a Counter of control messages sent and received, by direction and type
var ControlMessages *prometheus.CounterVec

// DispatcherUnits is a Counter of isolation units, by mode and outcome
var DispatcherUnits *prometheus.CounterVec

// DispatcherUnitDuration is a histogram of isolation unit lifetimes
var DispatcherUnitDuration *prometheus.HistogramVec

// RouterResolutions is a Counter of route lookups, by outcome
var RouterResolutions *prometheus.CounterVec

func init() {

	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: buildSubsystem,
			Name:      "info",
			Help: "A metric with a constant '1' value labeled by version," +
				"revision, and goversion from which jwx was built.",
		},
		[]string{"goversion", "revision", "version"},
	)

	FrontendRequestStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "requests_total",
			Help:      "Count of front end requests handled by jwx",
		},
		[]string{"kind", "method", "http_status"},
	)

	FrontendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "requests_duration_seconds",
			Help:      "Histogram of front end request durations handled by jwx",
			Buckets:   defaultBuckets,
		},
		[]string{"kind", "method", "http_status"},
	)

	FrontendRequestWrittenBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "written_bytes_total",
			Help:      "Count of bytes written in front end requests handled by jwx",
		},
		[]string{"kind"})

	FrontendParseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "parse_failures_total",
			Help:      "Count of buffered requests discarded because they could not be parsed.",
		},
	)

	FrontendMaxConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "max_connections",
			Help:      "jwx max number of active connections.",
		},
	)

	FrontendActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "active_connections",
			Help:      "jwx number of active connections.",
		},
	)

	FrontendConnectionAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "accepted_connections_total",
			Help:      "jwx total number of accepted connections.",
		},
	)

	FrontendConnectionClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "closed_connections_total",
			Help:      "jwx total number of closed connections.",
		},
	)

	FrontendConnectionFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "failed_connections_total",
			Help:      "jwx total number of failed connections.",
		},
	)

	ControlMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: controlSubsystem,
			Name:      "messages_total",
			Help:      "Count of control channel messages by direction and type.",
		},
		[]string{"direction", "type"},
	)

	DispatcherUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: dispatcherSubsystem,
			Name:      "units_total",
			Help:      "Count of isolation units by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	DispatcherUnitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: dispatcherSubsystem,
			Name:      "unit_duration_seconds",
			Help:      "Histogram of isolation unit lifetimes.",
			Buckets:   defaultBuckets,
		},
		[]string{"mode"},
	)

	RouterResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: routerSubsystem,
			Name:      "resolutions_total",
			Help:      "Count of route lookups by outcome.",
		},
		[]string{"outcome"},
	)

	// Register Metrics
	prometheus.MustRegister(BuildInfo)
	prometheus.MustRegister(FrontendRequestStatus)
	prometheus.MustRegister(FrontendRequestDuration)
	prometheus.MustRegister(FrontendRequestWrittenBytes)
	prometheus.MustRegister(FrontendParseFailures)
	prometheus.MustRegister(FrontendMaxConnections)
	prometheus.MustRegister(FrontendActiveConnections)
	prometheus.MustRegister(FrontendConnectionAccepted)
	prometheus.MustRegister(FrontendConnectionClosed)
	prometheus.MustRegister(FrontendConnectionFailed)
	prometheus.MustRegister(ControlMessages)
	prometheus.MustRegister(DispatcherUnits)
	prometheus.MustRegister(DispatcherUnitDuration)
	prometheus.MustRegister(RouterResolutions)
}

// Handler returns the http handler for the listener
func Handler() http.Handler {
	return promhttp.Handler()
}
